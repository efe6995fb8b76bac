package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdjustmentType identifies the reason class of a manual stock correction.
type AdjustmentType string

const (
	AdjustmentCountCorrection  AdjustmentType = "COUNT_CORRECTION"
	AdjustmentDamage           AdjustmentType = "DAMAGE"
	AdjustmentExpiry           AdjustmentType = "EXPIRY"
	AdjustmentTheft            AdjustmentType = "THEFT"
	AdjustmentLoss             AdjustmentType = "LOSS"
	AdjustmentFound            AdjustmentType = "FOUND"
	AdjustmentQualityIssue     AdjustmentType = "QUALITY_ISSUE"
	AdjustmentSystemCorrection AdjustmentType = "SYSTEM_CORRECTION"
	AdjustmentOther            AdjustmentType = "OTHER"
)

var adjustmentTypes = map[AdjustmentType]struct{}{
	AdjustmentCountCorrection:  {},
	AdjustmentDamage:           {},
	AdjustmentExpiry:           {},
	AdjustmentTheft:            {},
	AdjustmentLoss:             {},
	AdjustmentFound:            {},
	AdjustmentQualityIssue:     {},
	AdjustmentSystemCorrection: {},
	AdjustmentOther:            {},
}

// IsValid reports whether t is one of the closed set of adjustment types.
func (t AdjustmentType) IsValid() bool {
	_, ok := adjustmentTypes[t]
	return ok
}

// ParseAdjustmentType validates a caller-supplied adjustment type string.
// Parsing happens before any write: a malformed type must never leave a
// partial adjustment behind.
func ParseAdjustmentType(s string) (AdjustmentType, error) {
	t := AdjustmentType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAdjustmentType, s)
	}
	return t, nil
}

// NewAdjustmentID generates a unique adjustment id.
func NewAdjustmentID() string {
	return fmt.Sprintf("ADJ-%s-%s", time.Now().UTC().Format("20060102150405"), uuid.New().String()[:8])
}

// AdjustmentRecord is an immutable record of one human-initiated stock
// correction. Every adjustment produces exactly one ADJUSTMENT ledger entry
// referencing its id.
type AdjustmentRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AdjustmentID string             `bson:"adjustmentId" json:"adjustmentId"`
	ItemID       string             `bson:"itemId" json:"itemId"`
	Type         AdjustmentType     `bson:"adjustmentType" json:"adjustmentType"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	Reason       string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Actor        string             `bson:"actor" json:"actor"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// NewAdjustmentRecord builds an adjustment record with a fresh id. Quantity
// is signed and caller-supplied, not derived.
func NewAdjustmentRecord(itemID string, typ AdjustmentType, quantity int, reason, notes, actor string) (*AdjustmentRecord, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAdjustmentType, typ)
	}
	return &AdjustmentRecord{
		AdjustmentID: NewAdjustmentID(),
		ItemID:       itemID,
		Type:         typ,
		Quantity:     quantity,
		Reason:       reason,
		Notes:        notes,
		Actor:        actor,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
