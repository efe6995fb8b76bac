package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertType identifies a stock-health condition.
type AlertType string

const (
	AlertLowStock       AlertType = "LOW_STOCK"
	AlertOutOfStock     AlertType = "OUT_OF_STOCK"
	AlertOverstock      AlertType = "OVERSTOCK"
	AlertExpiryWarning  AlertType = "EXPIRY_WARNING"
	AlertExpired        AlertType = "EXPIRED"
	AlertTheftSuspicion AlertType = "THEFT_SUSPICION"
	AlertQualityIssue   AlertType = "QUALITY_ISSUE"
	AlertSystemError    AlertType = "SYSTEM_ERROR"
)

// NewAlertID generates a unique alert id.
func NewAlertID() string {
	return fmt.Sprintf("ALT-%s-%s", time.Now().UTC().Format("20060102150405"), uuid.New().String()[:8])
}

// Alert is a mutable stock-health lifecycle record. At most one unresolved
// alert may exist per (itemId, alertType) pair at any time; the store must
// enforce check-then-create atomically.
type Alert struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AlertID           string             `bson:"alertId" json:"alertId"`
	ItemID            string             `bson:"itemId" json:"itemId"`
	Type              AlertType          `bson:"alertType" json:"alertType"`
	Message           string             `bson:"message" json:"message"`
	CurrentQuantity   int                `bson:"currentQuantity" json:"currentQuantity"`
	ThresholdQuantity int                `bson:"thresholdQuantity" json:"thresholdQuantity"`
	IsResolved        bool               `bson:"isResolved" json:"isResolved"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	ResolvedAt        *time.Time         `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ResolvedBy        string             `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
}

// NewAlert creates an unresolved alert.
func NewAlert(itemID string, typ AlertType, message string, currentQuantity, thresholdQuantity int) *Alert {
	return &Alert{
		AlertID:           NewAlertID(),
		ItemID:            itemID,
		Type:              typ,
		Message:           message,
		CurrentQuantity:   currentQuantity,
		ThresholdQuantity: thresholdQuantity,
		IsResolved:        false,
		CreatedAt:         time.Now().UTC(),
	}
}

// Resolve marks the alert resolved. Resolving an already-resolved alert is a
// no-op.
func (a *Alert) Resolve(resolvedBy string) {
	if a.IsResolved {
		return
	}
	now := time.Now().UTC()
	a.IsResolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = resolvedBy
}
