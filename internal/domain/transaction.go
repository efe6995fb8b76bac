package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType identifies the business cause of a stock mutation.
type TransactionType string

const (
	TransactionSale        TransactionType = "SALE"
	TransactionPurchase    TransactionType = "PURCHASE"
	TransactionAdjustment  TransactionType = "ADJUSTMENT"
	TransactionTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTransferOut TransactionType = "TRANSFER_OUT"
	TransactionReturn      TransactionType = "RETURN"
	TransactionDamaged     TransactionType = "DAMAGED"
	TransactionExpired     TransactionType = "EXPIRED"
	TransactionLost        TransactionType = "LOST"
	TransactionFound       TransactionType = "FOUND"
)

var transactionTypes = map[TransactionType]struct{}{
	TransactionSale:        {},
	TransactionPurchase:    {},
	TransactionAdjustment:  {},
	TransactionTransferIn:  {},
	TransactionTransferOut: {},
	TransactionReturn:      {},
	TransactionDamaged:     {},
	TransactionExpired:     {},
	TransactionLost:        {},
	TransactionFound:       {},
}

// IsValid reports whether t is one of the closed set of transaction types.
func (t TransactionType) IsValid() bool {
	_, ok := transactionTypes[t]
	return ok
}

// ParseTransactionType validates a caller-supplied transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
	return t, nil
}

// NewTransactionID generates a unique ledger transaction id.
func NewTransactionID() string {
	return fmt.Sprintf("TXN-%s-%s", time.Now().UTC().Format("20060102150405"), uuid.New().String()[:8])
}

// LedgerEntry is one immutable record in the stock transaction ledger.
// Entries are created once and never mutated or deleted; the ledger for an
// item replays to its current quantity, and the most recent entry's
// NewQuantity always equals the item's QuantityOnHand.
type LedgerEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	ItemID        string             `bson:"itemId" json:"itemId"`
	Type          TransactionType    `bson:"transactionType" json:"transactionType"`

	// Delta is the signed quantity applied; NewQuantity - PreviousQuantity
	// always equals Delta.
	Delta            int `bson:"delta" json:"delta"`
	PreviousQuantity int `bson:"previousQuantity" json:"previousQuantity"`
	NewQuantity      int `bson:"newQuantity" json:"newQuantity"`

	// UnitPrice and TotalValue are in cents; nil when the price is unknown.
	UnitPrice  *int64 `bson:"unitPrice,omitempty" json:"unitPrice,omitempty"`
	TotalValue *int64 `bson:"totalValue,omitempty" json:"totalValue,omitempty"`

	ReferenceNumber string    `bson:"referenceNumber,omitempty" json:"referenceNumber,omitempty"`
	ReferenceType   string    `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Actor           string    `bson:"actor" json:"actor"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// NewLedgerEntry builds a ledger entry from a consistent read of the counter.
// NewQuantity is derived from previous+delta so the per-entry invariant holds
// by construction. TotalValue is unitPrice x |delta| when the price is known.
func NewLedgerEntry(itemID string, typ TransactionType, delta, previousQuantity int, unitPrice *int64, referenceNumber, referenceType, notes, actor string) (*LedgerEntry, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, typ)
	}

	entry := &LedgerEntry{
		TransactionID:    NewTransactionID(),
		ItemID:           itemID,
		Type:             typ,
		Delta:            delta,
		PreviousQuantity: previousQuantity,
		NewQuantity:      previousQuantity + delta,
		ReferenceNumber:  referenceNumber,
		ReferenceType:    referenceType,
		Notes:            notes,
		Actor:            actor,
		CreatedAt:        time.Now().UTC(),
	}

	if unitPrice != nil {
		price := *unitPrice
		abs := int64(delta)
		if abs < 0 {
			abs = -abs
		}
		total := price * abs
		entry.UnitPrice = &price
		entry.TotalValue = &total
	}

	return entry, nil
}
