package idempotency

import (
	"context"
	"errors"
	"time"
)

// Status of a claimed mutation key
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Sentinel errors returned by KeyStore implementations
var (
	// ErrDuplicateInProgress means another request holds the key and has
	// not finished yet
	ErrDuplicateInProgress = errors.New("idempotency: mutation in progress")
)

// DefaultTTL is how long completed keys are retained
const DefaultTTL = 24 * time.Hour

// MutationKey records one claimed idempotent mutation. Keys are scoped
// to an item and operation so the same client key can be reused across
// different operations.
type MutationKey struct {
	ItemID    string    `bson:"itemId" json:"itemId"`
	Operation string    `bson:"operation" json:"operation"`
	Key       string    `bson:"key" json:"key"`
	Status    Status    `bson:"status" json:"status"`
	Result    *Result   `bson:"result,omitempty" json:"result,omitempty"`
	ClaimedAt time.Time `bson:"claimedAt" json:"claimedAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// Result is the stored outcome of a completed mutation, replayed to
// duplicate requests
type Result struct {
	TransactionID    string `bson:"transactionId" json:"transactionId"`
	PreviousQuantity int    `bson:"previousQuantity" json:"previousQuantity"`
	NewQuantity      int    `bson:"newQuantity" json:"newQuantity"`
}

// KeyStore persists mutation keys
type KeyStore interface {
	// Claim atomically registers the key. It returns (nil, nil) when the
	// claim is fresh, the completed key when a stored result exists, and
	// ErrDuplicateInProgress when the key is held but unfinished.
	Claim(ctx context.Context, itemID, operation, key string) (*MutationKey, error)

	// Complete stores the result against a claimed key
	Complete(ctx context.Context, itemID, operation, key string, result Result) error

	// Release drops an in-progress claim after a failed mutation so the
	// client can retry with the same key
	Release(ctx context.Context, itemID, operation, key string) error
}
