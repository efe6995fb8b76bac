package domain

import "errors"

// Domain errors
var (
	// ErrItemNotFound is returned when an item id is unknown.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemAlreadyExists is returned when cataloguing a duplicate item id.
	ErrItemAlreadyExists = errors.New("item already exists")

	// ErrTransactionNotFound is returned when a transaction id is unknown.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidQuantity is returned for a non-positive quantity where a
	// positive one is required.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidTransactionType is returned for an unknown transaction type.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidAdjustmentType is returned for an unknown adjustment type.
	ErrInvalidAdjustmentType = errors.New("invalid adjustment type")

	// ErrVersionConflict is returned when a stock mutation lost the per-item
	// race: another writer committed first and the read is stale. Callers
	// retry the read-compute-write sequence.
	ErrVersionConflict = errors.New("stock version conflict")

	// ErrMutationInProgress is returned when an idempotency key is claimed
	// by a concurrent in-flight mutation.
	ErrMutationInProgress = errors.New("mutation with this idempotency key is in progress")
)
