package domain

import "context"

// StockUpdate describes a CAS write of the item counter. ExpectedVersion is
// the version observed by the read that computed NewQuantity; the write must
// fail with ErrVersionConflict if the stored version has moved on.
type StockUpdate struct {
	ItemID          string
	ExpectedVersion int64
	NewQuantity     int
	TouchRestock    bool
	TouchStockCheck bool
}

// ItemRepository persists item stock records.
type ItemRepository interface {
	Insert(ctx context.Context, item *ItemStockRecord) error
	FindByItemID(ctx context.Context, itemID string) (*ItemStockRecord, error)

	// ApplyMutation persists the new counter value and appends the ledger
	// entry as one atomic unit: both happen or neither does. A stale
	// ExpectedVersion fails with ErrVersionConflict and writes nothing.
	ApplyMutation(ctx context.Context, update StockUpdate, entry *LedgerEntry) error

	Delete(ctx context.Context, itemID string) error

	FindLowStock(ctx context.Context) ([]*ItemStockRecord, error)
	FindOutOfStock(ctx context.Context) ([]*ItemStockRecord, error)
	FindOverstock(ctx context.Context) ([]*ItemStockRecord, error)
	FindAll(ctx context.Context, limit, offset int) ([]*ItemStockRecord, error)

	CountItems(ctx context.Context) (int64, error)
	TotalInventoryValue(ctx context.Context) (int64, error)
}

// LedgerRepository reads the append-only transaction ledger. Entries are only
// ever written through ItemRepository.ApplyMutation.
type LedgerRepository interface {
	FindByItemID(ctx context.Context, itemID string) ([]*LedgerEntry, error)
	FindRecent(ctx context.Context, limit int) ([]*LedgerEntry, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*LedgerEntry, error)
}

// AdjustmentRepository persists the append-only adjustment log.
type AdjustmentRepository interface {
	Append(ctx context.Context, adjustment *AdjustmentRecord) error
	FindByItemID(ctx context.Context, itemID string) ([]*AdjustmentRecord, error)
}

// AlertRepository persists stock-health alerts.
type AlertRepository interface {
	// CreateIfAbsent inserts the alert unless an unresolved alert of the
	// same type already exists for the item. The check and insert are atomic
	// with respect to concurrent callers. Returns false when suppressed.
	CreateIfAbsent(ctx context.Context, alert *Alert) (bool, error)

	// Resolve marks an alert resolved. Returns nil when the alert does not
	// exist or is already resolved (the operation is an idempotent no-op).
	Resolve(ctx context.Context, alertID, resolvedBy string) (*Alert, error)

	FindActive(ctx context.Context) ([]*Alert, error)
	FindActiveByItemID(ctx context.Context, itemID string) ([]*Alert, error)
	CountActive(ctx context.Context) (int64, error)
}
