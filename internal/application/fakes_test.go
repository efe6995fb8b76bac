package application

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Almishev/pos-shop/internal/domain"
	"github.com/Almishev/pos-shop/pkg/idempotency"
	"github.com/Almishev/pos-shop/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Output:      io.Discard,
	})
}

// fakeItemRepo is an in-memory ItemRepository with real CAS semantics: the
// version check and the ledger append happen under one lock, like the
// MongoDB transaction they stand in for.
type fakeItemRepo struct {
	mu     sync.Mutex
	items  map[string]*domain.ItemStockRecord
	ledger []*domain.LedgerEntry

	findErr  error
	applyErr error
	// forceConflicts makes every ApplyMutation fail with a version conflict
	forceConflicts bool
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*domain.ItemStockRecord)}
}

func (f *fakeItemRepo) put(item *domain.ItemStockRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ItemID] = item
}

func (f *fakeItemRepo) Insert(ctx context.Context, item *domain.ItemStockRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ItemID]; ok {
		return domain.ErrItemAlreadyExists
	}
	f.items[item.ItemID] = item
	return nil
}

func (f *fakeItemRepo) FindByItemID(ctx context.Context, itemID string) (*domain.ItemStockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	item, ok := f.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

func (f *fakeItemRepo) ApplyMutation(ctx context.Context, update domain.StockUpdate, entry *domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	if f.forceConflicts {
		return domain.ErrVersionConflict
	}
	item, ok := f.items[update.ItemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if item.Version != update.ExpectedVersion {
		return domain.ErrVersionConflict
	}
	now := time.Now().UTC()
	item.QuantityOnHand = update.NewQuantity
	item.Version++
	item.UpdatedAt = now
	if update.TouchRestock {
		item.LastRestockAt = &now
	}
	if update.TouchStockCheck {
		item.LastStockCheckAt = &now
	}
	f.ledger = append(f.ledger, entry)
	return nil
}

func (f *fakeItemRepo) Delete(ctx context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[itemID]; !ok {
		return domain.ErrItemNotFound
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeItemRepo) entries(itemID string) []*domain.LedgerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.LedgerEntry
	for _, e := range f.ledger {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeItemRepo) quantity(itemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[itemID].QuantityOnHand
}

func (f *fakeItemRepo) snapshot(itemID string) *domain.ItemStockRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *f.items[itemID]
	return &clone
}

func (f *fakeItemRepo) filtered(match func(*domain.ItemStockRecord) bool) []*domain.ItemStockRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ItemStockRecord
	for _, item := range f.items {
		if match(item) {
			clone := *item
			out = append(out, &clone)
		}
	}
	return out
}

func (f *fakeItemRepo) FindLowStock(ctx context.Context) ([]*domain.ItemStockRecord, error) {
	return f.filtered(func(i *domain.ItemStockRecord) bool {
		return i.QuantityOnHand > 0 && i.QuantityOnHand <= i.ReorderPoint
	}), nil
}

func (f *fakeItemRepo) FindOutOfStock(ctx context.Context) ([]*domain.ItemStockRecord, error) {
	return f.filtered(func(i *domain.ItemStockRecord) bool { return i.QuantityOnHand <= 0 }), nil
}

func (f *fakeItemRepo) FindOverstock(ctx context.Context) ([]*domain.ItemStockRecord, error) {
	return f.filtered(func(i *domain.ItemStockRecord) bool { return i.QuantityOnHand > i.MaxStockLevel }), nil
}

func (f *fakeItemRepo) FindAll(ctx context.Context, limit, offset int) ([]*domain.ItemStockRecord, error) {
	return f.filtered(func(*domain.ItemStockRecord) bool { return true }), nil
}

func (f *fakeItemRepo) CountItems(ctx context.Context) (int64, error) {
	return int64(len(f.filtered(func(*domain.ItemStockRecord) bool { return true }))), nil
}

func (f *fakeItemRepo) TotalInventoryValue(ctx context.Context) (int64, error) {
	var total int64
	for _, item := range f.filtered(func(*domain.ItemStockRecord) bool { return true }) {
		total += item.InventoryValue()
	}
	return total, nil
}

// fakeLedgerRepo serves reads over the entries recorded by fakeItemRepo.
type fakeLedgerRepo struct {
	items *fakeItemRepo
}

func (f *fakeLedgerRepo) FindByItemID(ctx context.Context, itemID string) ([]*domain.LedgerEntry, error) {
	entries := f.items.entries(itemID)
	// newest first
	out := make([]*domain.LedgerEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out, nil
}

func (f *fakeLedgerRepo) FindRecent(ctx context.Context, limit int) ([]*domain.LedgerEntry, error) {
	f.items.mu.Lock()
	all := append([]*domain.LedgerEntry(nil), f.items.ledger...)
	f.items.mu.Unlock()

	out := make([]*domain.LedgerEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (f *fakeLedgerRepo) FindByTransactionID(ctx context.Context, transactionID string) (*domain.LedgerEntry, error) {
	f.items.mu.Lock()
	defer f.items.mu.Unlock()
	for _, e := range f.items.ledger {
		if e.TransactionID == transactionID {
			return e, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

type fakeAdjustmentRepo struct {
	mu        sync.Mutex
	records   []*domain.AdjustmentRecord
	appendErr error
}

func (f *fakeAdjustmentRepo) Append(ctx context.Context, adjustment *domain.AdjustmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, adjustment)
	return nil
}

func (f *fakeAdjustmentRepo) FindByItemID(ctx context.Context, itemID string) ([]*domain.AdjustmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AdjustmentRecord
	for _, r := range f.records {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeKeyStore mirrors the MongoDB store's claim semantics in memory.
type fakeKeyStore struct {
	mu   sync.Mutex
	keys map[string]*idempotency.MutationKey
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]*idempotency.MutationKey)}
}

func storeKey(itemID, operation, key string) string {
	return itemID + "|" + operation + "|" + key
}

func (f *fakeKeyStore) Claim(ctx context.Context, itemID, operation, key string) (*idempotency.MutationKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := storeKey(itemID, operation, key)
	if existing, ok := f.keys[k]; ok {
		if existing.Status == idempotency.StatusCompleted {
			return existing, nil
		}
		return nil, idempotency.ErrDuplicateInProgress
	}
	f.keys[k] = &idempotency.MutationKey{
		ItemID:    itemID,
		Operation: operation,
		Key:       key,
		Status:    idempotency.StatusInProgress,
	}
	return nil, nil
}

func (f *fakeKeyStore) Complete(ctx context.Context, itemID, operation, key string, result idempotency.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := storeKey(itemID, operation, key)
	if stored, ok := f.keys[k]; ok {
		stored.Status = idempotency.StatusCompleted
		stored.Result = &result
	}
	return nil
}

func (f *fakeKeyStore) Release(ctx context.Context, itemID, operation, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, storeKey(itemID, operation, key))
	return nil
}

// fakeAlertRepo enforces the one-unresolved-per-type rule under a lock, the
// way the partial unique index does in MongoDB.
type fakeAlertRepo struct {
	mu        sync.Mutex
	alerts    []*domain.Alert
	createErr error
}

func (f *fakeAlertRepo) CreateIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	for _, a := range f.alerts {
		if !a.IsResolved && a.ItemID == alert.ItemID && a.Type == alert.Type {
			return false, nil
		}
	}
	f.alerts = append(f.alerts, alert)
	return true, nil
}

func (f *fakeAlertRepo) Resolve(ctx context.Context, alertID, resolvedBy string) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.AlertID == alertID && !a.IsResolved {
			a.Resolve(resolvedBy)
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertRepo) FindActive(ctx context.Context) ([]*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Alert
	for _, a := range f.alerts {
		if !a.IsResolved {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) FindActiveByItemID(ctx context.Context, itemID string) ([]*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Alert
	for _, a := range f.alerts {
		if !a.IsResolved && a.ItemID == itemID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) CountActive(ctx context.Context) (int64, error) {
	active, _ := f.FindActive(ctx)
	return int64(len(active)), nil
}

func (f *fakeAlertRepo) activeTypes(itemID string) map[domain.AlertType]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.AlertType]int)
	for _, a := range f.alerts {
		if !a.IsResolved && a.ItemID == itemID {
			out[a.Type]++
		}
	}
	return out
}

// fakeEvaluator records Evaluate calls.
type fakeEvaluator struct {
	mu    sync.Mutex
	calls []*domain.ItemStockRecord
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, item *domain.ItemStockRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, item)
}

func (f *fakeEvaluator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePublisher records published events and can simulate broker failure.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, event domain.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) typeCounts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, e := range f.events {
		out[e.EventType()]++
	}
	return out
}

var errBoom = fmt.Errorf("boom")
