package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Almishev/pos-shop/internal/domain"
	apperrors "github.com/Almishev/pos-shop/pkg/errors"
)

func newTestStockService(items *fakeItemRepo) (*StockService, *fakeAdjustmentRepo, *fakeKeyStore, *fakeEvaluator, *fakePublisher) {
	adjustments := &fakeAdjustmentRepo{}
	keys := newFakeKeyStore()
	evaluator := &fakeEvaluator{}
	publisher := &fakePublisher{}
	svc := NewStockService(items, adjustments, keys, evaluator, publisher, testLogger(), nil)
	return svc, adjustments, keys, evaluator, publisher
}

func seedItem(items *fakeItemRepo, itemID string, quantity int) *domain.ItemStockRecord {
	item := domain.NewItemStockRecord(itemID, "Test Item "+itemID, "")
	item.QuantityOnHand = quantity
	items.put(item)
	return item
}

func TestAddStock(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, evaluator, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	result, err := svc.AddStock(context.Background(), StockCommand{
		ItemID:   "ITM-001",
		Quantity: 25,
		Actor:    "receiver",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.PreviousQuantity)
	assert.Equal(t, 35, result.NewQuantity)
	assert.Equal(t, 35, items.quantity("ITM-001"))

	entries := items.entries("ITM-001")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TransactionPurchase, entries[0].Type)
	assert.Equal(t, 25, entries[0].Delta)
	assert.Equal(t, "receiver", entries[0].Actor)
	assert.Equal(t, 1, evaluator.count())
}

func TestAddStockRejectsNonPositiveQuantity(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	for _, q := range []int{0, -5} {
		_, err := svc.AddStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: q})
		require.Error(t, err)
		appErr := apperrors.AsAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	}
	assert.Empty(t, items.entries("ITM-001"))
}

func TestRemoveStockCanGoNegative(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 3)

	result, err := svc.RemoveStock(context.Background(), StockCommand{
		ItemID:   "ITM-001",
		Quantity: 10,
		Actor:    "pos",
	})
	require.NoError(t, err)

	assert.Equal(t, -7, result.NewQuantity)
	assert.Equal(t, -7, items.quantity("ITM-001"))

	entries := items.entries("ITM-001")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TransactionSale, entries[0].Type)
	assert.Equal(t, -10, entries[0].Delta)
}

func TestRemoveStockInvalidTypeWritesNothing(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	_, err := svc.RemoveStock(context.Background(), StockCommand{
		ItemID:          "ITM-001",
		Quantity:        1,
		TransactionType: "BOGUS",
	})
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Empty(t, items.entries("ITM-001"))
	assert.Equal(t, 10, items.quantity("ITM-001"))
}

func TestStockMutationUnknownItem(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)

	_, err := svc.AddStock(context.Background(), StockCommand{ItemID: "NOPE", Quantity: 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSetStockDerivesDelta(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 40)

	result, err := svc.SetStock(context.Background(), StockCommand{
		ItemID:   "ITM-001",
		Quantity: 25,
		Actor:    "counter",
	})
	require.NoError(t, err)

	assert.Equal(t, 40, result.PreviousQuantity)
	assert.Equal(t, 25, result.NewQuantity)

	entries := items.entries("ITM-001")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TransactionAdjustment, entries[0].Type)
	assert.Equal(t, -15, entries[0].Delta)
}

func TestSetStockZeroDeltaStillRecords(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 40)

	result, err := svc.SetStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, result.NewQuantity)

	entries := items.entries("ITM-001")
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Delta)
}

func TestSetStockRejectsNegativeTarget(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 5)

	_, err := svc.SetStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: -1})
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestAdjustStockWritesOneRecordAndOneEntry(t *testing.T) {
	items := newFakeItemRepo()
	svc, adjustments, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 20)

	result, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		ItemID:         "ITM-001",
		AdjustmentType: "DAMAGE",
		Quantity:       -4,
		Reason:         "dropped pallet",
		Notes:          "two boxes crushed",
		Actor:          "warehouse-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 16, result.NewQuantity)

	records, err := adjustments.FindByItemID(context.Background(), "ITM-001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.AdjustmentDamage, records[0].Type)
	assert.Equal(t, -4, records[0].Quantity)
	assert.Equal(t, "dropped pallet", records[0].Reason)

	// The ledger entry links back to the adjustment that caused it.
	entries := items.entries("ITM-001")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TransactionAdjustment, entries[0].Type)
	assert.Equal(t, records[0].AdjustmentID, entries[0].ReferenceNumber)
	assert.Equal(t, "ADJUSTMENT", entries[0].ReferenceType)
	assert.Equal(t, "two boxes crushed", entries[0].Notes)
}

func TestAdjustStockAppendFailureWritesNoLedgerEntry(t *testing.T) {
	items := newFakeItemRepo()
	svc, adjustments, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 20)
	adjustments.appendErr = errBoom

	_, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		ItemID:         "ITM-001",
		AdjustmentType: "DAMAGE",
		Quantity:       -4,
		Reason:         "dropped pallet",
	})
	require.Error(t, err)
	assert.Equal(t, 20, items.quantity("ITM-001"))
	assert.Empty(t, items.entries("ITM-001"))
}

func TestAdjustStockIdempotentReplayWritesOneRecord(t *testing.T) {
	items := newFakeItemRepo()
	svc, adjustments, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 20)

	cmd := AdjustStockCommand{
		ItemID:         "ITM-001",
		AdjustmentType: "COUNT_CORRECTION",
		Quantity:       3,
		Reason:         "cycle count",
		IdempotencyKey: "adj-1",
	}

	first, err := svc.AdjustStock(context.Background(), cmd)
	require.NoError(t, err)
	second, err := svc.AdjustStock(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	records, err := adjustments.FindByItemID(context.Background(), "ITM-001")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Len(t, items.entries("ITM-001"), 1)
}

func TestAdjustStockInvalidTypeWritesNothing(t *testing.T) {
	items := newFakeItemRepo()
	svc, adjustments, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 20)

	_, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		ItemID:         "ITM-001",
		AdjustmentType: "SHRINKAGE",
		Quantity:       -1,
		Reason:         "x",
	})
	require.Error(t, err)
	assert.Empty(t, items.entries("ITM-001"))
	assert.Empty(t, adjustments.records)
	assert.Equal(t, 20, items.quantity("ITM-001"))
}

func TestAdjustStockRejectsZeroQuantity(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 20)

	_, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		ItemID:         "ITM-001",
		AdjustmentType: "OTHER",
		Quantity:       0,
		Reason:         "x",
	})
	require.Error(t, err)
}

func TestMutationTimestamps(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	ctx := context.Background()
	seedItem(items, "ITM-001", 50)

	_, err := svc.AddStock(ctx, StockCommand{ItemID: "ITM-001", Quantity: 10, Actor: "receiver"})
	require.NoError(t, err)
	snap := items.snapshot("ITM-001")
	assert.NotNil(t, snap.LastRestockAt)
	assert.Nil(t, snap.LastStockCheckAt)

	_, err = svc.RemoveStock(ctx, StockCommand{ItemID: "ITM-001", Quantity: 5, Actor: "pos"})
	require.NoError(t, err)
	assert.NotNil(t, items.snapshot("ITM-001").LastStockCheckAt)

	items2 := newFakeItemRepo()
	svc2, _, _, _, _ := newTestStockService(items2)
	seedItem(items2, "ITM-002", 50)

	_, err = svc2.AdjustStock(ctx, AdjustStockCommand{
		ItemID:         "ITM-002",
		AdjustmentType: "LOSS",
		Quantity:       -1,
		Reason:         "missing",
	})
	require.NoError(t, err)
	assert.NotNil(t, items2.snapshot("ITM-002").LastStockCheckAt)

	_, err = svc2.SetStock(ctx, StockCommand{ItemID: "ITM-002", Quantity: 49})
	require.NoError(t, err)
	assert.NotNil(t, items2.snapshot("ITM-002").LastStockCheckAt)
}

func TestConcurrentRemovalsSerialize(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 100)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RemoveStock(context.Background(), StockCommand{
				ItemID:   "ITM-001",
				Quantity: 2,
				Actor:    "pos",
			})
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
		} else {
			// Only retry exhaustion is acceptable under contention.
			appErr := apperrors.AsAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.CodeConflictRetry, appErr.Code)
		}
	}

	entries := items.entries("ITM-001")
	assert.Len(t, entries, committed)
	assert.Equal(t, 100-2*committed, items.quantity("ITM-001"))

	// Each committed entry chains from the previous counter value.
	replayed := 0
	for _, e := range entries {
		replayed += e.Delta
	}
	assert.Equal(t, items.quantity("ITM-001"), 100+replayed)
}

func TestMutationRetryExhaustion(t *testing.T) {
	items := newFakeItemRepo()
	items.forceConflicts = true
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	_, err := svc.AddStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: 1})
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConflictRetry, appErr.Code)
}

func TestIdempotentReplay(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	cmd := StockCommand{
		ItemID:         "ITM-001",
		Quantity:       5,
		Actor:          "pos",
		IdempotencyKey: "req-42",
	}

	first, err := svc.RemoveStock(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.RemoveStock(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.NewQuantity, second.NewQuantity)

	assert.Len(t, items.entries("ITM-001"), 1)
	assert.Equal(t, 5, items.quantity("ITM-001"))
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)
	items.applyErr = errBoom

	cmd := StockCommand{ItemID: "ITM-001", Quantity: 1, IdempotencyKey: "req-1"}
	_, err := svc.AddStock(context.Background(), cmd)
	require.Error(t, err)

	// After the failed attempt the key is free again and the retry commits.
	items.applyErr = nil
	result, err := svc.AddStock(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, 11, result.NewQuantity)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, publisher := newTestStockService(items)
	publisher.err = errBoom
	seedItem(items, "ITM-001", 10)

	result, err := svc.AddStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 15, result.NewQuantity)
}

func TestMutationPublishesStockMutatedEvent(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, publisher := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	_, err := svc.RemoveStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: 2})
	require.NoError(t, err)

	counts := publisher.typeCounts()
	assert.Equal(t, 1, counts["pos.inventory.stock-mutated"])
}

func TestProcessSaleAndPurchase(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	price := int64(499)
	_, err := svc.ProcessSale(context.Background(), SaleCommand{
		ItemID:      "ITM-001",
		Quantity:    3,
		UnitPrice:   &price,
		OrderNumber: "ORD-1001",
		Actor:       "pos",
	})
	require.NoError(t, err)

	_, err = svc.ProcessPurchase(context.Background(), PurchaseCommand{
		ItemID:         "ITM-001",
		Quantity:       24,
		PurchaseNumber: "PO-77",
		Actor:          "receiver",
	})
	require.NoError(t, err)

	assert.Equal(t, 31, items.quantity("ITM-001"))

	entries := items.entries("ITM-001")
	require.Len(t, entries, 2)
	assert.Equal(t, domain.TransactionSale, entries[0].Type)
	assert.Equal(t, "ORD-1001", entries[0].ReferenceNumber)
	require.NotNil(t, entries[0].TotalValue)
	assert.Equal(t, int64(1497), *entries[0].TotalValue)
	assert.Equal(t, domain.TransactionPurchase, entries[1].Type)
	assert.Equal(t, "PO-77", entries[1].ReferenceNumber)
}

func TestCreateItem(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)

	reorder := 5
	view, err := svc.CreateItem(context.Background(), CreateItemCommand{
		ItemID:       "ITM-001",
		Name:         "Espresso Beans",
		ReorderPoint: &reorder,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, view.QuantityOnHand)
	assert.Equal(t, 5, view.ReorderPoint)
	assert.Equal(t, string(domain.StatusOutOfStock), view.Status)

	_, err = svc.CreateItem(context.Background(), CreateItemCommand{ItemID: "ITM-001", Name: "Dup"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestDeleteItemKeepsLedger(t *testing.T) {
	items := newFakeItemRepo()
	svc, _, _, _, _ := newTestStockService(items)
	seedItem(items, "ITM-001", 10)

	_, err := svc.AddStock(context.Background(), StockCommand{ItemID: "ITM-001", Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(context.Background(), "ITM-001"))
	assert.True(t, apperrors.IsNotFound(svc.DeleteItem(context.Background(), "ITM-001")))
	assert.Len(t, items.entries("ITM-001"), 1)
}
