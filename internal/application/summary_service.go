package application

import (
	"context"
	"time"

	"github.com/Almishev/pos-shop/internal/domain"
	"github.com/Almishev/pos-shop/pkg/logging"
)

const defaultRecentLimit = 10

// SummaryService is the read-side facade over items, ledger, adjustments
// and alerts.
type SummaryService struct {
	items       domain.ItemRepository
	ledger      domain.LedgerRepository
	adjustments domain.AdjustmentRepository
	alerts      domain.AlertRepository
	logger      *logging.Logger
}

// NewSummaryService wires a SummaryService.
func NewSummaryService(
	items domain.ItemRepository,
	ledger domain.LedgerRepository,
	adjustments domain.AdjustmentRepository,
	alerts domain.AlertRepository,
	logger *logging.Logger,
) *SummaryService {
	return &SummaryService{
		items:       items,
		ledger:      ledger,
		adjustments: adjustments,
		alerts:      alerts,
		logger:      logger.WithComponent("summary-service"),
	}
}

// ItemStock returns the stock position of one item.
func (s *SummaryService) ItemStock(ctx context.Context, itemID string) (*ItemStockView, error) {
	item, err := s.items.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return NewItemStockView(item), nil
}

// AllItems lists tracked items with paging.
func (s *SummaryService) AllItems(ctx context.Context, limit, offset int) ([]*ItemStockView, error) {
	items, err := s.items.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return NewItemStockViews(items), nil
}

// LowStockItems lists items at or below their reorder point.
func (s *SummaryService) LowStockItems(ctx context.Context) ([]*ItemStockView, error) {
	items, err := s.items.FindLowStock(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return NewItemStockViews(items), nil
}

// OutOfStockItems lists items at or below zero.
func (s *SummaryService) OutOfStockItems(ctx context.Context) ([]*ItemStockView, error) {
	items, err := s.items.FindOutOfStock(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return NewItemStockViews(items), nil
}

// OverstockItems lists items above their maximum stocking level.
func (s *SummaryService) OverstockItems(ctx context.Context) ([]*ItemStockView, error) {
	items, err := s.items.FindOverstock(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return NewItemStockViews(items), nil
}

// Summary builds the dashboard aggregate. Counts, value and recent activity
// come from independent reads; the snapshot is advisory, not transactional.
func (s *SummaryService) Summary(ctx context.Context) (*InventorySummary, error) {
	totalItems, err := s.items.CountItems(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	lowStock, err := s.items.FindLowStock(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	outOfStock, err := s.items.FindOutOfStock(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	overstock, err := s.items.FindOverstock(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	activeAlerts, err := s.alerts.CountActive(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	totalValue, err := s.items.TotalInventoryValue(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	recent, err := s.ledger.FindRecent(ctx, defaultRecentLimit)
	if err != nil {
		return nil, mapDomainError(err)
	}

	return &InventorySummary{
		TotalItems:          totalItems,
		LowStockCount:       int64(len(lowStock)),
		OutOfStockCount:     int64(len(outOfStock)),
		OverstockCount:      int64(len(overstock)),
		ActiveAlerts:        activeAlerts,
		TotalInventoryValue: totalValue,
		LowStockItems:       NewItemStockViews(lowStock),
		OutOfStockItems:     NewItemStockViews(outOfStock),
		OverstockItems:      NewItemStockViews(overstock),
		RecentTransactions:  recent,
		GeneratedAt:         time.Now().UTC(),
	}, nil
}

// RecentTransactions lists the newest ledger entries across all items.
func (s *SummaryService) RecentTransactions(ctx context.Context, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	entries, err := s.ledger.FindRecent(ctx, limit)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return entries, nil
}

// ItemHistory returns an item's full ledger and adjustment trail, newest
// first. History stays readable after the item itself is deleted.
func (s *SummaryService) ItemHistory(ctx context.Context, itemID string) (*ItemHistory, error) {
	transactions, err := s.ledger.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	adjustments, err := s.adjustments.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, mapDomainError(err)
	}

	return &ItemHistory{
		ItemID:       itemID,
		Transactions: transactions,
		Adjustments:  adjustments,
	}, nil
}
