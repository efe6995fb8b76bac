package application

import (
	"time"

	"github.com/Almishev/pos-shop/internal/domain"
)

// MutationResult is the outcome of a committed (or replayed) stock mutation.
type MutationResult struct {
	TransactionID    string `json:"transactionId"`
	ItemID           string `json:"itemId"`
	PreviousQuantity int    `json:"previousQuantity"`
	NewQuantity      int    `json:"newQuantity"`
	Replayed         bool   `json:"replayed,omitempty"`
}

// ItemStockView is the read model for one item's stock position.
type ItemStockView struct {
	ItemID                   string     `json:"itemId"`
	Name                     string     `json:"name"`
	Barcode                  string     `json:"barcode,omitempty"`
	QuantityOnHand           int        `json:"quantityOnHand"`
	MinStockLevel            int        `json:"minStockLevel"`
	MaxStockLevel            int        `json:"maxStockLevel"`
	ReorderPoint             int        `json:"reorderPoint"`
	UnitOfMeasure            string     `json:"unitOfMeasure"`
	SupplierName             string     `json:"supplierName,omitempty"`
	SupplierCode             string     `json:"supplierCode,omitempty"`
	CostPrice                int64      `json:"costPrice"`
	Status                   string     `json:"status"`
	NeedsReorder             bool       `json:"needsReorder"`
	SuggestedReorderQuantity int        `json:"suggestedReorderQuantity"`
	InventoryValue           int64      `json:"inventoryValue"`
	LastRestockAt            *time.Time `json:"lastRestockAt,omitempty"`
	LastStockCheckAt         *time.Time `json:"lastStockCheckAt,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// NewItemStockView projects a stock record into its read model.
func NewItemStockView(item *domain.ItemStockRecord) *ItemStockView {
	return &ItemStockView{
		ItemID:                   item.ItemID,
		Name:                     item.Name,
		Barcode:                  item.Barcode,
		QuantityOnHand:           item.QuantityOnHand,
		MinStockLevel:            item.MinStockLevel,
		MaxStockLevel:            item.MaxStockLevel,
		ReorderPoint:             item.ReorderPoint,
		UnitOfMeasure:            item.UnitOfMeasure,
		SupplierName:             item.SupplierName,
		SupplierCode:             item.SupplierCode,
		CostPrice:                item.CostPrice,
		Status:                   string(item.Status()),
		NeedsReorder:             item.NeedsReorder(),
		SuggestedReorderQuantity: item.SuggestedReorderQuantity(),
		InventoryValue:           item.InventoryValue(),
		LastRestockAt:            item.LastRestockAt,
		LastStockCheckAt:         item.LastStockCheckAt,
		CreatedAt:                item.CreatedAt,
		UpdatedAt:                item.UpdatedAt,
	}
}

// NewItemStockViews projects a slice of stock records.
func NewItemStockViews(items []*domain.ItemStockRecord) []*ItemStockView {
	views := make([]*ItemStockView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemStockView(item))
	}
	return views
}

// InventorySummary is the dashboard aggregate: counts, total value, and the
// attention lists themselves.
type InventorySummary struct {
	TotalItems          int64                 `json:"totalItems"`
	LowStockCount       int64                 `json:"lowStockCount"`
	OutOfStockCount     int64                 `json:"outOfStockCount"`
	OverstockCount      int64                 `json:"overstockCount"`
	ActiveAlerts        int64                 `json:"activeAlerts"`
	TotalInventoryValue int64                 `json:"totalInventoryValue"`
	LowStockItems       []*ItemStockView      `json:"lowStockItems"`
	OutOfStockItems     []*ItemStockView      `json:"outOfStockItems"`
	OverstockItems      []*ItemStockView      `json:"overstockItems"`
	RecentTransactions  []*domain.LedgerEntry `json:"recentTransactions"`
	GeneratedAt         time.Time             `json:"generatedAt"`
}

// ItemHistory bundles an item's ledger and adjustment trail.
type ItemHistory struct {
	ItemID       string                     `json:"itemId"`
	Transactions []*domain.LedgerEntry      `json:"transactions"`
	Adjustments  []*domain.AdjustmentRecord `json:"adjustments"`
}
