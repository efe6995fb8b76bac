package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockStatus classifies an item's current stock level against its policy.
type StockStatus string

const (
	StatusNormal     StockStatus = "NORMAL"
	StatusLowStock   StockStatus = "LOW_STOCK"
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StatusOverstock  StockStatus = "OVERSTOCK"
)

// Stocking policy defaults applied when an item is catalogued.
const (
	DefaultMinStockLevel = 0
	DefaultMaxStockLevel = 1000
	DefaultReorderPoint  = 10
	DefaultUnitOfMeasure = "pcs"
)

// ItemStockRecord is the authoritative stock counter for one sellable item.
// The counter may go negative: a negative quantity signals a reconciliation
// problem and is logged as a warning, never rejected. Version is the
// optimistic concurrency token; every mutation must CAS on it.
type ItemStockRecord struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ItemID  string             `bson:"itemId" json:"itemId"`
	Name    string             `bson:"name" json:"name"`
	Barcode string             `bson:"barcode,omitempty" json:"barcode,omitempty"`

	QuantityOnHand int `bson:"quantityOnHand" json:"quantityOnHand"`

	MinStockLevel int `bson:"minStockLevel" json:"minStockLevel"`
	MaxStockLevel int `bson:"maxStockLevel" json:"maxStockLevel"`
	ReorderPoint  int `bson:"reorderPoint" json:"reorderPoint"`

	UnitOfMeasure string `bson:"unitOfMeasure" json:"unitOfMeasure"`
	SupplierName  string `bson:"supplierName,omitempty" json:"supplierName,omitempty"`
	SupplierCode  string `bson:"supplierCode,omitempty" json:"supplierCode,omitempty"`

	// CostPrice is stored in smallest currency unit (cents) to avoid
	// floating point issues.
	CostPrice int64 `bson:"costPrice" json:"costPrice"`

	Version int64 `bson:"version" json:"-"`

	LastRestockAt    *time.Time `bson:"lastRestockAt,omitempty" json:"lastRestockAt,omitempty"`
	LastStockCheckAt *time.Time `bson:"lastStockCheckAt,omitempty" json:"lastStockCheckAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewItemStockRecord creates a stock record for a newly catalogued item
// with the stock fields defaulted.
func NewItemStockRecord(itemID, name, barcode string) *ItemStockRecord {
	now := time.Now().UTC()
	return &ItemStockRecord{
		ItemID:         itemID,
		Name:           name,
		Barcode:        barcode,
		QuantityOnHand: 0,
		MinStockLevel:  DefaultMinStockLevel,
		MaxStockLevel:  DefaultMaxStockLevel,
		ReorderPoint:   DefaultReorderPoint,
		UnitOfMeasure:  DefaultUnitOfMeasure,
		Version:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Status classifies the current quantity. Out-of-stock wins over low stock,
// low stock wins over overstock.
func (i *ItemStockRecord) Status() StockStatus {
	switch {
	case i.QuantityOnHand <= 0:
		return StatusOutOfStock
	case i.QuantityOnHand <= i.ReorderPoint:
		return StatusLowStock
	case i.QuantityOnHand > i.MaxStockLevel:
		return StatusOverstock
	default:
		return StatusNormal
	}
}

// NeedsReorder reports whether the quantity has fallen to the reorder point.
func (i *ItemStockRecord) NeedsReorder() bool {
	return i.QuantityOnHand <= i.ReorderPoint
}

// SuggestedReorderQuantity is the quantity needed to bring the item back to
// its maximum stocking level, or zero when no reorder is needed.
func (i *ItemStockRecord) SuggestedReorderQuantity() int {
	if !i.NeedsReorder() {
		return 0
	}
	return i.MaxStockLevel - i.QuantityOnHand
}

// InventoryValue is quantity x cost price in cents. Items with non-positive
// quantity contribute nothing.
func (i *ItemStockRecord) InventoryValue() int64 {
	if i.QuantityOnHand <= 0 {
		return 0
	}
	return int64(i.QuantityOnHand) * i.CostPrice
}
