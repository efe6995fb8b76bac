package application

// CreateItemCommand catalogues a new item for stock tracking.
type CreateItemCommand struct {
	ItemID        string
	Name          string
	Barcode       string
	MinStockLevel *int
	MaxStockLevel *int
	ReorderPoint  *int
	UnitOfMeasure string
	SupplierName  string
	SupplierCode  string
	CostPrice     *int64
}

// StockCommand is the shared shape of the four stock mutations. Quantity is
// always positive; the operation determines the sign of the applied delta,
// except SetStock where Quantity is the absolute target.
type StockCommand struct {
	ItemID          string
	Quantity        int
	TransactionType string
	UnitPrice       *int64
	ReferenceNumber string
	ReferenceType   string
	Notes           string
	Actor           string
	IdempotencyKey  string
}

// AdjustStockCommand applies a signed manual correction.
type AdjustStockCommand struct {
	ItemID         string
	AdjustmentType string
	Quantity       int
	Reason         string
	Notes          string
	Actor          string
	IdempotencyKey string
}

// SaleCommand records a completed POS sale line.
type SaleCommand struct {
	ItemID         string
	Quantity       int
	UnitPrice      *int64
	OrderNumber    string
	Actor          string
	IdempotencyKey string
}

// PurchaseCommand records a received purchase delivery line.
type PurchaseCommand struct {
	ItemID         string
	Quantity       int
	UnitPrice      *int64
	PurchaseNumber string
	Actor          string
	IdempotencyKey string
}
