package domain

import "time"

// DomainEvent is implemented by all inventory domain events.
type DomainEvent interface {
	EventType() string
}

// StockMutatedEvent is emitted after a stock mutation commits.
type StockMutatedEvent struct {
	ItemID           string          `json:"itemId"`
	TransactionID    string          `json:"transactionId"`
	Type             TransactionType `json:"transactionType"`
	Delta            int             `json:"delta"`
	PreviousQuantity int             `json:"previousQuantity"`
	NewQuantity      int             `json:"newQuantity"`
	ReferenceNumber  string          `json:"referenceNumber,omitempty"`
	Actor            string          `json:"actor"`
	OccurredAt       time.Time       `json:"occurredAt"`
}

func (e *StockMutatedEvent) EventType() string {
	return "pos.inventory.stock-mutated"
}

// ItemCreatedEvent is emitted when an item is catalogued for tracking.
type ItemCreatedEvent struct {
	ItemID       string    `json:"itemId"`
	Name         string    `json:"name"`
	ReorderPoint int       `json:"reorderPoint"`
	MaxStock     int       `json:"maxStockLevel"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e *ItemCreatedEvent) EventType() string {
	return "pos.inventory.item-created"
}

// ItemDeletedEvent is emitted when an item's counter is removed.
type ItemDeletedEvent struct {
	ItemID    string    `json:"itemId"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (e *ItemDeletedEvent) EventType() string {
	return "pos.inventory.item-deleted"
}

// AlertRaisedEvent is emitted when a new stock-health alert is created.
type AlertRaisedEvent struct {
	AlertID           string    `json:"alertId"`
	ItemID            string    `json:"itemId"`
	Type              AlertType `json:"alertType"`
	CurrentQuantity   int       `json:"currentQuantity"`
	ThresholdQuantity int       `json:"thresholdQuantity"`
	RaisedAt          time.Time `json:"raisedAt"`
}

func (e *AlertRaisedEvent) EventType() string {
	return "pos.inventory.alert-raised"
}

// AlertResolvedEvent is emitted when an operator resolves an alert.
type AlertResolvedEvent struct {
	AlertID    string    `json:"alertId"`
	ItemID     string    `json:"itemId"`
	Type       AlertType `json:"alertType"`
	ResolvedBy string    `json:"resolvedBy"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

func (e *AlertResolvedEvent) EventType() string {
	return "pos.inventory.alert-resolved"
}
