package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the CloudEvents specification version used
const SpecVersion = "1.0"

// Event types emitted by the inventory service
const (
	EventStockMutated  = "pos.inventory.stock-mutated"
	EventItemCreated   = "pos.inventory.item-created"
	EventItemDeleted   = "pos.inventory.item-deleted"
	EventAlertRaised   = "pos.inventory.alert-raised"
	EventAlertResolved = "pos.inventory.alert-resolved"
)

// Event is a CloudEvents 1.0 envelope with JSON data
type Event struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`

	// Extensions
	CorrelationID string `json:"correlationid,omitempty"`
}

// Factory builds CloudEvents with a fixed source
type Factory struct {
	source string
}

// NewFactory creates an event factory for the given source URI
func NewFactory(source string) *Factory {
	return &Factory{source: source}
}

// New builds an event of the given type around the payload.
// Subject identifies the affected resource, usually an item ID.
func (f *Factory) New(eventType, subject string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}

	return &Event{
		SpecVersion:     SpecVersion,
		ID:              uuid.NewString(),
		Source:          f.source,
		Type:            eventType,
		Subject:         subject,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}, nil
}

// WithCorrelationID sets the correlation ID extension
func (e *Event) WithCorrelationID(correlationID string) *Event {
	e.CorrelationID = correlationID
	return e
}

// Marshal serializes the event envelope
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
