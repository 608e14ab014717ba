package amqp

import (
	"encoding/json"
	"time"
)

// EventType names a ledger change.
type EventType string

const (
	TransactionCreated  EventType = "transaction.created"
	TransactionReplaced EventType = "transaction.replaced"
	TransactionDeleted  EventType = "transaction.deleted"
	ImportCompleted     EventType = "import.completed"
)

// Event is a lightweight notification of a ledger change. Consumers fetch the
// full transaction from the store when they need it.
type Event struct {
	Type          EventType `json:"type"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Imported      int       `json:"imported,omitempty"`
	Ignored       int       `json:"ignored,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewEvent creates an event for a single transaction.
func NewEvent(t EventType, transactionID int64) *Event {
	return &Event{
		Type:          t,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// NewImportEvent creates an import.completed event.
func NewImportEvent(imported, ignored int) *Event {
	return &Event{
		Type:      ImportCompleted,
		Imported:  imported,
		Ignored:   ignored,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
