package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// EventType names a change to the finance records.
type EventType string

const (
	EventIncomeSaved    EventType = "income.saved"
	EventExpenseCreated EventType = "expense.created"
	EventExpenseDeleted EventType = "expense.deleted"
)

// Event is published after a write commits. It carries the full record so
// consumers never need to read back from the store.
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Income    *core.Income  `json:"income,omitempty"`
	Expense   *core.Expense `json:"expense,omitempty"`
}

// NewIncomeSavedEvent creates an income.saved event
func NewIncomeSavedEvent(inc core.Income) Event {
	return Event{Type: EventIncomeSaved, Timestamp: time.Now().UTC(), Income: &inc}
}

// NewExpenseCreatedEvent creates an expense.created event
func NewExpenseCreatedEvent(e core.Expense) Event {
	return Event{Type: EventExpenseCreated, Timestamp: time.Now().UTC(), Expense: &e}
}

// NewExpenseDeletedEvent creates an expense.deleted event
func NewExpenseDeletedEvent(e core.Expense) Event {
	return Event{Type: EventExpenseDeleted, Timestamp: time.Now().UTC(), Expense: &e}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Validate checks that the payload matches the event type.
func (e Event) Validate() error {
	switch e.Type {
	case EventIncomeSaved:
		if e.Income == nil {
			return fmt.Errorf("%s event without income payload", e.Type)
		}
	case EventExpenseCreated, EventExpenseDeleted:
		if e.Expense == nil {
			return fmt.Errorf("%s event without expense payload", e.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// EventFromJSON decodes and validates an event
func EventFromJSON(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
