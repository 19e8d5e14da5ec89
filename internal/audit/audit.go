package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event names recorded by the engine.
const (
	EventOrderCreated = "order_created"
	EventAdminAction  = "admin_action"
	EventDelivery     = "delivery"
	EventSecurity     = "security"
)

// Event is one append-only audit record.
type Event struct {
	ID         string         `json:"event_id"`
	Event      string         `json:"event"`
	CustomerID string         `json:"customer_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Sink receives audit events. Implementations must treat events as
// append-only history.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// New stamps an event with a fresh id and the current time.
func New(event, customerID string, meta map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Event:      event,
		CustomerID: customerID,
		OccurredAt: time.Now().UTC(),
		Metadata:   meta,
	}
}
