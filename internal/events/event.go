package events

import (
	"context"
	"time"
)

type Type string

const (
	OrderCreated      Type = "order.created"
	OrderCancelled    Type = "order.cancelled"
	OrderEdited       Type = "order.edited"
	OrderItemsUpdated Type = "order.items_updated"
)

type Event struct {
	Type       Type      `json:"type"`
	OrderID    string    `json:"order_id"`
	ActorID    string    `json:"actor_id"`
	Status     string    `json:"status,omitempty"`
	ItemIDs    []string  `json:"item_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
