package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreated      Action = "created"
	ActionCancelled    Action = "cancelled"
	ActionEdited       Action = "edited"
	ActionItemsUpdated Action = "items_updated"
)

// Entry is one append-only record of a mutation applied to an order.
type Entry struct {
	ID        string                 `bson:"_id,omitempty" json:"id"`
	OrderID   string                 `bson:"order_id" json:"orderId"`
	Action    Action                 `bson:"action" json:"action"`
	ActorID   string                 `bson:"actor_id" json:"actorId"`
	ActorRole string                 `bson:"actor_role" json:"actorRole"`
	Data      map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"createdAt"`
}

type Log interface {
	Record(ctx context.Context, e Entry) error
	ListByOrder(ctx context.Context, orderID string, limit int64) ([]Entry, error)
}

// Nop discards writes and reports an empty history.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) ListByOrder(context.Context, string, int64) ([]Entry, error) {
	return []Entry{}, nil
}
