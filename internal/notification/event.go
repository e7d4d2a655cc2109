package notification

import (
	"context"
	"time"
)

const EventTypeNewOrder = "new_order"

// Event is pushed to every connected admin session.
type Event struct {
	Type        string    `json:"type"`
	EventID     string    `json:"event_id"`
	Message     string    `json:"message"`
	OrderID     string    `json:"order_id"`
	User        string    `json:"user"`
	Customer    string    `json:"customer"`
	SKU         string    `json:"sku"`
	TotalAmount string    `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// Notifier fans events out to administrators.
type Notifier interface {
	BroadcastToAdmins(ctx context.Context, event Event) error
}
