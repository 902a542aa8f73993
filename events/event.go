package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ray-remotestate/delivery/models"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderClaimed       Type = "order.claimed"
	OrderDelivered     Type = "order.delivered"
	OrderCancelled     Type = "order.cancelled"
)

type Event struct {
	Type             Type               `json:"type"`
	OrderID          uuid.UUID          `json:"order_id"`
	BusinessID       uuid.UUID          `json:"business_id"`
	ClientID         uuid.UUID          `json:"client_id"`
	DeliveryPersonID *uuid.UUID         `json:"delivery_person_id,omitempty"`
	OldStatus        models.OrderStatus `json:"old_status,omitempty"`
	NewStatus        models.OrderStatus `json:"new_status"`
	At               time.Time          `json:"at"`
}

// ForOrder builds the event describing o having moved from old to its
// current status. The type follows from the new status.
func ForOrder(o models.Order, old models.OrderStatus) Event {
	t := OrderStatusChanged
	switch {
	case old == "":
		t = OrderCreated
	case o.Status == models.StatusCancelled:
		t = OrderCancelled
	case o.Status == models.StatusDelivered:
		t = OrderDelivered
	case old == models.StatusReady && o.Status == models.StatusDelivering:
		t = OrderClaimed
	}
	return Event{
		Type:             t,
		OrderID:          o.ID,
		BusinessID:       o.BusinessID,
		ClientID:         o.ClientID,
		DeliveryPersonID: o.DeliveryPersonID,
		OldStatus:        old,
		NewStatus:        o.Status,
		At:               time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi hands every event to each publisher and reports all failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var result error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
