package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/cart"
	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/events"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/store"
)

type OrderService struct {
	gw        OrderGateway
	sessions  *store.Sessions
	carts     *cart.Store
	publisher events.Publisher
}

func NewOrderService(gw OrderGateway, sessions *store.Sessions, carts *cart.Store, publisher events.Publisher) *OrderService {
	return &OrderService{gw: gw, sessions: sessions, carts: carts, publisher: publisher}
}

// Checkout turns the client's stored cart into an order. Only the ordered
// items leave the cart, and the address is remembered, once the order was
// created.
func (s *OrderService) Checkout(ctx context.Context, clientID uuid.UUID, addr models.Address) (models.Order, error) {
	c := s.carts.Get(clientID)
	o, err := s.CreateOrder(ctx, clientID, c, addr)
	if err != nil {
		return models.Order{}, err
	}
	s.carts.ClearOrdered(clientID, c)
	s.carts.SaveLastAddress(clientID, addr)
	return o, nil
}

// CreateOrder prices the cart against the current catalog and stores a
// pending order. Nothing is sent to the gateway for an empty cart or a blank
// address.
func (s *OrderService) CreateOrder(ctx context.Context, clientID uuid.UUID, c models.Cart, addr models.Address) (models.Order, error) {
	if c.IsEmpty() {
		return models.Order{}, ErrEmptyCart
	}
	addr.Address = strings.TrimSpace(addr.Address)
	if addr.Address == "" {
		return models.Order{}, ErrAddressRequired
	}

	items, business, err := s.priceCart(ctx, c)
	if err != nil {
		return models.Order{}, err
	}

	o, err := s.gw.InsertOrder(ctx, models.Order{
		ClientID:        clientID,
		BusinessID:      business.ID,
		Items:           items,
		TotalPrice:      models.RoundCents(items.Subtotal() + business.DeliveryFee),
		DeliveryAddress: addr,
		Status:          models.StatusPending,
	})
	if err != nil {
		logrus.WithError(err).WithField("client_id", clientID).Error("failed to create order")
		return models.Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	s.sessions.Apply(clientID, store.OrderChanged(o))
	publish(ctx, s.publisher, events.ForOrder(o, ""))
	return o, nil
}

// priceCart re-reads every product and the business behind the cart and
// reports every problem it finds at once.
func (s *OrderService) priceCart(ctx context.Context, c models.Cart) (models.OrderItems, models.Business, error) {
	businessID := c.BusinessID()
	business, err := s.gw.GetBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, dbhelper.ErrNotFound) {
			return nil, business, fmt.Errorf("%w: business %s no longer exists", ErrInvalidCart, businessID)
		}
		return nil, business, err
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.gw.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, business, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var result error
	if !business.AcceptsOrders() {
		result = multierror.Append(result, fmt.Errorf("%s is not taking orders", business.Name))
	}
	items := make(models.OrderItems, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		switch {
		case it.BusinessID != businessID:
			result = multierror.Append(result, fmt.Errorf("%s belongs to another business", it.Name))
			continue
		case !ok:
			result = multierror.Append(result, fmt.Errorf("%s is no longer available", it.Name))
			continue
		case p.BusinessID != businessID:
			result = multierror.Append(result, fmt.Errorf("%s is not sold by %s", p.Name, business.Name))
			continue
		case it.Quantity <= 0:
			result = multierror.Append(result, fmt.Errorf("%s has quantity %d", p.Name, it.Quantity))
			continue
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     p.Image,
		})
	}
	if result != nil {
		return nil, business, fmt.Errorf("%w: %w", ErrInvalidCart, result)
	}
	return items, business, nil
}

// UpdateStatus moves an order along its lifecycle on behalf of actor.
// Businesses drive their own orders up to ready, clients may cancel their
// own order while it is still pending, and admins may make any legal move.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, to models.OrderStatus) (models.Order, error) {
	if !to.IsValid() {
		return models.Order{}, fmt.Errorf("%w: %w", ErrInvalidInput, models.ErrUnknownStatus)
	}
	guard := func(o models.Order) error { return canSetStatus(actor, o, to) }

	o, from, err := s.gw.TransitionOrder(ctx, orderID, to, actor.ID, guard)
	if err != nil {
		return models.Order{}, translate(err)
	}
	s.sessions.Apply(actor.ID, store.OrderChanged(o))
	publish(ctx, s.publisher, events.ForOrder(o, from))
	return o, nil
}

// canSetStatus never allows delivered here: completion has its own path
// that credits the delivery person.
func canSetStatus(actor Actor, o models.Order, to models.OrderStatus) error {
	if to == models.StatusDelivered {
		return ErrForbidden
	}
	if to == models.StatusDelivering && o.DeliveryPersonID == nil {
		return fmt.Errorf("%w: no delivery person assigned", models.ErrInvalidTransition)
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleBusiness:
		if o.BusinessID != actor.ID {
			return ErrForbidden
		}
		switch to {
		case models.StatusAccepted, models.StatusPreparing, models.StatusReady, models.StatusCancelled:
			return nil
		}
	case models.RoleClient:
		if o.ClientID != actor.ID {
			return ErrForbidden
		}
		if to == models.StatusCancelled && o.Status == models.StatusPending {
			return nil
		}
	}
	return ErrForbidden
}

func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (models.Order, error) {
	return s.UpdateStatus(ctx, actor, orderID, models.StatusCancelled)
}

// Claim assigns a ready order to the delivery person and moves it to
// delivering. Only one claim on an order can succeed.
func (s *OrderService) Claim(ctx context.Context, deliveryPersonID, orderID uuid.UUID) (models.Order, error) {
	dp, err := s.gw.GetDeliveryPerson(ctx, deliveryPersonID)
	if err != nil {
		return models.Order{}, translate(err)
	}
	if !dp.IsActive || !dp.IsOnline {
		return models.Order{}, ErrOffline
	}

	o, err := s.gw.ClaimOrder(ctx, orderID, deliveryPersonID)
	if err != nil {
		return models.Order{}, translate(err)
	}
	s.sessions.Apply(deliveryPersonID, store.OrderChanged(o))
	publish(ctx, s.publisher, events.ForOrder(o, models.StatusReady))
	return o, nil
}

// Complete marks the delivery person's order delivered and credits the
// commission in the same transaction.
func (s *OrderService) Complete(ctx context.Context, deliveryPersonID, orderID uuid.UUID) (models.Order, models.DeliveryPerson, error) {
	guard := func(o models.Order) error {
		if !o.AssignedTo(deliveryPersonID) {
			return ErrForbidden
		}
		return nil
	}
	o, dp, err := s.gw.CompleteDelivery(ctx, orderID, deliveryPersonID, guard)
	if err != nil {
		return models.Order{}, models.DeliveryPerson{}, translate(err)
	}
	s.sessions.Apply(deliveryPersonID, store.OrderChanged(o))
	s.sessions.Apply(deliveryPersonID, store.DeliveryPersonChanged(dp))
	publish(ctx, s.publisher, events.ForOrder(o, models.StatusDelivering))
	return o, dp, nil
}

// OrderPatch is an admin edit of an order. Nil fields are left alone.
type OrderPatch struct {
	Status           *models.OrderStatus
	DeliveryPersonID *uuid.UUID
	Unassign         bool
	TotalPrice       *float64
	DeliveryAddress  *models.Address
}

// AdminUpdate applies an admin edit. Assignment and field changes are made
// under the order's row lock. Unassigning a delivering order must send it
// back to ready in the same write, otherwise nobody could ever finish it.
// A status change then goes through the lifecycle rules, and
// delivering -> delivered credits the assigned delivery person exactly as a
// completion does.
func (s *OrderService) AdminUpdate(ctx context.Context, adminID, orderID uuid.UUID, patch OrderPatch) (models.Order, error) {
	fields := dbhelper.Fields{}
	if !patch.Unassign && patch.DeliveryPersonID != nil {
		if _, err := s.gw.GetDeliveryPerson(ctx, *patch.DeliveryPersonID); err != nil {
			return models.Order{}, translate(err)
		}
	}
	if patch.TotalPrice != nil {
		if *patch.TotalPrice < 0 {
			return models.Order{}, fmt.Errorf("%w: negative total", ErrInvalidInput)
		}
		fields["total_price"] = models.RoundCents(*patch.TotalPrice)
	}
	if patch.DeliveryAddress != nil {
		if strings.TrimSpace(patch.DeliveryAddress.Address) == "" {
			return models.Order{}, ErrAddressRequired
		}
		fields["delivery_address"] = *patch.DeliveryAddress
	}
	assigning := patch.Unassign || patch.DeliveryPersonID != nil
	if patch.Status == nil && len(fields) == 0 && !assigning {
		return models.Order{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	if assigning || len(fields) > 0 {
		o, from, err := s.gw.EditOrder(ctx, orderID, adminID, func(current models.Order) (dbhelper.Fields, error) {
			return patch.edit(current, fields)
		})
		if err != nil {
			return models.Order{}, translate(err)
		}
		s.sessions.Apply(adminID, store.OrderChanged(o))
		if o.Status != from {
			publish(ctx, s.publisher, events.ForOrder(o, from))
		}
		if patch.Status == nil || *patch.Status == o.Status {
			return o, nil
		}
	}

	if *patch.Status == models.StatusDelivered {
		return s.adminComplete(ctx, adminID, orderID)
	}
	return s.UpdateStatus(ctx, Actor{ID: adminID, Role: models.RoleAdmin}, orderID, *patch.Status)
}

// edit derives the locked write for the current row: the plain fields plus
// any assignment change.
func (p OrderPatch) edit(current models.Order, base dbhelper.Fields) (dbhelper.Fields, error) {
	fields := make(dbhelper.Fields, len(base)+2)
	for k, v := range base {
		fields[k] = v
	}
	if !p.Unassign && p.DeliveryPersonID == nil {
		return fields, nil
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", models.ErrInvalidTransition, current.Status)
	}
	if !p.Unassign {
		fields["delivery_person_id"] = p.DeliveryPersonID
		return fields, nil
	}
	if current.Status == models.StatusDelivering {
		if p.Status == nil || *p.Status != models.StatusReady {
			return nil, fmt.Errorf("%w: a delivering order can only be unassigned back to ready", models.ErrInvalidTransition)
		}
		fields["status"] = models.StatusReady
	}
	fields["delivery_person_id"] = (*uuid.UUID)(nil)
	return fields, nil
}

// adminComplete delivers the order for whoever holds it. The assignee is
// read first and checked again under the lock so a reassignment in between
// is not credited to the wrong person.
func (s *OrderService) adminComplete(ctx context.Context, adminID, orderID uuid.UUID) (models.Order, error) {
	current, err := s.gw.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, translate(err)
	}
	if current.DeliveryPersonID == nil {
		return models.Order{}, fmt.Errorf("%w: order has no delivery person", models.ErrInvalidTransition)
	}
	dpID := *current.DeliveryPersonID
	guard := func(o models.Order) error {
		if !o.AssignedTo(dpID) {
			return ErrOrderChanged
		}
		return nil
	}
	done, dp, err := s.gw.CompleteDelivery(ctx, orderID, dpID, guard)
	if err != nil {
		return models.Order{}, translate(err)
	}
	s.sessions.Apply(adminID, store.OrderChanged(done))
	s.sessions.Apply(adminID, store.DeliveryPersonChanged(dp))
	publish(ctx, s.publisher, events.ForOrder(done, models.StatusDelivering))
	return done, nil
}

// Track returns an order with its status history for its client or an admin.
func (s *OrderService) Track(ctx context.Context, actor Actor, orderID uuid.UUID) (models.Order, []models.StatusLog, error) {
	o, err := s.gw.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, nil, translate(err)
	}
	if actor.Role != models.RoleAdmin && o.ClientID != actor.ID {
		return models.Order{}, nil, ErrForbidden
	}
	history, err := s.gw.StatusHistory(ctx, orderID)
	if err != nil {
		return models.Order{}, nil, err
	}
	return o, history, nil
}
