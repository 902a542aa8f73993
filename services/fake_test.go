package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/events"
	"github.com/ray-remotestate/delivery/models"
)

// fakeGateway keeps records in maps and mimics the row-locking semantics of
// dbhelper.Gateway with a single mutex.
type fakeGateway struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]models.Order
	businesses map[uuid.UUID]models.Business
	products   map[uuid.UUID]models.Product
	people     map[uuid.UUID]models.DeliveryPerson
	clients    map[uuid.UUID]models.Client
	logs       []models.StatusLog

	calls     map[string]int
	insertErr error
	// before runs a named callback ahead of the matching call, outside the
	// lock, standing in for a request that lands concurrently.
	before map[string]func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:     map[uuid.UUID]models.Order{},
		businesses: map[uuid.UUID]models.Business{},
		products:   map[uuid.UUID]models.Product{},
		people:     map[uuid.UUID]models.DeliveryPerson{},
		clients:    map[uuid.UUID]models.Client{},
		calls:      map[string]int{},
		before:     map[string]func(){},
	}
}

func (f *fakeGateway) runBefore(name string) {
	f.mu.Lock()
	fn := f.before[name]
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func notFound(c dbhelper.Collection) error {
	return fmt.Errorf("%s: %w", c, dbhelper.ErrNotFound)
}

func (f *fakeGateway) ListBusinesses(context.Context) ([]models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Business{}
	for _, b := range f.businesses {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeGateway) ListOrders(context.Context) ([]models.Order, error) {
	f.runBefore("ListOrders")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeGateway) ListProducts(context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeGateway) ListDeliveryPersons(context.Context) ([]models.DeliveryPerson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.DeliveryPerson{}
	for _, d := range f.people {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeGateway) ListClients(context.Context) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Client{}
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeGateway) GetOrder(_ context.Context, id uuid.UUID) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetOrder"]++
	o, ok := f.orders[id]
	if !ok {
		return o, notFound(dbhelper.Orders)
	}
	return o, nil
}

func (f *fakeGateway) GetBusiness(_ context.Context, id uuid.UUID) (models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetBusiness"]++
	b, ok := f.businesses[id]
	if !ok {
		return b, notFound(dbhelper.Businesses)
	}
	return b, nil
}

func (f *fakeGateway) GetProduct(_ context.Context, id uuid.UUID) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetProduct"]++
	p, ok := f.products[id]
	if !ok {
		return p, notFound(dbhelper.Products)
	}
	return p, nil
}

func (f *fakeGateway) GetDeliveryPerson(_ context.Context, id uuid.UUID) (models.DeliveryPerson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetDeliveryPerson"]++
	d, ok := f.people[id]
	if !ok {
		return d, notFound(dbhelper.DeliveryPersons)
	}
	return d, nil
}

func (f *fakeGateway) GetClient(_ context.Context, id uuid.UUID) (models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetClient"]++
	c, ok := f.clients[id]
	if !ok {
		return c, notFound(dbhelper.Clients)
	}
	return c, nil
}

func (f *fakeGateway) ProductsByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ProductsByIDs"]++
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeGateway) InsertOrder(_ context.Context, o models.Order) (models.Order, error) {
	f.runBefore("InsertOrder")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["InsertOrder"]++
	if f.insertErr != nil {
		return models.Order{}, f.insertErr
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeGateway) EditOrder(_ context.Context, orderID, changedBy uuid.UUID, edit func(models.Order) (dbhelper.Fields, error)) (models.Order, models.OrderStatus, error) {
	f.runBefore("EditOrder")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["EditOrder"]++
	current, ok := f.orders[orderID]
	if !ok {
		return current, "", notFound(dbhelper.Orders)
	}
	fields, err := edit(current)
	if err != nil {
		return models.Order{}, "", err
	}
	o, err := f.updateOrderLocked(orderID, fields)
	if err != nil {
		return models.Order{}, "", err
	}
	if o.Status != current.Status {
		f.logs = append(f.logs, models.StatusLog{OrderID: orderID, FromStatus: current.Status, ToStatus: o.Status, ChangedBy: changedBy})
	}
	return o, current.Status, nil
}

func (f *fakeGateway) updateOrderLocked(id uuid.UUID, fields dbhelper.Fields) (models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return o, notFound(dbhelper.Orders)
	}
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(models.OrderStatus)
		case "delivery_person_id":
			o.DeliveryPersonID = v.(*uuid.UUID)
		case "total_price":
			o.TotalPrice = v.(float64)
		case "delivery_address":
			o.DeliveryAddress = v.(models.Address)
		default:
			return o, dbhelper.ErrUnknownField
		}
	}
	o.UpdatedAt = time.Now()
	f.orders[id] = o
	return o, nil
}

func (f *fakeGateway) ClaimOrder(_ context.Context, orderID, dpID uuid.UUID) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ClaimOrder"]++
	o, ok := f.orders[orderID]
	if !ok {
		return models.Order{}, notFound(dbhelper.Orders)
	}
	if !o.IsAvailable() {
		return models.Order{}, fmt.Errorf("claim order %s: %w", orderID, dbhelper.ErrConflict)
	}
	id := dpID
	o.DeliveryPersonID = &id
	o.Status = models.StatusDelivering
	f.orders[orderID] = o
	f.logs = append(f.logs, models.StatusLog{OrderID: orderID, FromStatus: models.StatusReady, ToStatus: models.StatusDelivering, ChangedBy: dpID})
	return o, nil
}

func (f *fakeGateway) TransitionOrder(_ context.Context, orderID uuid.UUID, to models.OrderStatus, changedBy uuid.UUID, guard func(models.Order) error) (models.Order, models.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["TransitionOrder"]++
	o, ok := f.orders[orderID]
	if !ok {
		return o, "", notFound(dbhelper.Orders)
	}
	if guard != nil {
		if err := guard(o); err != nil {
			return models.Order{}, "", err
		}
	}
	if err := models.ValidateTransition(o.Status, to); err != nil {
		return models.Order{}, "", err
	}
	from := o.Status
	o.Status = to
	f.orders[orderID] = o
	f.logs = append(f.logs, models.StatusLog{OrderID: orderID, FromStatus: from, ToStatus: to, ChangedBy: changedBy})
	return o, from, nil
}

func (f *fakeGateway) CompleteDelivery(_ context.Context, orderID, dpID uuid.UUID, guard func(models.Order) error) (models.Order, models.DeliveryPerson, error) {
	f.runBefore("CompleteDelivery")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CompleteDelivery"]++
	o, ok := f.orders[orderID]
	if !ok {
		return o, models.DeliveryPerson{}, notFound(dbhelper.Orders)
	}
	if guard != nil {
		if err := guard(o); err != nil {
			return models.Order{}, models.DeliveryPerson{}, err
		}
	}
	if err := models.ValidateTransition(o.Status, models.StatusDelivered); err != nil {
		return models.Order{}, models.DeliveryPerson{}, err
	}
	dp, ok := f.people[dpID]
	if !ok {
		return models.Order{}, models.DeliveryPerson{}, notFound(dbhelper.DeliveryPersons)
	}
	o.Status = models.StatusDelivered
	dp.Earnings += o.Commission()
	dp.TotalDeliveries++
	f.orders[orderID] = o
	f.people[dpID] = dp
	f.logs = append(f.logs, models.StatusLog{OrderID: orderID, FromStatus: models.StatusDelivering, ToStatus: models.StatusDelivered, ChangedBy: dpID})
	return o, dp, nil
}

func (f *fakeGateway) StatusHistory(_ context.Context, orderID uuid.UUID) ([]models.StatusLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.StatusLog{}
	for _, l := range f.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeGateway) UpdateDeliveryPerson(_ context.Context, id uuid.UUID, fields dbhelper.Fields) (models.DeliveryPerson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateDeliveryPerson"]++
	d, ok := f.people[id]
	if !ok {
		return d, notFound(dbhelper.DeliveryPersons)
	}
	if len(fields) == 0 {
		return d, dbhelper.ErrNoFields
	}
	for k, v := range fields {
		switch k {
		case "is_online":
			d.IsOnline = v.(bool)
		case "is_active":
			d.IsActive = v.(bool)
		case "earnings":
			d.Earnings = v.(float64)
		case "total_deliveries":
			d.TotalDeliveries = v.(int)
		case "name":
			d.Name = v.(string)
		case "phone":
			d.Phone = v.(string)
		case "vehicle":
			d.Vehicle = v.(string)
		case "email":
			d.Email = v.(string)
		}
	}
	f.people[id] = d
	return d, nil
}

func (f *fakeGateway) DeliveredOrdersFor(_ context.Context, dpID uuid.UUID) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.AssignedTo(dpID) && o.Status == models.StatusDelivered {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeGateway) InsertBusiness(_ context.Context, b models.Business) (models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	f.businesses[b.ID] = b
	return b, nil
}

func (f *fakeGateway) UpdateBusiness(_ context.Context, id uuid.UUID, fields dbhelper.Fields) (models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateBusiness"]++
	b, ok := f.businesses[id]
	if !ok {
		return b, notFound(dbhelper.Businesses)
	}
	for k, v := range fields {
		switch k {
		case "name":
			b.Name = v.(string)
		case "is_open":
			b.IsOpen = v.(bool)
		case "is_active":
			b.IsActive = v.(bool)
		case "delivery_fee":
			b.DeliveryFee = v.(float64)
		case "promotions":
			b.Promotions = v.(models.Promotions)
		}
	}
	f.businesses[id] = b
	return b, nil
}

func (f *fakeGateway) InsertProduct(_ context.Context, p models.Product) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeGateway) UpdateProduct(_ context.Context, id uuid.UUID, fields dbhelper.Fields) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return p, notFound(dbhelper.Products)
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "price":
			p.Price = v.(float64)
		}
	}
	f.products[id] = p
	return p, nil
}

func (f *fakeGateway) InsertClient(_ context.Context, c models.Client) (models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.clients[c.ID] = c
	return c, nil
}

func (f *fakeGateway) UpdateClient(_ context.Context, id uuid.UUID, fields dbhelper.Fields) (models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return c, notFound(dbhelper.Clients)
	}
	for k, v := range fields {
		switch k {
		case "name":
			c.Name = v.(string)
		case "is_active":
			c.IsActive = v.(bool)
		case "phone":
			c.Phone = v.(string)
		case "email":
			c.Email = v.(string)
		}
	}
	f.clients[id] = c
	return c, nil
}

func (f *fakeGateway) InsertDeliveryPerson(_ context.Context, d models.DeliveryPerson) (models.DeliveryPerson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	f.people[d.ID] = d
	return d, nil
}

func (f *fakeGateway) Remove(_ context.Context, c dbhelper.Collection, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch c {
	case dbhelper.Products:
		if _, ok := f.products[id]; !ok {
			return notFound(c)
		}
		delete(f.products, id)
	case dbhelper.Clients:
		if _, ok := f.clients[id]; !ok {
			return notFound(c)
		}
		delete(f.clients, id)
	case dbhelper.Businesses:
		delete(f.businesses, id)
	case dbhelper.DeliveryPersons:
		delete(f.people, id)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
