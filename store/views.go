package store

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/models"
)

// ClientView is what a client dashboard reads: businesses that can take
// orders and the client's own order history.
type ClientView struct {
	Loading      bool              `json:"loading"`
	Businesses   []models.Business `json:"businesses"`
	Orders       []OrderSummary    `json:"orders"`
	ActiveOrders int               `json:"active_orders"`
}

type BusinessView struct {
	Loading       bool             `json:"loading"`
	Business      *models.Business `json:"business"`
	Products      []models.Product `json:"products"`
	Orders        []OrderSummary   `json:"orders"`
	PendingOrders int              `json:"pending_orders"`
	TodayOrders   int              `json:"today_orders"`
	TodayRevenue  float64          `json:"today_revenue"`
}

type DeliveryView struct {
	Loading         bool                   `json:"loading"`
	Profile         *models.DeliveryPerson `json:"profile"`
	IsOnline        bool                   `json:"is_online"`
	Available       []OrderSummary         `json:"available"`
	Active          []OrderSummary         `json:"active"`
	TodayDeliveries int                    `json:"today_deliveries"`
	TodayEarnings   float64                `json:"today_earnings"`
	TotalDeliveries int                    `json:"total_deliveries"`
	Earnings        float64                `json:"earnings"`
}

type AdminStats struct {
	TotalOrders           int     `json:"total_orders"`
	ActiveOrders          int     `json:"active_orders"`
	TodayOrders           int     `json:"today_orders"`
	DeliveredOrders       int     `json:"delivered_orders"`
	Revenue               float64 `json:"revenue"`
	Businesses            int     `json:"businesses"`
	OpenBusinesses        int     `json:"open_businesses"`
	DeliveryPersons       int     `json:"delivery_persons"`
	OnlineDeliveryPersons int     `json:"online_delivery_persons"`
	Clients               int     `json:"clients"`
}

type AdminView struct {
	Loading bool           `json:"loading"`
	Stats   AdminStats     `json:"stats"`
	Orders  []OrderSummary `json:"orders"`
}

// OrderSummary is an order with the names of the records it points at.
// Names of records that no longer exist are left blank.
type OrderSummary struct {
	models.Order
	BusinessName       string `json:"business_name,omitempty"`
	ClientName         string `json:"client_name,omitempty"`
	DeliveryPersonName string `json:"delivery_person_name,omitempty"`
}

// MapPoint places an order on the admin map. Orders whose business has no
// coordinates are left out.
type MapPoint struct {
	OrderID      uuid.UUID          `json:"order_id"`
	Status       models.OrderStatus `json:"status"`
	BusinessName string             `json:"business_name"`
	Business     models.Point       `json:"business"`
	Destination  *models.Point      `json:"destination,omitempty"`
}

type index struct {
	businesses map[uuid.UUID]models.Business
	clients    map[uuid.UUID]models.Client
	people     map[uuid.UUID]models.DeliveryPerson
}

func newIndex(s Snapshot) index {
	idx := index{
		businesses: make(map[uuid.UUID]models.Business, len(s.Businesses)),
		clients:    make(map[uuid.UUID]models.Client, len(s.Clients)),
		people:     make(map[uuid.UUID]models.DeliveryPerson, len(s.DeliveryPersons)),
	}
	for _, b := range s.Businesses {
		idx.businesses[b.ID] = b
	}
	for _, c := range s.Clients {
		idx.clients[c.ID] = c
	}
	for _, d := range s.DeliveryPersons {
		idx.people[d.ID] = d
	}
	return idx
}

func (idx index) summarize(o models.Order) OrderSummary {
	sum := OrderSummary{Order: o}
	if b, ok := idx.businesses[o.BusinessID]; ok {
		sum.BusinessName = b.Name
	}
	if c, ok := idx.clients[o.ClientID]; ok {
		sum.ClientName = c.Name
	}
	if o.DeliveryPersonID != nil {
		if d, ok := idx.people[*o.DeliveryPersonID]; ok {
			sum.DeliveryPersonName = d.Name
		}
	}
	return sum
}

func (idx index) summaries(orders []models.Order, keep func(models.Order) bool) []OrderSummary {
	out := make([]OrderSummary, 0)
	for _, o := range orders {
		if keep(o) {
			out = append(out, idx.summarize(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func startOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func isActive(o models.Order) bool {
	return !o.Status.IsTerminal()
}

func BuildClientView(s Snapshot, state State, clientID uuid.UUID) ClientView {
	idx := newIndex(s)
	v := ClientView{Loading: state == StateLoading, Businesses: make([]models.Business, 0)}
	for _, b := range s.Businesses {
		if b.IsActive {
			v.Businesses = append(v.Businesses, b)
		}
	}
	v.Orders = idx.summaries(s.Orders, func(o models.Order) bool { return o.ClientID == clientID })
	for _, o := range v.Orders {
		if isActive(o.Order) {
			v.ActiveOrders++
		}
	}
	return v
}

func BuildBusinessView(s Snapshot, state State, businessID uuid.UUID, now time.Time) BusinessView {
	idx := newIndex(s)
	v := BusinessView{Loading: state == StateLoading, Products: make([]models.Product, 0)}
	if b, ok := idx.businesses[businessID]; ok {
		v.Business = &b
	}
	for _, p := range s.Products {
		if p.BusinessID == businessID {
			v.Products = append(v.Products, p)
		}
	}
	today := startOfDay(now)
	v.Orders = idx.summaries(s.Orders, func(o models.Order) bool { return o.BusinessID == businessID })
	for _, o := range v.Orders {
		if o.Status == models.StatusPending {
			v.PendingOrders++
		}
		if !o.CreatedAt.Before(today) {
			v.TodayOrders++
			if o.Status != models.StatusCancelled {
				v.TodayRevenue += o.TotalPrice
			}
		}
	}
	v.TodayRevenue = models.RoundCents(v.TodayRevenue)
	return v
}

// AvailableOrders are ready orders that nobody has claimed.
func AvailableOrders(orders []models.Order) []models.Order {
	out := make([]models.Order, 0)
	for _, o := range orders {
		if o.IsAvailable() {
			out = append(out, o)
		}
	}
	return out
}

func BuildDeliveryView(s Snapshot, state State, deliveryPersonID uuid.UUID, now time.Time) DeliveryView {
	idx := newIndex(s)
	v := DeliveryView{Loading: state == StateLoading}
	if d, ok := idx.people[deliveryPersonID]; ok {
		v.Profile = &d
		v.IsOnline = d.IsOnline
		v.TotalDeliveries = d.TotalDeliveries
		v.Earnings = d.Earnings
	}
	v.Available = idx.summaries(s.Orders, models.Order.IsAvailable)
	v.Active = idx.summaries(s.Orders, func(o models.Order) bool {
		return o.Status == models.StatusDelivering && o.AssignedTo(deliveryPersonID)
	})

	today := startOfDay(now)
	for _, o := range s.Orders {
		if !o.AssignedTo(deliveryPersonID) || o.CreatedAt.Before(today) {
			continue
		}
		v.TodayDeliveries++
		if o.Status == models.StatusDelivered {
			v.TodayEarnings += o.Commission()
		}
	}
	v.TodayEarnings = models.RoundCents(v.TodayEarnings)
	return v
}

func BuildAdminView(s Snapshot, state State, now time.Time) AdminView {
	idx := newIndex(s)
	v := AdminView{Loading: state == StateLoading}
	today := startOfDay(now)
	st := &v.Stats
	st.TotalOrders = len(s.Orders)
	for _, o := range s.Orders {
		if isActive(o) {
			st.ActiveOrders++
		}
		if !o.CreatedAt.Before(today) {
			st.TodayOrders++
		}
		if o.Status == models.StatusDelivered {
			st.DeliveredOrders++
			st.Revenue += o.TotalPrice
		}
	}
	st.Revenue = models.RoundCents(st.Revenue)
	st.Businesses = len(s.Businesses)
	for _, b := range s.Businesses {
		if b.AcceptsOrders() {
			st.OpenBusinesses++
		}
	}
	st.DeliveryPersons = len(s.DeliveryPersons)
	for _, d := range s.DeliveryPersons {
		if d.IsOnline {
			st.OnlineDeliveryPersons++
		}
	}
	st.Clients = len(s.Clients)
	v.Orders = idx.summaries(s.Orders, func(models.Order) bool { return true })
	return v
}

// FilterOrders narrows the admin order list by status and by a
// case-insensitive match on business or client name.
func FilterOrders(orders []OrderSummary, status models.OrderStatus, q string) []OrderSummary {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(o.BusinessName), q) &&
			!strings.Contains(strings.ToLower(o.ClientName), q) &&
			!strings.Contains(o.ID.String(), q) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// MapPoints returns the active orders of today with a located business.
func MapPoints(s Snapshot, now time.Time) []MapPoint {
	idx := newIndex(s)
	today := startOfDay(now)
	out := make([]MapPoint, 0)
	for _, o := range s.Orders {
		if o.CreatedAt.Before(today) || o.Status == models.StatusCancelled {
			continue
		}
		b, ok := idx.businesses[o.BusinessID]
		if !ok || b.Location == nil {
			continue
		}
		p := MapPoint{OrderID: o.ID, Status: o.Status, BusinessName: b.Name, Business: *b.Location}
		if dest, ok := o.DeliveryAddress.Point(); ok {
			p.Destination = &dest
		}
		out = append(out, p)
	}
	return out
}
