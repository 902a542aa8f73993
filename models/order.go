package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Image     string    `json:"image,omitempty"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		items = OrderItems{}
	}
	return jsonValue(items)
}

func (items *OrderItems) Scan(src any) error {
	return scanJSON(src, items)
}

func (items OrderItems) Subtotal() float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return sum
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a free-text delivery address with optional coordinates.
type Address struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

func (a Address) Point() (Point, bool) {
	if a.Lat == nil || a.Lng == nil {
		return Point{}, false
	}
	return Point{Lat: *a.Lat, Lng: *a.Lng}, true
}

func (a Address) Value() (driver.Value, error) {
	return jsonValue(a)
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

type Order struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	ClientID         uuid.UUID   `db:"client_id" json:"client_id"`
	BusinessID       uuid.UUID   `db:"business_id" json:"business_id"`
	DeliveryPersonID *uuid.UUID  `db:"delivery_person_id" json:"delivery_person_id"`
	Items            OrderItems  `db:"items" json:"items"`
	TotalPrice       float64     `db:"total_price" json:"total_price"`
	DeliveryAddress  Address     `db:"delivery_address" json:"delivery_address"`
	Status           OrderStatus `db:"status" json:"status"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

func (o Order) GetID() uuid.UUID { return o.ID }

// IsAvailable reports whether the order is ready and no delivery person has
// claimed it yet.
func (o Order) IsAvailable() bool {
	return o.Status == StatusReady && o.DeliveryPersonID == nil
}

func (o Order) AssignedTo(deliveryPersonID uuid.UUID) bool {
	return o.DeliveryPersonID != nil && *o.DeliveryPersonID == deliveryPersonID
}

func (o Order) Commission() float64 {
	return Commission(o.TotalPrice)
}

// StatusLog is one row of the order status audit trail.
type StatusLog struct {
	ID         int64       `db:"id" json:"id"`
	OrderID    uuid.UUID   `db:"order_id" json:"order_id"`
	FromStatus OrderStatus `db:"from_status" json:"from_status"`
	ToStatus   OrderStatus `db:"to_status" json:"to_status"`
	ChangedBy  uuid.UUID   `db:"changed_by" json:"changed_by"`
	ChangedAt  time.Time   `db:"changed_at" json:"changed_at"`
}
