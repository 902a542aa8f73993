package models

import "github.com/google/uuid"

// CartItem carries the product fields denormalized at the moment it was
// added. Prices are re-read from the product at checkout.
type CartItem struct {
	ProductID    uuid.UUID `json:"id"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	Name         string    `json:"name"`
	Image        string    `json:"image,omitempty"`
	BusinessID   uuid.UUID `json:"businessId"`
	BusinessName string    `json:"businessName,omitempty"`
}

type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// BusinessID is the business every item in the cart belongs to.
func (c Cart) BusinessID() uuid.UUID {
	if c.IsEmpty() {
		return uuid.Nil
	}
	return c.Items[0].BusinessID
}

// Count is the number of units across all items.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Subtotal() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}
