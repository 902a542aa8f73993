package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// MaxPromotions caps the promotional files attached to a business.
const MaxPromotions = 3

type PromoFile struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required"`
	Type string `json:"type"`
}

type Promotions []PromoFile

func (p Promotions) Value() (driver.Value, error) {
	if p == nil {
		p = Promotions{}
	}
	return jsonValue(p)
}

func (p *Promotions) Scan(src any) error {
	return scanJSON(src, p)
}

type Business struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email,omitempty"`
	Category     string     `db:"category" json:"category"`
	Phone        string     `db:"phone" json:"phone"`
	Address      string     `db:"address" json:"address"`
	Location     *Point     `db:"-" json:"location,omitempty"`
	DeliveryFee  float64    `db:"delivery_fee" json:"delivery_fee"`
	DeliveryTime string     `db:"delivery_time" json:"delivery_time"`
	Image        string     `db:"image" json:"image,omitempty"`
	IsOpen       bool       `db:"is_open" json:"is_open"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	Rating       float64    `db:"rating" json:"rating"`
	Promotions   Promotions `db:"promotions" json:"promotions"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (b Business) GetID() uuid.UUID { return b.ID }

// AcceptsOrders reports whether checkout against this business is allowed.
func (b Business) AcceptsOrders() bool {
	return b.IsActive && b.IsOpen
}

type Product struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BusinessID  uuid.UUID `db:"business_id" json:"business_id"`
	Name        string    `db:"name" json:"name"`
	Price       float64   `db:"price" json:"price"`
	Description string    `db:"description" json:"description"`
	Image       string    `db:"image" json:"image,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (p Product) GetID() uuid.UUID { return p.ID }
