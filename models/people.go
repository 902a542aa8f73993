package models

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryPerson struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email,omitempty"`
	Phone           string    `db:"phone" json:"phone"`
	Vehicle         string    `db:"vehicle" json:"vehicle"`
	IsOnline        bool      `db:"is_online" json:"is_online"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	Rating          float64   `db:"rating" json:"rating"`
	TotalDeliveries int       `db:"total_deliveries" json:"total_deliveries"`
	Earnings        float64   `db:"earnings" json:"earnings"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

func (d DeliveryPerson) GetID() uuid.UUID { return d.ID }

type Client struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (c Client) GetID() uuid.UUID { return c.ID }
