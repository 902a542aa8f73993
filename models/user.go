package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient   Role = "cliente"
	RoleBusiness Role = "negocio"
	RoleDelivery Role = "repartidor"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleBusiness || r == RoleDelivery || r == RoleAdmin
}

// Home is the route prefix a session with this role lands on.
func (r Role) Home() string {
	if !r.IsValid() {
		return "/"
	}
	return "/" + string(r)
}

type User struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Password   string     `db:"password" json:"-"`
	Role       Role       `db:"role" json:"role"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}
