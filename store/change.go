package store

import (
	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/models"
)

// Change describes one successful write: either the new version of a record
// or the removal of one.
type Change struct {
	Collection dbhelper.Collection
	ID         uuid.UUID
	Record     any
	Removed    bool
}

func OrderChanged(o models.Order) Change {
	return Change{Collection: dbhelper.Orders, ID: o.ID, Record: o}
}

func BusinessChanged(b models.Business) Change {
	return Change{Collection: dbhelper.Businesses, ID: b.ID, Record: b}
}

func ProductChanged(p models.Product) Change {
	return Change{Collection: dbhelper.Products, ID: p.ID, Record: p}
}

func DeliveryPersonChanged(d models.DeliveryPerson) Change {
	return Change{Collection: dbhelper.DeliveryPersons, ID: d.ID, Record: d}
}

func ClientChanged(c models.Client) Change {
	return Change{Collection: dbhelper.Clients, ID: c.ID, Record: c}
}

func Removed(c dbhelper.Collection, id uuid.UUID) Change {
	return Change{Collection: c, ID: id, Removed: true}
}

func (ch Change) patch(s *Snapshot) {
	if ch.Removed {
		switch ch.Collection {
		case dbhelper.Orders:
			s.Orders = without(s.Orders, ch.ID)
		case dbhelper.Businesses:
			s.Businesses = without(s.Businesses, ch.ID)
		case dbhelper.Products:
			s.Products = without(s.Products, ch.ID)
		case dbhelper.DeliveryPersons:
			s.DeliveryPersons = without(s.DeliveryPersons, ch.ID)
		case dbhelper.Clients:
			s.Clients = without(s.Clients, ch.ID)
		}
		return
	}

	switch rec := ch.Record.(type) {
	case models.Order:
		s.Orders = upsert(s.Orders, rec)
	case models.Business:
		s.Businesses = upsert(s.Businesses, rec)
	case models.Product:
		s.Products = upsert(s.Products, rec)
	case models.DeliveryPerson:
		s.DeliveryPersons = upsert(s.DeliveryPersons, rec)
	case models.Client:
		s.Clients = upsert(s.Clients, rec)
	}
}
