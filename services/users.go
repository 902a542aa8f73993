package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/store"
)

// UserList holds the profiles of one or all account kinds.
type UserList struct {
	Clients         []models.Client         `json:"clients,omitempty"`
	Businesses      []models.Business       `json:"businesses,omitempty"`
	DeliveryPersons []models.DeliveryPerson `json:"delivery_persons,omitempty"`
}

func accountKind(kind string) (dbhelper.Collection, error) {
	switch c := dbhelper.Collection(kind); c {
	case dbhelper.Clients, dbhelper.Businesses, dbhelper.DeliveryPersons:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, kind)
}

func matches(q, name, email string) bool {
	return q == "" || strings.Contains(strings.ToLower(name), q) || strings.Contains(strings.ToLower(email), q)
}

// ListUsers filters the admin's mirror by kind ("" for all) and a
// case-insensitive match on name or email.
func (s *CatalogService) ListUsers(ctx context.Context, adminID uuid.UUID, kind, q string) (UserList, error) {
	var want dbhelper.Collection
	if kind != "" {
		c, err := accountKind(kind)
		if err != nil {
			return UserList{}, err
		}
		want = c
	}
	m, err := s.sessions.Ensure(ctx, adminID)
	if err != nil {
		return UserList{}, err
	}
	snap, _ := m.Snapshot()
	q = strings.ToLower(strings.TrimSpace(q))

	var out UserList
	if want == "" || want == dbhelper.Clients {
		out.Clients = make([]models.Client, 0)
		for _, c := range snap.Clients {
			if matches(q, c.Name, c.Email) {
				out.Clients = append(out.Clients, c)
			}
		}
	}
	if want == "" || want == dbhelper.Businesses {
		out.Businesses = make([]models.Business, 0)
		for _, b := range snap.Businesses {
			if matches(q, b.Name, b.Email) {
				out.Businesses = append(out.Businesses, b)
			}
		}
	}
	if want == "" || want == dbhelper.DeliveryPersons {
		out.DeliveryPersons = make([]models.DeliveryPerson, 0)
		for _, d := range snap.DeliveryPersons {
			if matches(q, d.Name, d.Email) {
				out.DeliveryPersons = append(out.DeliveryPersons, d)
			}
		}
	}
	return out, nil
}

type NewUser struct {
	Kind     string
	Name     string
	Email    string
	Phone    string
	Category string
	Vehicle  string
	IsActive bool
}

// CreateUser adds a profile record on the admin's behalf. No login is
// attached to it.
func (s *CatalogService) CreateUser(ctx context.Context, adminID uuid.UUID, in NewUser) (any, error) {
	kind, err := accountKind(in.Kind)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)

	switch kind {
	case dbhelper.Clients:
		c, err := s.gw.InsertClient(ctx, models.Client{Name: name, Email: email, Phone: phone, IsActive: in.IsActive})
		if err != nil {
			return nil, translate(err)
		}
		s.sessions.Apply(adminID, store.ClientChanged(c))
		return c, nil
	case dbhelper.Businesses:
		b, err := s.gw.InsertBusiness(ctx, models.Business{Name: name, Email: email, Phone: phone,
			Category: strings.TrimSpace(in.Category), IsActive: in.IsActive, IsOpen: true})
		if err != nil {
			return nil, translate(err)
		}
		s.sessions.Apply(adminID, store.BusinessChanged(b))
		return b, nil
	default:
		d, err := s.gw.InsertDeliveryPerson(ctx, models.DeliveryPerson{Name: name, Email: email, Phone: phone,
			Vehicle: strings.TrimSpace(in.Vehicle), IsActive: in.IsActive})
		if err != nil {
			return nil, translate(err)
		}
		s.sessions.Apply(adminID, store.DeliveryPersonChanged(d))
		return d, nil
	}
}

// UserPatch is an admin edit of any account profile.
type UserPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Category *string
	Vehicle  *string
	IsActive *bool
}

func (s *CatalogService) UpdateUser(ctx context.Context, adminID uuid.UUID, kind string, id uuid.UUID, p UserPatch) (any, error) {
	c, err := accountKind(kind)
	if err != nil {
		return nil, err
	}
	f := dbhelper.Fields{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		f["name"] = name
	}
	setString(f, "email", p.Email)
	setString(f, "phone", p.Phone)
	if p.IsActive != nil {
		f["is_active"] = *p.IsActive
	}
	switch c {
	case dbhelper.Businesses:
		setString(f, "category", p.Category)
	case dbhelper.DeliveryPersons:
		setString(f, "vehicle", p.Vehicle)
	}
	return s.updateAccount(ctx, adminID, c, id, f)
}

// ToggleActive reads the account's active flag and writes its negation.
func (s *CatalogService) ToggleActive(ctx context.Context, adminID uuid.UUID, kind string, id uuid.UUID) (any, error) {
	c, err := accountKind(kind)
	if err != nil {
		return nil, err
	}
	var active bool
	switch c {
	case dbhelper.Clients:
		rec, err := s.gw.GetClient(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		active = rec.IsActive
	case dbhelper.Businesses:
		rec, err := s.gw.GetBusiness(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		active = rec.IsActive
	default:
		rec, err := s.gw.GetDeliveryPerson(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		active = rec.IsActive
	}
	return s.updateAccount(ctx, adminID, c, id, dbhelper.Fields{"is_active": !active})
}

func (s *CatalogService) updateAccount(ctx context.Context, adminID uuid.UUID, c dbhelper.Collection, id uuid.UUID, f dbhelper.Fields) (any, error) {
	switch c {
	case dbhelper.Clients:
		rec, err := s.gw.UpdateClient(ctx, id, f)
		if err != nil {
			return nil, translate(err)
		}
		s.sessions.Apply(adminID, store.ClientChanged(rec))
		return rec, nil
	case dbhelper.Businesses:
		rec, err := s.gw.UpdateBusiness(ctx, id, f)
		if err != nil {
			return nil, translate(err)
		}
		s.sessions.Apply(adminID, store.BusinessChanged(rec))
		return rec, nil
	default:
		rec, err := s.gw.UpdateDeliveryPerson(ctx, id, f)
		if err != nil {
			return nil, translate(err)
		}
		s.sessions.Apply(adminID, store.DeliveryPersonChanged(rec))
		return rec, nil
	}
}

func (s *CatalogService) DeleteUser(ctx context.Context, adminID uuid.UUID, kind string, id uuid.UUID) error {
	c, err := accountKind(kind)
	if err != nil {
		return err
	}
	if err := s.gw.Remove(ctx, c, id); err != nil {
		return translate(err)
	}
	s.sessions.Apply(adminID, store.Removed(c, id))
	return nil
}
