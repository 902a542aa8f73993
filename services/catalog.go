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

type CatalogService struct {
	gw       CatalogGateway
	sessions *store.Sessions
}

func NewCatalogService(gw CatalogGateway, sessions *store.Sessions) *CatalogService {
	return &CatalogService{gw: gw, sessions: sessions}
}

type BusinessProfile struct {
	Name         *string
	Category     *string
	Phone        *string
	Address      *string
	Location     *models.Point
	DeliveryFee  *float64
	DeliveryTime *string
	Image        *string
	IsOpen       *bool
	IsActive     *bool
	Promotions   *models.Promotions
}

func (p BusinessProfile) fields() (dbhelper.Fields, error) {
	f := dbhelper.Fields{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		f["name"] = name
	}
	setString(f, "category", p.Category)
	setString(f, "phone", p.Phone)
	setString(f, "address", p.Address)
	setString(f, "delivery_time", p.DeliveryTime)
	setString(f, "image", p.Image)
	if p.Location != nil {
		f["latitude"] = p.Location.Lat
		f["longitude"] = p.Location.Lng
	}
	if p.DeliveryFee != nil {
		if *p.DeliveryFee < 0 {
			return nil, fmt.Errorf("%w: delivery fee cannot be negative", ErrInvalidInput)
		}
		f["delivery_fee"] = models.RoundCents(*p.DeliveryFee)
	}
	if p.IsOpen != nil {
		f["is_open"] = *p.IsOpen
	}
	if p.IsActive != nil {
		f["is_active"] = *p.IsActive
	}
	if p.Promotions != nil {
		if len(*p.Promotions) > models.MaxPromotions {
			return nil, fmt.Errorf("%w: at most %d promotions", ErrInvalidInput, models.MaxPromotions)
		}
		f["promotions"] = *p.Promotions
	}
	return f, nil
}

func setString(f dbhelper.Fields, key string, v *string) {
	if v != nil {
		f[key] = strings.TrimSpace(*v)
	}
}

// UpdateBusiness edits a business profile. Only admins may change is_active.
func (s *CatalogService) UpdateBusiness(ctx context.Context, actor Actor, id uuid.UUID, p BusinessProfile) (models.Business, error) {
	if actor.Role != models.RoleAdmin && (actor.ID != id || p.IsActive != nil) {
		return models.Business{}, ErrForbidden
	}
	fields, err := p.fields()
	if err != nil {
		return models.Business{}, err
	}
	b, err := s.gw.UpdateBusiness(ctx, id, fields)
	if err != nil {
		return models.Business{}, translate(err)
	}
	s.sessions.Apply(actor.ID, store.BusinessChanged(b))
	return b, nil
}

type ProductInput struct {
	Name        string
	Price       float64
	Description string
	Image       string
}

func (s *CatalogService) CreateProduct(ctx context.Context, businessID uuid.UUID, in ProductInput) (models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price < 0 {
		return models.Product{}, fmt.Errorf("%w: product needs a name and a non-negative price", ErrInvalidInput)
	}
	p, err := s.gw.InsertProduct(ctx, models.Product{
		BusinessID:  businessID,
		Name:        name,
		Price:       models.RoundCents(in.Price),
		Description: strings.TrimSpace(in.Description),
		Image:       in.Image,
	})
	if err != nil {
		return models.Product{}, translate(err)
	}
	s.sessions.Apply(businessID, store.ProductChanged(p))
	return p, nil
}

type ProductPatch struct {
	Name        *string
	Price       *float64
	Description *string
	Image       *string
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, patch ProductPatch) (models.Product, error) {
	if err := s.ownsProduct(ctx, actor, productID); err != nil {
		return models.Product{}, err
	}
	f := dbhelper.Fields{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Product{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		f["name"] = name
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return models.Product{}, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
		}
		f["price"] = models.RoundCents(*patch.Price)
	}
	setString(f, "description", patch.Description)
	setString(f, "image", patch.Image)

	p, err := s.gw.UpdateProduct(ctx, productID, f)
	if err != nil {
		return models.Product{}, translate(err)
	}
	s.sessions.Apply(actor.ID, store.ProductChanged(p))
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, productID uuid.UUID) error {
	if err := s.ownsProduct(ctx, actor, productID); err != nil {
		return err
	}
	if err := s.gw.Remove(ctx, dbhelper.Products, productID); err != nil {
		return translate(err)
	}
	s.sessions.Apply(actor.ID, store.Removed(dbhelper.Products, productID))
	return nil
}

func (s *CatalogService) ownsProduct(ctx context.Context, actor Actor, productID uuid.UUID) error {
	p, err := s.gw.GetProduct(ctx, productID)
	if err != nil {
		return translate(err)
	}
	if actor.Role != models.RoleAdmin && p.BusinessID != actor.ID {
		return ErrForbidden
	}
	return nil
}

type ClientProfile struct {
	Name  *string
	Email *string
	Phone *string
}

func (s *CatalogService) UpdateClient(ctx context.Context, actor Actor, id uuid.UUID, p ClientProfile) (models.Client, error) {
	if actor.Role != models.RoleAdmin && actor.ID != id {
		return models.Client{}, ErrForbidden
	}
	f := dbhelper.Fields{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return models.Client{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		f["name"] = name
	}
	setString(f, "email", p.Email)
	setString(f, "phone", p.Phone)
	c, err := s.gw.UpdateClient(ctx, id, f)
	if err != nil {
		return models.Client{}, translate(err)
	}
	s.sessions.Apply(actor.ID, store.ClientChanged(c))
	return c, nil
}
