package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/events"
	"github.com/ray-remotestate/delivery/models"
)

// Actor is the signed-in account performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

type OrderGateway interface {
	GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error)
	GetBusiness(ctx context.Context, id uuid.UUID) (models.Business, error)
	GetDeliveryPerson(ctx context.Context, id uuid.UUID) (models.DeliveryPerson, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	InsertOrder(ctx context.Context, o models.Order) (models.Order, error)
	EditOrder(ctx context.Context, orderID, changedBy uuid.UUID, edit func(models.Order) (dbhelper.Fields, error)) (models.Order, models.OrderStatus, error)
	ClaimOrder(ctx context.Context, orderID, deliveryPersonID uuid.UUID) (models.Order, error)
	TransitionOrder(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, changedBy uuid.UUID, guard func(models.Order) error) (models.Order, models.OrderStatus, error)
	CompleteDelivery(ctx context.Context, orderID, deliveryPersonID uuid.UUID, guard func(models.Order) error) (models.Order, models.DeliveryPerson, error)
	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.StatusLog, error)
}

type DeliveryGateway interface {
	GetDeliveryPerson(ctx context.Context, id uuid.UUID) (models.DeliveryPerson, error)
	UpdateDeliveryPerson(ctx context.Context, id uuid.UUID, fields dbhelper.Fields) (models.DeliveryPerson, error)
	DeliveredOrdersFor(ctx context.Context, deliveryPersonID uuid.UUID) ([]models.Order, error)
}

type CatalogGateway interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (models.Business, error)
	InsertBusiness(ctx context.Context, b models.Business) (models.Business, error)
	UpdateBusiness(ctx context.Context, id uuid.UUID, fields dbhelper.Fields) (models.Business, error)
	GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error)
	InsertProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fields dbhelper.Fields) (models.Product, error)
	GetClient(ctx context.Context, id uuid.UUID) (models.Client, error)
	InsertClient(ctx context.Context, c models.Client) (models.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, fields dbhelper.Fields) (models.Client, error)
	GetDeliveryPerson(ctx context.Context, id uuid.UUID) (models.DeliveryPerson, error)
	InsertDeliveryPerson(ctx context.Context, d models.DeliveryPerson) (models.DeliveryPerson, error)
	UpdateDeliveryPerson(ctx context.Context, id uuid.UUID, fields dbhelper.Fields) (models.DeliveryPerson, error)
	Remove(ctx context.Context, c dbhelper.Collection, id uuid.UUID) error
}

const publishTimeout = 5 * time.Second

// publish hands the event to the publisher without tying it to the request
// lifetime. Failures are logged only.
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, e); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id": e.OrderID,
			"type":     e.Type,
		}).Warn("failed to publish order event")
	}
}
