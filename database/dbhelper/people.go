package dbhelper

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/models"
)

func scanDeliveryPerson(s scanner) (models.DeliveryPerson, error) {
	var d models.DeliveryPerson
	err := s.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Vehicle, &d.IsOnline, &d.IsActive,
		&d.Rating, &d.TotalDeliveries, &d.Earnings, &d.CreatedAt)
	return d, err
}

func ListDeliveryPersons(ctx context.Context, ex SQLExecutor) ([]models.DeliveryPerson, error) {
	return queryAll(ctx, ex, DeliveryPersons, scanDeliveryPerson, selectAllQuery(DeliveryPersons))
}

func GetDeliveryPerson(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.DeliveryPerson, error) {
	return queryOne(ctx, ex, DeliveryPersons, scanDeliveryPerson, selectByIDQuery(DeliveryPersons), id)
}

func InsertDeliveryPerson(ctx context.Context, ex SQLExecutor, d models.DeliveryPerson) (models.DeliveryPerson, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO delivery_persons (id, name, email, phone, vehicle, is_online, is_active, rating, total_deliveries, earnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, DeliveryPersons.Columns())
	return queryOne(ctx, ex, DeliveryPersons, scanDeliveryPerson, query,
		d.ID, d.Name, d.Email, d.Phone, d.Vehicle, d.IsOnline, d.IsActive, d.Rating, d.TotalDeliveries, d.Earnings)
}

func UpdateDeliveryPerson(ctx context.Context, ex SQLExecutor, id uuid.UUID, fields Fields) (models.DeliveryPerson, error) {
	return update(ctx, ex, DeliveryPersons, id, fields, scanDeliveryPerson)
}

// CreditDelivery adds one delivery and its commission to the running totals.
func CreditDelivery(ctx context.Context, ex SQLExecutor, id uuid.UUID, commission float64) (models.DeliveryPerson, error) {
	query := fmt.Sprintf(`
		UPDATE delivery_persons
		SET earnings = earnings + $1, total_deliveries = total_deliveries + 1
		WHERE id = $2
		RETURNING %s`, DeliveryPersons.Columns())
	return queryOne(ctx, ex, DeliveryPersons, scanDeliveryPerson, query, commission, id)
}

func scanClient(s scanner) (models.Client, error) {
	var c models.Client
	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt)
	return c, err
}

func ListClients(ctx context.Context, ex SQLExecutor) ([]models.Client, error) {
	return queryAll(ctx, ex, Clients, scanClient, selectAllQuery(Clients))
}

func GetClient(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.Client, error) {
	return queryOne(ctx, ex, Clients, scanClient, selectByIDQuery(Clients), id)
}

func InsertClient(ctx context.Context, ex SQLExecutor, c models.Client) (models.Client, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO clients (id, name, email, phone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, Clients.Columns())
	return queryOne(ctx, ex, Clients, scanClient, query, c.ID, c.Name, c.Email, c.Phone, c.IsActive)
}

func UpdateClient(ctx context.Context, ex SQLExecutor, id uuid.UUID, fields Fields) (models.Client, error) {
	return update(ctx, ex, Clients, id, fields, scanClient)
}
