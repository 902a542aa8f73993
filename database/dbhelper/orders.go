package dbhelper

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/models"
)

func scanOrder(s scanner) (models.Order, error) {
	var o models.Order
	var dp uuid.NullUUID
	err := s.Scan(&o.ID, &o.ClientID, &o.BusinessID, &dp, &o.Items, &o.TotalPrice,
		&o.DeliveryAddress, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if dp.Valid {
		id := dp.UUID
		o.DeliveryPersonID = &id
	}
	return o, nil
}

func ListOrders(ctx context.Context, ex SQLExecutor) ([]models.Order, error) {
	return queryAll(ctx, ex, Orders, scanOrder, selectAllQuery(Orders))
}

func GetOrder(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.Order, error) {
	return queryOne(ctx, ex, Orders, scanOrder, selectByIDQuery(Orders), id)
}

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func GetOrderForUpdate(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.Order, error) {
	return queryOne(ctx, ex, Orders, scanOrder, selectByIDQuery(Orders)+" FOR UPDATE", id)
}

func InsertOrder(ctx context.Context, ex SQLExecutor, o models.Order) (models.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Items == nil {
		o.Items = models.OrderItems{}
	}
	query := fmt.Sprintf(`
		INSERT INTO orders (id, client_id, business_id, delivery_person_id, items, total_price, delivery_address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, Orders.Columns())
	return queryOne(ctx, ex, Orders, scanOrder, query,
		o.ID, o.ClientID, o.BusinessID, nullableUUID(o.DeliveryPersonID), o.Items, o.TotalPrice, o.DeliveryAddress, o.Status)
}

func UpdateOrder(ctx context.Context, ex SQLExecutor, id uuid.UUID, fields Fields) (models.Order, error) {
	return update(ctx, ex, Orders, id, fields, scanOrder)
}

// ClaimOrder assigns a ready, unassigned order and moves it to delivering in
// one conditional statement. ErrConflict means another delivery person got
// there first or the order is no longer ready; ErrNotFound means there is no
// such order.
func ClaimOrder(ctx context.Context, ex SQLExecutor, orderID, deliveryPersonID uuid.UUID) (models.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders SET delivery_person_id = $1, status = $2, updated_at = now()
		WHERE id = $3 AND status = $4 AND delivery_person_id IS NULL
		RETURNING %s`, Orders.Columns())
	o, err := queryOne(ctx, ex, Orders, scanOrder, query,
		deliveryPersonID, models.StatusDelivering, orderID, models.StatusReady)
	if err == nil {
		return o, nil
	}
	if !isNotFound(err) {
		return o, err
	}
	if _, err := GetOrder(ctx, ex, orderID); err != nil {
		return models.Order{}, err
	}
	return models.Order{}, fmt.Errorf("claim order %s: %w", orderID, ErrConflict)
}

func DeliveredOrdersFor(ctx context.Context, ex SQLExecutor, deliveryPersonID uuid.UUID) ([]models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE delivery_person_id = $1 AND status = $2 ORDER BY created_at", Orders.Columns())
	return queryAll(ctx, ex, Orders, scanOrder, query, deliveryPersonID, models.StatusDelivered)
}

func InsertStatusLog(ctx context.Context, ex SQLExecutor, orderID uuid.UUID, from, to models.OrderStatus, changedBy uuid.UUID) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by)
		VALUES ($1, $2, $3, $4)`, orderID, from, to, changedBy)
	if err != nil {
		return fmt.Errorf("failed to log status change: %w", err)
	}
	return nil
}

func StatusHistory(ctx context.Context, ex SQLExecutor, orderID uuid.UUID) ([]models.StatusLog, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	logs := make([]models.StatusLog, 0)
	for rows.Next() {
		var l models.StatusLog
		if err := rows.Scan(&l.ID, &l.OrderID, &l.FromStatus, &l.ToStatus, &l.ChangedBy, &l.ChangedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
