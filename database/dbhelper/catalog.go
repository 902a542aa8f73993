package dbhelper

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ray-remotestate/delivery/models"
)

func scanBusiness(s scanner) (models.Business, error) {
	var b models.Business
	var lat, lng sql.NullFloat64
	err := s.Scan(&b.ID, &b.Name, &b.Email, &b.Category, &b.Phone, &b.Address, &lat, &lng,
		&b.DeliveryFee, &b.DeliveryTime, &b.Image, &b.IsOpen, &b.IsActive, &b.Rating, &b.Promotions, &b.CreatedAt)
	if err != nil {
		return b, err
	}
	if lat.Valid && lng.Valid {
		b.Location = &models.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return b, nil
}

func ListBusinesses(ctx context.Context, ex SQLExecutor) ([]models.Business, error) {
	return queryAll(ctx, ex, Businesses, scanBusiness, selectAllQuery(Businesses))
}

func GetBusiness(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.Business, error) {
	return queryOne(ctx, ex, Businesses, scanBusiness, selectByIDQuery(Businesses), id)
}

func InsertBusiness(ctx context.Context, ex SQLExecutor, b models.Business) (models.Business, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Promotions == nil {
		b.Promotions = models.Promotions{}
	}
	var lat, lng any
	if b.Location != nil {
		lat, lng = b.Location.Lat, b.Location.Lng
	}
	query := fmt.Sprintf(`
		INSERT INTO businesses (id, name, email, category, phone, address, latitude, longitude,
			delivery_fee, delivery_time, image, is_open, is_active, rating, promotions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING %s`, Businesses.Columns())
	return queryOne(ctx, ex, Businesses, scanBusiness, query,
		b.ID, b.Name, b.Email, b.Category, b.Phone, b.Address, lat, lng,
		b.DeliveryFee, b.DeliveryTime, b.Image, b.IsOpen, b.IsActive, b.Rating, b.Promotions)
}

func UpdateBusiness(ctx context.Context, ex SQLExecutor, id uuid.UUID, fields Fields) (models.Business, error) {
	return update(ctx, ex, Businesses, id, fields, scanBusiness)
}

func scanProduct(s scanner) (models.Product, error) {
	var p models.Product
	err := s.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Price, &p.Description, &p.Image, &p.CreatedAt)
	return p, err
}

func ListProducts(ctx context.Context, ex SQLExecutor) ([]models.Product, error) {
	return queryAll(ctx, ex, Products, scanProduct, selectAllQuery(Products))
}

func GetProduct(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.Product, error) {
	return queryOne(ctx, ex, Products, scanProduct, selectByIDQuery(Products), id)
}

func ProductsByIDs(ctx context.Context, ex SQLExecutor, ids []uuid.UUID) ([]models.Product, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	query := fmt.Sprintf("SELECT %s FROM products WHERE id = ANY($1)", Products.Columns())
	return queryAll(ctx, ex, Products, scanProduct, query, pq.Array(strs))
}

func InsertProduct(ctx context.Context, ex SQLExecutor, p models.Product) (models.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO products (id, business_id, name, price, description, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, Products.Columns())
	return queryOne(ctx, ex, Products, scanProduct, query,
		p.ID, p.BusinessID, p.Name, p.Price, p.Description, p.Image)
}

func UpdateProduct(ctx context.Context, ex SQLExecutor, id uuid.UUID, fields Fields) (models.Product, error) {
	return update(ctx, ex, Products, id, fields, scanProduct)
}
