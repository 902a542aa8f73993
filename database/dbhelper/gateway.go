package dbhelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record changed concurrently")
	ErrNoFields     = errors.New("no fields to update")
	ErrUnknownField = errors.New("field is not writable")
	ErrDuplicate    = errors.New("record already exists")
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Collection string

const (
	Businesses      Collection = "businesses"
	Orders          Collection = "orders"
	Products        Collection = "products"
	DeliveryPersons Collection = "delivery_persons"
	Clients         Collection = "clients"
)

// Fields is a partial record keyed by column name.
type Fields map[string]any

var columns = map[Collection][]string{
	Orders: {"id", "client_id", "business_id", "delivery_person_id", "items", "total_price",
		"delivery_address", "status", "created_at", "updated_at"},
	Businesses: {"id", "name", "email", "category", "phone", "address", "latitude", "longitude",
		"delivery_fee", "delivery_time", "image", "is_open", "is_active", "rating", "promotions", "created_at"},
	Products: {"id", "business_id", "name", "price", "description", "image", "created_at"},
	DeliveryPersons: {"id", "name", "email", "phone", "vehicle", "is_online", "is_active", "rating",
		"total_deliveries", "earnings", "created_at"},
	Clients: {"id", "name", "email", "phone", "is_active", "created_at"},
}

var writable = map[Collection]map[string]bool{
	Orders: set("status", "delivery_person_id", "items", "total_price", "delivery_address"),
	Businesses: set("name", "email", "category", "phone", "address", "latitude", "longitude",
		"delivery_fee", "delivery_time", "image", "is_open", "is_active", "rating", "promotions"),
	Products: set("name", "price", "description", "image"),
	DeliveryPersons: set("name", "email", "phone", "vehicle", "is_online", "is_active", "rating",
		"total_deliveries", "earnings"),
	Clients: set("name", "email", "phone", "is_active"),
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func (c Collection) Columns() string {
	return strings.Join(columns[c], ", ")
}

// Writable reports whether column can be changed through a partial update.
func (c Collection) Writable(column string) bool {
	return writable[c][column]
}

type scanner interface {
	Scan(dest ...any) error
}

func selectAllQuery(c Collection) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at", c.Columns(), c)
}

func selectByIDQuery(c Collection) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", c.Columns(), c)
}

// updateQuery builds UPDATE ... SET for the given fields in sorted key order.
func updateQuery(c Collection, id uuid.UUID, fields Fields) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, ErrNoFields
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !c.Writable(k) {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, c, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, argValue(fields[k]))
	}
	if c == Orders {
		sets = append(sets, "updated_at = now()")
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		c, strings.Join(sets, ", "), len(args), c.Columns())
	return query, args, nil
}

func argValue(v any) any {
	switch t := v.(type) {
	case *uuid.UUID:
		return nullableUUID(t)
	case uuid.UUID:
		return t.String()
	default:
		return v
	}
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func queryAll[T any](ctx context.Context, ex SQLExecutor, c Collection, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", c, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c, err)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, ex SQLExecutor, c Collection, scan func(scanner) (T, error), query string, args ...any) (T, error) {
	rec, err := scan(ex.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%s: %w", c, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("query on %s failed: %w", c, err)
	}
	return rec, nil
}

func update[T any](ctx context.Context, ex SQLExecutor, c Collection, id uuid.UUID, fields Fields, scan func(scanner) (T, error)) (T, error) {
	query, args, err := updateQuery(c, id, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	return queryOne(ctx, ex, c, scan, query, args...)
}

// Remove deletes a record by id from any collection.
func Remove(ctx context.Context, ex SQLExecutor, c Collection, id uuid.UUID) error {
	if _, ok := columns[c]; !ok {
		return fmt.Errorf("unknown collection %q", c)
	}
	res, err := ex.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", c), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", c, ErrNotFound)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
