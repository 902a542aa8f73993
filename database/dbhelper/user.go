package dbhelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/ray-remotestate/delivery/models"
)

var ErrInvalidCredentials = errors.New("incorrect email or password")

// uniqueViolation is the postgres error code for a broken unique index.
const uniqueViolation = "23505"

// CreateUser inserts a login. An email already held by an active user comes
// back as ErrDuplicate.
func CreateUser(ctx context.Context, ex SQLExecutor, name, email, hashedPassword string, role models.Role) (uuid.UUID, error) {
	var id uuid.UUID
	err := ex.QueryRowContext(ctx, `INSERT INTO users (name, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, email, hashedPassword, role).Scan(&id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return uuid.Nil, fmt.Errorf("users %s: %w", email, ErrDuplicate)
	}
	return id, err
}

func IsUserExists(ctx context.Context, ex SQLExecutor, email string) (bool, error) {
	var count int
	err := ex.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL`, email).Scan(&count)
	return count > 0, err
}

func GetUserByPassword(ctx context.Context, ex SQLExecutor, email, password string) (models.User, error) {
	var u models.User
	err := ex.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, created_at FROM users
		WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	u.Password = ""
	return u, nil
}

func GetUserByID(ctx context.Context, ex SQLExecutor, id uuid.UUID) (models.User, error) {
	var u models.User
	err := ex.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at FROM users
		WHERE id = $1 AND archived_at IS NULL`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("users: %w", ErrNotFound)
	}
	return u, err
}

// ArchiveUser soft-deletes the login tied to a profile, if there is one.
func ArchiveUser(ctx context.Context, ex SQLExecutor, id uuid.UUID) error {
	_, err := ex.ExecContext(ctx, `UPDATE users SET archived_at = now() WHERE id = $1 AND archived_at IS NULL`, id)
	return err
}

// EnsureAdmin creates the admin login when no active user holds the email.
// It returns false when the account was already there.
func EnsureAdmin(ctx context.Context, ex SQLExecutor, name, email, hashedPassword string) (bool, error) {
	exists, err := IsUserExists(ctx, ex, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := CreateUser(ctx, ex, name, email, hashedPassword, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
