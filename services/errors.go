package services

import (
	"errors"
	"fmt"

	"github.com/ray-remotestate/delivery/database/dbhelper"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrAddressRequired = errors.New("delivery address is required")
	ErrInvalidCart     = errors.New("cart cannot be ordered")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("not allowed for this account")
	ErrAlreadyClaimed  = errors.New("order was already claimed")
	ErrOffline         = errors.New("delivery person is offline")
	ErrEmailTaken      = errors.New("email is already registered")
	ErrOrderChanged    = errors.New("order changed while updating it")
)

// translate maps gateway errors onto the service sentinels, keeping the
// original in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dbhelper.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, dbhelper.ErrConflict):
		return fmt.Errorf("%w: %w", ErrAlreadyClaimed, err)
	case errors.Is(err, dbhelper.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrEmailTaken, err)
	case errors.Is(err, dbhelper.ErrUnknownField), errors.Is(err, dbhelper.ErrNoFields):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
