package models

import (
	"errors"
	"fmt"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusDelivering OrderStatus = "delivering"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var ErrUnknownStatus = errors.New("unknown order status")

// transitions lists the forward step of every non-terminal status.
// cancelled is reachable from all of them and is added in CanTransitionTo.
var transitions = map[OrderStatus]OrderStatus{
	StatusPending:    StatusAccepted,
	StatusAccepted:   StatusPreparing,
	StatusPreparing:  StatusReady,
	StatusReady:      StatusDelivering,
	StatusDelivering: StatusDelivered,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPreparing, StatusReady,
		StatusDelivering, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the forward step, or false for terminal statuses.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := transitions[s]
	return next, ok
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.IsTerminal() || !to.IsValid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return transitions[s] == to
}

// ValidateTransition returns an error wrapping ErrInvalidTransition when
// from -> to is not an edge of the order lifecycle.
func ValidateTransition(from, to OrderStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
