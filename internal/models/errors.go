package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrForbiddenTransition = errors.New("status transition not allowed for role")
	ErrInvalidLineItem     = errors.New("invalid line item")
	ErrInvalidOrder        = errors.New("invalid order")
)

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
