package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// legacyPlaced is what early app builds stored for a new order.
const legacyPlaced = "placed"

func ParseOrderStatus(s string) (OrderStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == legacyPlaced {
		return OrderStatusPending, nil
	}
	status := OrderStatus(v)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Next returns the happy-path successor.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPending:
		return OrderStatusProcessing, true
	case OrderStatusProcessing:
		return OrderStatusShipped, true
	case OrderStatusShipped:
		return OrderStatusDelivered, true
	}
	return "", false
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s.IsTerminal() || !to.Valid() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	next, ok := s.Next()
	return ok && next == to
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

func CheckTransition(from, to OrderStatus) error {
	if !from.CanTransition(to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// Role is the kind of actor asking for a status change.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleBuyer, RoleSeller:
		return r, nil
	case "artisan":
		return RoleSeller, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrForbiddenTransition, s)
}

// Authorize checks both the state machine and who may drive it: sellers
// advance and cancel, buyers may only cancel.
func Authorize(role Role, from, to OrderStatus) error {
	if err := CheckTransition(from, to); err != nil {
		return err
	}
	switch role {
	case RoleSeller:
		return nil
	case RoleBuyer:
		if to == OrderStatusCancelled {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot move an order to %s", ErrForbiddenTransition, role, to)
}
