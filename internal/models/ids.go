package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NewOrderIdentity returns a time-ordered order id and the customer-facing
// order number derived from the id's timestamp.
func NewOrderIdentity() (id string, number string, err error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", "", fmt.Errorf("generate order id: %w", err)
	}
	return u.String(), OrderNumberFor(u), nil
}

func OrderNumberFor(u uuid.UUID) string {
	sec, nsec := u.Time().UnixTime()
	return fmt.Sprintf("KK%d", sec*1000+nsec/1_000_000)
}
