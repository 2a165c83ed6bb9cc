package store

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
	ErrInvalidProduct = errors.New("invalid product")
)
