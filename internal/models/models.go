package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalogue shape a screen hands to the cart or wishlist.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageRef   string          `json:"imageRef,omitempty"`
	ArtisanRef string          `json:"artisanRef,omitempty"`
}

type CartLineItem struct {
	ProductID  string          `json:"productId"`
	Quantity   int             `json:"quantity"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageRef   string          `json:"imageRef,omitempty"`
	ArtisanRef string          `json:"artisanRef,omitempty"`
}

func NewCartLineItem(p Product) CartLineItem {
	return CartLineItem{
		ProductID:  p.ID,
		Quantity:   1,
		Name:       p.Name,
		Price:      p.Price,
		ImageRef:   p.ImageRef,
		ArtisanRef: p.ArtisanRef,
	}
}

func (li CartLineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li CartLineItem) Validate() error {
	if li.ProductID == "" {
		return fmt.Errorf("%w: missing productId", ErrInvalidLineItem)
	}
	if li.Quantity < 1 {
		return fmt.Errorf("%w: quantity %d for %s", ErrInvalidLineItem, li.Quantity, li.ProductID)
	}
	if li.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidLineItem, li.ProductID)
	}
	return nil
}

type WishlistEntry struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageRef  string          `json:"imageRef,omitempty"`
}

func NewWishlistEntry(p Product) WishlistEntry {
	return WishlistEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageRef:  p.ImageRef,
	}
}

func (e WishlistEntry) Validate() error {
	if e.ProductID == "" {
		return fmt.Errorf("%w: missing productId", ErrInvalidLineItem)
	}
	return nil
}

type ShippingAddress struct {
	HouseNo    string `json:"houseNo"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

func (a ShippingAddress) String() string {
	return strings.Join([]string{a.HouseNo, a.Street, a.City, a.State, a.PostalCode}, ", ")
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentUPI            PaymentMethod = "UPI Payment"
	PaymentCard           PaymentMethod = "Card Payment"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentUPI, PaymentCard:
		return true
	}
	return false
}

// Order is a placed purchase. LineItems is a snapshot taken at placement and
// never changes afterwards; only Status moves.
type Order struct {
	OrderID         string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	Status          OrderStatus     `json:"status"`
	LineItems       []CartLineItem  `json:"lineItems"`
	ItemsSummary    string          `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Address         string          `json:"address"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod,omitempty"`
	CreatedAt       time.Time       `json:"date"`
}

func (o Order) Validate() error {
	if o.OrderID == "" {
		return fmt.Errorf("%w: missing orderId", ErrInvalidOrder)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: %s has status %q", ErrInvalidOrder, o.OrderID, o.Status)
	}
	for _, li := range o.LineItems {
		if err := li.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidOrder, o.OrderID, err)
		}
	}
	return nil
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	o.LineItems = append([]CartLineItem(nil), o.LineItems...)
	return o
}

// ItemsSummary renders the "N items" label shown on order cards.
func ItemsSummary(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
