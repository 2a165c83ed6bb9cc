package checkout

import (
	"testing"

	"github.com/safar/artisan-storefront/internal/config"
	"github.com/safar/artisan-storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func lineItem(id string, price int64, qty int) models.CartLineItem {
	return models.CartLineItem{ProductID: id, Name: "Item " + id, Price: decimal.NewFromInt(price), Quantity: qty}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.CartLineItem
		subtotal string
		tax      string
		grand    string
	}{
		{
			name:     "two lines",
			items:    []models.CartLineItem{lineItem("a", 100, 2), lineItem("b", 250, 1)},
			subtotal: "450",
			tax:      "45",
			grand:    "595",
		},
		{
			name:     "empty cart still pays shipping",
			items:    nil,
			subtotal: "0",
			tax:      "0",
			grand:    "100",
		},
		{
			name:     "end to end basket",
			items:    []models.CartLineItem{lineItem("a", 750, 1), lineItem("b", 500, 2)},
			subtotal: "1750",
			tax:      "175",
			grand:    "2025",
		},
		{
			name: "fractional prices keep precision",
			items: []models.CartLineItem{
				{ProductID: "c", Price: decimal.RequireFromString("99.99"), Quantity: 3},
			},
			subtotal: "299.97",
			tax:      "29.997",
			grand:    "429.967",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.items, DefaultRates())
			assertDecimal(t, tt.subtotal, got.Subtotal)
			assertDecimal(t, tt.tax, got.Tax)
			assertDecimal(t, "100", got.Shipping)
			assertDecimal(t, tt.grand, got.GrandTotal)
		})
	}
}

func TestDisplayRoundsToTwoPlaces(t *testing.T) {
	got := Calculate([]models.CartLineItem{
		{ProductID: "c", Price: decimal.RequireFromString("99.99"), Quantity: 3},
	}, DefaultRates()).Display()

	assert.Equal(t, DisplayTotals{
		Subtotal:   "299.97",
		Tax:        "30.00",
		Shipping:   "100.00",
		GrandTotal: "429.97",
	}, got)
}

func TestRatesFromConfig(t *testing.T) {
	rates := RatesFromConfig(config.CheckoutConfig{
		TaxRate:     decimal.RequireFromString("0.18"),
		ShippingFee: decimal.NewFromInt(50),
	})

	got := Calculate([]models.CartLineItem{lineItem("a", 100, 1)}, rates)
	assertDecimal(t, "18", got.Tax)
	assertDecimal(t, "168", got.GrandTotal)
}
