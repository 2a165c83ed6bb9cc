package checkout

import (
	"github.com/safar/artisan-storefront/internal/config"
	"github.com/safar/artisan-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type Rates struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

// DefaultRates is 10% tax and a flat 100 shipping fee.
func DefaultRates() Rates {
	return Rates{
		TaxRate:     decimal.New(10, -2),
		ShippingFee: decimal.NewFromInt(100),
	}
}

func RatesFromConfig(cfg config.CheckoutConfig) Rates {
	return Rates{TaxRate: cfg.TaxRate, ShippingFee: cfg.ShippingFee}
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Shipping   decimal.Decimal `json:"shipping"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Calculate keeps full precision. Shipping is charged even on an empty cart.
func Calculate(items []models.CartLineItem, rates Rates) Totals {
	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.LineTotal())
	}
	tax := subtotal.Mul(rates.TaxRate)

	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   rates.ShippingFee,
		GrandTotal: subtotal.Add(tax).Add(rates.ShippingFee),
	}
}

type DisplayTotals struct {
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Shipping   string `json:"shipping"`
	GrandTotal string `json:"grandTotal"`
}

// Display rounds to two fraction digits for presentation only.
func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal:   t.Subtotal.StringFixed(2),
		Tax:        t.Tax.StringFixed(2),
		Shipping:   t.Shipping.StringFixed(2),
		GrandTotal: t.GrandTotal.StringFixed(2),
	}
}
