package store

import (
	"time"

	"github.com/safar/artisan-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// SeedOrders are the example orders a fresh install shows under "My Orders".
func SeedOrders() []models.Order {
	ist := time.FixedZone("IST", 5*60*60+30*60)

	item := func(id, name string, price int64) models.CartLineItem {
		return models.CartLineItem{ProductID: id, Quantity: 1, Name: name, Price: decimal.NewFromInt(price)}
	}

	orders := []models.Order{
		{
			OrderID:     "1",
			OrderNumber: "KK1737659915561",
			Status:      models.OrderStatusPending,
			LineItems:   []models.CartLineItem{item("seed-basket", "Handwoven Bamboo Basket", 750)},
			TotalAmount: decimal.NewFromInt(750),
			Address:     "123 Main St, City, Country",
			CreatedAt:   time.Date(2025, 1, 24, 10, 0, 0, 0, ist),
		},
		{
			OrderID:     "2",
			OrderNumber: "KK1737659915562",
			Status:      models.OrderStatusDelivered,
			LineItems: []models.CartLineItem{
				item("seed-vase", "Terracotta Vase", 700),
				item("seed-lamp", "Brass Diya Lamp", 500),
			},
			TotalAmount: decimal.NewFromInt(1200),
			Address:     "456 Elm St, City, Country",
			CreatedAt:   time.Date(2025, 1, 23, 10, 0, 0, 0, ist),
		},
		{
			OrderID:     "3",
			OrderNumber: "KK1737659915563",
			Status:      models.OrderStatusCancelled,
			LineItems: []models.CartLineItem{
				item("seed-stole", "Pashmina Stole", 500),
				item("seed-toy", "Channapatna Toy", 500),
				item("seed-print", "Madhubani Print", 500),
			},
			TotalAmount: decimal.NewFromInt(1500),
			Address:     "789 Oak St, City, Country",
			CreatedAt:   time.Date(2025, 1, 22, 10, 0, 0, 0, ist),
		},
	}

	for i := range orders {
		orders[i].ItemsSummary = models.ItemsSummary(len(orders[i].LineItems))
	}
	return orders
}
