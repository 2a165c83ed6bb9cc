package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/safar/artisan-storefront/internal/database"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/safar/artisan-storefront/internal/models"
	"go.uber.org/zap"
)

const CartKey = "cart"

// CartStore owns the buyer's line items. The in-memory slice is the source of
// truth; every mutation schedules a best-effort write of the whole cart.
type CartStore struct {
	mu     sync.RWMutex
	items  []models.CartLineItem
	writer *writer
	logger *zap.Logger
}

func NewCartStore(ctx context.Context, kv database.KV, logger *zap.Logger) *CartStore {
	logger = logging.OrNop(logger).Named("cart")

	items, _ := hydrate(ctx, kv, CartKey, logger, func(items []models.CartLineItem) error {
		return validateUnique(items,
			func(li models.CartLineItem) string { return li.ProductID },
			models.CartLineItem.Validate)
	})

	return &CartStore{
		items:  items,
		writer: newWriter(kv, CartKey, logger),
		logger: logger,
	}
}

// AddItem merges into an existing line by product id or appends a new line
// with quantity 1.
func (s *CartStore) AddItem(p models.Product) error {
	if p.ID == "" || p.Price.IsNegative() {
		return fmt.Errorf("%w: id %q price %s", ErrInvalidProduct, p.ID, p.Price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, models.NewCartLineItem(p))
	}
	s.logger.Debug("item added", zap.String("product_id", p.ID))
	s.persist()
	return nil
}

func (s *CartStore) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(productID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.persist()
}

// UpdateQuantity steps the quantity up or down by one. It never goes below 1;
// removing a line is RemoveItem's job.
func (s *CartStore) UpdateQuantity(productID string, increment bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	if increment {
		s.items[i].Quantity++
	} else if s.items[i].Quantity > 1 {
		s.items[i].Quantity--
	}
	s.persist()
}

func (s *CartStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist()
}

// RemoveOrdered takes the quantities of a placed order out of the cart. Units
// added while the order was being placed stay in the cart.
func (s *CartStore) RemoveOrdered(ordered []models.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, li := range ordered {
		i := s.indexOf(li.ProductID)
		if i < 0 {
			continue
		}
		if s.items[i].Quantity > li.Quantity {
			s.items[i].Quantity -= li.Quantity
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	if len(s.items) == 0 {
		s.items = nil
	}
	s.persist()
}

// GetAll returns a copy of the line items in insertion order.
func (s *CartStore) GetAll() []models.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.CartLineItem{}, s.items...)
}

// Count is the total number of units, as shown on the cart badge.
func (s *CartStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, li := range s.items {
		n += li.Quantity
	}
	return n
}

func (s *CartStore) Flush(ctx context.Context) error { return s.writer.Flush(ctx) }

func (s *CartStore) Close(ctx context.Context) error { return s.writer.Close(ctx) }

func (s *CartStore) indexOf(productID string) int {
	for i, li := range s.items {
		if li.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *CartStore) persist() {
	items := s.items
	if items == nil {
		items = []models.CartLineItem{}
	}
	s.writer.save(items)
}
