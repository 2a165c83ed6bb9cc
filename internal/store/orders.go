package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/safar/artisan-storefront/internal/database"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/safar/artisan-storefront/internal/models"
	"go.uber.org/zap"
)

const OrdersKey = "orders"

// OrderFilter selects the tabs of the "My Orders" screen.
type OrderFilter string

const (
	OrderFilterAll       OrderFilter = ""
	OrderFilterActive    OrderFilter = "active"
	OrderFilterDelivered OrderFilter = "delivered"
	OrderFilterCancelled OrderFilter = "cancelled"
)

func ParseOrderFilter(s string) (OrderFilter, error) {
	switch f := OrderFilter(strings.ToLower(s)); f {
	case OrderFilterAll, OrderFilterActive, OrderFilterDelivered, OrderFilterCancelled:
		return f, nil
	}
	return "", fmt.Errorf("unknown order filter %q", s)
}

func (f OrderFilter) Match(status models.OrderStatus) bool {
	switch f {
	case OrderFilterActive:
		return !status.IsTerminal()
	case OrderFilterDelivered:
		return status == models.OrderStatusDelivered
	case OrderFilterCancelled:
		return status == models.OrderStatusCancelled
	}
	return true
}

type OrderStore struct {
	mu     sync.RWMutex
	orders []models.Order
	kv     database.KV
	writer *writer
	logger *zap.Logger

	// unreadable is set when the startup read failed. Nothing is written
	// until the stored history has been read back, so it is never replaced
	// by the orders of this session alone.
	unreadable bool
}

func validateOrders(orders []models.Order) error {
	return validateUnique(orders,
		func(o models.Order) string { return o.OrderID },
		models.Order.Validate)
}

// NewOrderStore hydrates key "orders". On the very first run, when nothing
// has ever been stored, it seeds the example orders and persists them.
func NewOrderStore(ctx context.Context, kv database.KV, logger *zap.Logger) *OrderStore {
	logger = logging.OrNop(logger).Named("orders")

	orders, result := hydrate(ctx, kv, OrdersKey, logger, validateOrders)

	s := &OrderStore{
		orders:     orders,
		kv:         kv,
		writer:     newWriter(kv, OrdersKey, logger),
		logger:     logger,
		unreadable: result == hydrateUnreadable,
	}

	if result == hydrateMissing {
		logger.Info("no stored orders, seeding examples")
		s.mu.Lock()
		s.orders = SeedOrders()
		s.persist()
		s.mu.Unlock()
	}

	return s
}

// AddOrder stores a private copy of the order; later changes to the caller's
// slices do not reach the stored order.
func (s *OrderStore) AddOrder(order models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(order.OrderID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.OrderID)
	}
	s.orders = append(s.orders, order.Clone())
	s.logger.Info("order added",
		zap.String("order_id", order.OrderID),
		zap.String("order_number", order.OrderNumber))
	s.persist()
	return nil
}

// UpdateOrderStatus applies a legal transition. Illegal ones are rejected
// before anything changes.
func (s *OrderStore) UpdateOrderStatus(orderID string, status models.OrderStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(orderID)
	if i < 0 {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err := models.CheckTransition(s.orders[i].Status, status); err != nil {
		return models.Order{}, err
	}

	from := s.orders[i].Status
	s.orders[i].Status = status
	s.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.Stringer("from", from),
		zap.Stringer("to", status))
	s.persist()
	return s.orders[i].Clone(), nil
}

func (s *OrderStore) GetOrder(orderID string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(orderID)
	if i < 0 {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return s.orders[i].Clone(), nil
}

func (s *OrderStore) GetAll() []models.Order {
	return s.filter(OrderFilterAll)
}

// List returns one page of the orders matching filter, in placement order.
func (s *OrderStore) List(filter OrderFilter, page, pageSize int) *OffsetPage[models.Order] {
	return Paginate(s.filter(filter), page, pageSize)
}

func (s *OrderStore) Flush(ctx context.Context) error { return s.writer.Flush(ctx) }

func (s *OrderStore) Close(ctx context.Context) error { return s.writer.Close(ctx) }

func (s *OrderStore) filter(f OrderFilter) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range s.orders {
		if f.Match(o.Status) {
			orders = append(orders, o.Clone())
		}
	}
	return orders
}

func (s *OrderStore) indexOf(orderID string) int {
	for i, o := range s.orders {
		if o.OrderID == orderID {
			return i
		}
	}
	return -1
}

func (s *OrderStore) persist() {
	if s.unreadable && !s.reload() {
		s.logger.Error("stored orders still unreadable, keeping changes in memory",
			zap.Int("orders", len(s.orders)))
		return
	}

	orders := s.orders
	if orders == nil {
		orders = []models.Order{}
	}
	s.writer.save(orders)
}

// reload retries the read that failed at startup and puts the stored history
// ahead of the orders placed since. Orders known in memory win on id clashes.
func (s *OrderStore) reload() bool {
	stored, result := hydrate(context.Background(), s.kv, OrdersKey, s.logger, validateOrders)
	if result == hydrateUnreadable {
		return false
	}
	s.unreadable = false

	current := make(map[string]struct{}, len(s.orders))
	for _, o := range s.orders {
		current[o.OrderID] = struct{}{}
	}
	merged := make([]models.Order, 0, len(stored)+len(s.orders))
	for _, o := range stored {
		if _, ok := current[o.OrderID]; !ok {
			merged = append(merged, o)
		}
	}
	s.orders = append(merged, s.orders...)

	s.logger.Info("stored orders recovered", zap.Int("stored", len(stored)))
	return true
}
