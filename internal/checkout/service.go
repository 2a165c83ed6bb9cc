package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/safar/artisan-storefront/internal/backend"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/safar/artisan-storefront/internal/models"
	"github.com/safar/artisan-storefront/internal/store"
	"go.uber.org/zap"
)

// OrderBackend is the part of the remote order service checkout depends on.
type OrderBackend interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) (*backend.OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*backend.OrderResponse, error)
	ListOrders(ctx context.Context) ([]backend.OrderResponse, error)
}

type Service struct {
	// mu serializes checkout and status changes so a double submit cannot
	// turn one cart into two orders.
	mu      sync.Mutex
	cart    *store.CartStore
	orders  *store.OrderStore
	backend OrderBackend
	rates   Rates
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(cart *store.CartStore, orders *store.OrderStore, b OrderBackend, rates Rates, logger *zap.Logger) *Service {
	return &Service{
		cart:    cart,
		orders:  orders,
		backend: b,
		rates:   rates,
		logger:  logging.OrNop(logger).Named("checkout"),
		now:     time.Now,
	}
}

// Quote prices the current cart without touching it.
func (s *Service) Quote() Totals {
	return Calculate(s.cart.GetAll(), s.rates)
}

type PlaceOrderRequest struct {
	Address       models.ShippingAddress `json:"address"`
	PaymentMethod models.PaymentMethod   `json:"paymentMethod"`
}

// PlaceOrder turns the cart into a pending order. The ordered lines leave the
// cart only after the backend accepted the order and it was stored locally;
// anything added meanwhile stays for the next checkout.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (models.Order, error) {
	addr, err := ValidateAddress(req.Address)
	if err != nil {
		return models.Order{}, err
	}
	method, err := ParsePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		return models.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cart.GetAll()
	if len(items) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	totals := Calculate(items, s.rates)

	id, number, err := models.NewOrderIdentity()
	if err != nil {
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}

	resp, err := s.backend.CreateOrder(ctx, createOrderRequest(number, items, totals, addr, method))
	if err != nil {
		s.logger.Warn("backend rejected order, cart kept",
			zap.String("order_number", number),
			zap.Error(err))
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}
	if resp.ID != "" {
		id = resp.ID
	}
	if resp.OrderNumber != "" {
		number = resp.OrderNumber
	}

	order := models.Order{
		OrderID:         id,
		OrderNumber:     number,
		Status:          models.OrderStatusPending,
		LineItems:       items,
		ItemsSummary:    models.ItemsSummary(len(items)),
		TotalAmount:     totals.GrandTotal,
		Address:         addr.String(),
		ShippingAddress: addr,
		PaymentMethod:   method,
		CreatedAt:       s.now(),
	}
	if err := s.orders.AddOrder(order); err != nil {
		s.logger.Error("order accepted by backend but not stored locally",
			zap.String("order_id", id),
			zap.Error(err))
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}
	s.cart.RemoveOrdered(items)

	s.logger.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", totals.GrandTotal.StringFixed(2)),
		zap.Int("line_items", len(items)))
	return order.Clone(), nil
}

// UpdateStatus checks the role locally before asking the backend, so a
// forbidden change never leaves the device.
func (s *Service) UpdateStatus(ctx context.Context, role models.Role, orderID string, status models.OrderStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.orders.GetOrder(orderID)
	if err != nil {
		return models.Order{}, err
	}
	if err := models.Authorize(role, current.Status, status); err != nil {
		return models.Order{}, err
	}

	if _, err := s.backend.UpdateOrderStatus(ctx, orderID, status.String()); err != nil {
		s.logger.Warn("backend rejected status change",
			zap.String("order_id", orderID),
			zap.Stringer("to", status),
			zap.Error(err))
		return models.Order{}, fmt.Errorf("update order status: %w", err)
	}

	return s.orders.UpdateOrderStatus(orderID, status)
}

func (s *Service) CancelOrder(ctx context.Context, role models.Role, orderID string) (models.Order, error) {
	return s.UpdateStatus(ctx, role, orderID, models.OrderStatusCancelled)
}

// LookupOrder serves an order from the local history and asks the backend
// only for orders this device never placed.
func (s *Service) LookupOrder(ctx context.Context, orderID string) (models.Order, error) {
	order, err := s.orders.GetOrder(orderID)
	if !errors.Is(err, store.ErrOrderNotFound) {
		return order, err
	}

	resp, berr := s.backend.GetOrder(ctx, orderID)
	if berr != nil {
		var nerr *backend.NetworkError
		if errors.As(berr, &nerr) && nerr.StatusCode == http.StatusNotFound {
			return models.Order{}, err
		}
		return models.Order{}, fmt.Errorf("lookup order: %w", berr)
	}
	return orderFromBackend(*resp)
}

// BackendOrders lists every order the backend holds, including ones placed
// from other devices. Nothing is written to the local history.
func (s *Service) BackendOrders(ctx context.Context) ([]models.Order, error) {
	resps, err := s.backend.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backend orders: %w", err)
	}

	orders := make([]models.Order, 0, len(resps))
	for _, resp := range resps {
		order, err := orderFromBackend(resp)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func orderFromBackend(resp backend.OrderResponse) (models.Order, error) {
	status, err := models.ParseOrderStatus(resp.Status)
	if err != nil {
		return models.Order{}, &backend.NetworkError{Op: "decode order " + resp.ID, Err: err}
	}

	items := make([]models.CartLineItem, len(resp.Products))
	for i, p := range resp.Products {
		items[i] = models.CartLineItem{ProductID: p.Product, Quantity: p.Quantity, Price: p.Price}
	}

	// The backend keeps house number and street in one field.
	addr := models.ShippingAddress{
		Street:     resp.ShippingAddress.Street,
		City:       resp.ShippingAddress.City,
		State:      resp.ShippingAddress.State,
		PostalCode: resp.ShippingAddress.PostalCode,
	}
	var parts []string
	for _, part := range []string{addr.Street, addr.City, addr.State, addr.PostalCode} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return models.Order{
		OrderID:         resp.ID,
		OrderNumber:     resp.OrderNumber,
		Status:          status,
		LineItems:       items,
		ItemsSummary:    models.ItemsSummary(len(items)),
		TotalAmount:     resp.TotalAmount,
		Address:         strings.Join(parts, ", "),
		ShippingAddress: addr,
		PaymentMethod:   models.PaymentMethod(resp.PaymentMethod),
		CreatedAt:       resp.CreatedAt,
	}, nil
}

func createOrderRequest(number string, items []models.CartLineItem, totals Totals, addr models.ShippingAddress, method models.PaymentMethod) backend.CreateOrderRequest {
	products := make([]backend.OrderProduct, len(items))
	for i, li := range items {
		products[i] = backend.OrderProduct{Product: li.ProductID, Quantity: li.Quantity, Price: li.Price}
	}
	return backend.CreateOrderRequest{
		OrderNumber: number,
		Status:      models.OrderStatusPending.String(),
		Products:    products,
		TotalAmount: totals.GrandTotal,
		ShippingAddress: backend.Address{
			Street:     addr.HouseNo + ", " + addr.Street,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
		},
		PaymentMethod: string(method),
	}
}
