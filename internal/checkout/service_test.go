package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/safar/artisan-storefront/internal/backend"
	"github.com/safar/artisan-storefront/internal/database"
	"github.com/safar/artisan-storefront/internal/models"
	"github.com/safar/artisan-storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBackend struct {
	mu            sync.Mutex
	created       []backend.CreateOrderRequest
	statusChanges []string
	err           error
	assignID      string
	remote        []backend.OrderResponse
	// duringCreate runs while the create request is in flight.
	duringCreate func()
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.OrderResponse, error) {
	if f.duringCreate != nil {
		f.duringCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &backend.OrderResponse{ID: f.assignID, OrderNumber: req.OrderNumber, Status: req.Status}, nil
}

func (f *fakeBackend) UpdateOrderStatus(ctx context.Context, orderID, status string) (*backend.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.statusChanges = append(f.statusChanges, orderID+":"+status)
	return &backend.OrderResponse{ID: orderID, Status: status}, nil
}

func (f *fakeBackend) GetOrder(ctx context.Context, orderID string) (*backend.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.remote {
		if o.ID == orderID {
			return &o, nil
		}
	}
	return nil, &backend.NetworkError{Op: "get order", StatusCode: 404, Err: errors.New("not found")}
}

func (f *fakeBackend) ListOrders(ctx context.Context) ([]backend.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]backend.OrderResponse(nil), f.remote...), nil
}

type fixture struct {
	cart    *store.CartStore
	orders  *store.OrderStore
	backend *fakeBackend
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	kv := database.NewMemoryKV()

	cart := store.NewCartStore(ctx, kv, logger)
	orders := store.NewOrderStore(ctx, kv, logger)
	t.Cleanup(func() {
		_ = cart.Close(ctx)
		_ = orders.Close(ctx)
	})

	fb := &fakeBackend{}
	svc := NewService(cart, orders, fb, DefaultRates(), logger)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC) }

	return &fixture{cart: cart, orders: orders, backend: fb, svc: svc}
}

func (f *fixture) add(t *testing.T, id string, price int64) {
	t.Helper()
	require.NoError(t, f.cart.AddItem(models.Product{ID: id, Name: "Item " + id, Price: decimal.NewFromInt(price)}))
}

func placeRequest() PlaceOrderRequest {
	return PlaceOrderRequest{Address: validAddress(), PaymentMethod: models.PaymentUPI}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", 100)
	f.add(t, "a", 100)
	f.add(t, "b", 250)

	totals := f.svc.Quote()
	assertDecimal(t, "450", totals.Subtotal)
	assertDecimal(t, "595", totals.GrandTotal)
	assert.Len(t, f.cart.GetAll(), 2)
}

func TestPlaceOrderMovesCartIntoOrder(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", 750)
	f.add(t, "b", 500)
	f.cart.UpdateQuantity("b", true)
	snapshot := f.cart.GetAll()

	order, err := f.svc.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Regexp(t, `^KK\d{13}$`, order.OrderNumber)
	assert.NotEmpty(t, order.OrderID)
	assertDecimal(t, "2025", order.TotalAmount)
	assert.Equal(t, "2 items", order.ItemsSummary)
	assert.Equal(t, "12, Temple Rd, Jaipur, Rajasthan, 302001", order.Address)
	assert.Equal(t, models.PaymentUPI, order.PaymentMethod)
	assert.Equal(t, snapshot, order.LineItems)
	assert.Empty(t, f.cart.GetAll())

	stored, err := f.orders.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, stored.LineItems)

	require.Len(t, f.backend.created, 1)
	sent := f.backend.created[0]
	assert.Equal(t, order.OrderNumber, sent.OrderNumber)
	assert.Equal(t, "pending", sent.Status)
	assert.Equal(t, "12, Temple Rd", sent.ShippingAddress.Street)
	require.Len(t, sent.Products, 2)
	assert.Equal(t, 2, sent.Products[1].Quantity)
}

func TestPlacedOrderIgnoresLaterCartChanges(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", 100)

	order, err := f.svc.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)

	f.add(t, "a", 100)
	f.add(t, "z", 5)

	stored, err := f.orders.GetOrder(order.OrderID)
	require.NoError(t, err)
	require.Len(t, stored.LineItems, 1)
	assert.Equal(t, 1, stored.LineItems[0].Quantity)
}

func TestPlaceOrderPrefersServerID(t *testing.T) {
	f := newFixture(t)
	f.backend.assignID = "65a1f0c2"
	f.add(t, "a", 100)

	order, err := f.svc.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)
	assert.Equal(t, "65a1f0c2", order.OrderID)
}

func TestPlaceOrderBackendFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &backend.NetworkError{Op: "create order", StatusCode: 503, Err: errors.New("down")}
	f.add(t, "a", 100)
	before := len(f.orders.GetAll())

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest())
	assert.ErrorIs(t, err, backend.ErrNetwork)
	assert.Len(t, f.cart.GetAll(), 1)
	assert.Len(t, f.orders.GetAll(), before)
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.ErrorIs(t, err, ErrValidation)

	f.add(t, "a", 100)
	req := placeRequest()
	req.Address.PostalCode = "12"
	_, err = f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)

	req = placeRequest()
	req.PaymentMethod = "IOU"
	_, err = f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, f.backend.created)
	assert.Len(t, f.cart.GetAll(), 1)
}

func TestConcurrentPlaceOrderCreatesOneOrder(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", 100)
	before := len(f.orders.GetAll())

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(context.Background(), placeRequest())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrEmptyCart)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.orders.GetAll(), before+1)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.UpdateStatus(ctx, models.RoleSeller, "1", models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	order, err = f.svc.CancelOrder(ctx, models.RoleBuyer, "1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	assert.Equal(t, []string{"1:processing", "1:cancelled"}, f.backend.statusChanges)
}

func TestUpdateStatusRejectedLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, models.RoleBuyer, "1", models.OrderStatusProcessing)
	assert.ErrorIs(t, err, models.ErrForbiddenTransition)

	_, err = f.svc.UpdateStatus(ctx, models.RoleSeller, "1", models.OrderStatusDelivered)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.svc.CancelOrder(ctx, models.RoleSeller, "2")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.svc.CancelOrder(ctx, models.RoleBuyer, "missing")
	assert.ErrorIs(t, err, store.ErrOrderNotFound)

	assert.Empty(t, f.backend.statusChanges)
}

func TestUpdateStatusBackendFailureLeavesOrder(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &backend.NetworkError{Op: "update order status", Err: context.DeadlineExceeded}

	_, err := f.svc.CancelOrder(context.Background(), models.RoleBuyer, "1")
	assert.ErrorIs(t, err, backend.ErrNetwork)

	order, err := f.orders.GetOrder("1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestPlaceOrderKeepsItemsAddedDuringCheckout(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", 100)
	f.add(t, "b", 200)
	f.backend.duringCreate = func() {
		f.add(t, "late", 50)
		f.add(t, "b", 200)
	}

	order, err := f.svc.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)

	require.Len(t, order.LineItems, 2)
	assert.Equal(t, 1, order.LineItems[1].Quantity)

	left := f.cart.GetAll()
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].ProductID)
	assert.Equal(t, 1, left[0].Quantity)
	assert.Equal(t, "late", left[1].ProductID)
}

func remoteOrder(id, status string) backend.OrderResponse {
	return backend.OrderResponse{
		ID:          id,
		OrderNumber: "KK" + id,
		Status:      status,
		Products:    []backend.OrderProduct{{Product: "p", Quantity: 2, Price: decimal.NewFromInt(300)}},
		TotalAmount: decimal.NewFromInt(760),
		ShippingAddress: backend.Address{
			Street: "4B, MG Road", City: "Bengaluru", State: "Karnataka", PostalCode: "560001",
		},
		PaymentMethod: "UPI Payment",
	}
}

func TestLookupOrder(t *testing.T) {
	f := newFixture(t)
	f.backend.remote = []backend.OrderResponse{remoteOrder("r1", "Placed")}
	ctx := context.Background()

	local, err := f.svc.LookupOrder(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", local.OrderID)

	remote, err := f.svc.LookupOrder(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, remote.Status)
	assert.Equal(t, "4B, MG Road, Bengaluru, Karnataka, 560001", remote.Address)
	assert.Equal(t, "1 item", remote.ItemsSummary)
	require.Len(t, remote.LineItems, 1)
	assert.Equal(t, 2, remote.LineItems[0].Quantity)

	_, err = f.orders.GetOrder("r1")
	assert.ErrorIs(t, err, store.ErrOrderNotFound, "remote orders are not copied locally")

	_, err = f.svc.LookupOrder(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrOrderNotFound)

	f.backend.err = &backend.NetworkError{Op: "get order", Err: context.DeadlineExceeded}
	_, err = f.svc.LookupOrder(ctx, "ghost")
	assert.ErrorIs(t, err, backend.ErrNetwork)
}

func TestBackendOrders(t *testing.T) {
	f := newFixture(t)
	f.backend.remote = []backend.OrderResponse{remoteOrder("r1", "shipped"), remoteOrder("r2", "cancelled")}

	orders, err := f.svc.BackendOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, models.OrderStatusShipped, orders[0].Status)

	f.backend.remote = append(f.backend.remote, remoteOrder("r3", "teleported"))
	_, err = f.svc.BackendOrders(context.Background())
	assert.ErrorIs(t, err, backend.ErrNetwork)
}
