package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/safar/artisan-storefront/internal/config"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNetwork = errors.New("backend unavailable")

// NetworkError is returned for transport failures, timeouts and non-2xx
// responses. StatusCode is zero when no response arrived.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: backend returned %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

type OrderProduct struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

type CreateOrderRequest struct {
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	Products        []OrderProduct  `json:"products"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
}

type OrderResponse struct {
	ID              string          `json:"_id"`
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	Products        []OrderProduct  `json:"products"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logging.OrNop(logger).Named("backend"),
	}
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.do(ctx, "create order", http.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (*OrderResponse, error) {
	var out OrderResponse
	path := "/api/orders/" + url.PathEscape(orderID) + "/status"
	body := map[string]string{"status": status}
	if err := c.do(ctx, "update order status", http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]OrderResponse, error) {
	var out []OrderResponse
	if err := c.do(ctx, "list orders", http.MethodGet, "/api/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.do(ctx, "get order", http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(string(bytes.TrimSpace(msg)))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
