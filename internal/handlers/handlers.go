package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/safar/artisan-storefront/internal/backend"
	"github.com/safar/artisan-storefront/internal/checkout"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/safar/artisan-storefront/internal/models"
	"github.com/safar/artisan-storefront/internal/store"
	"go.uber.org/zap"
)

type Handler struct {
	cart     *store.CartStore
	wishlist *store.WishlistStore
	orders   *store.OrderStore
	checkout *checkout.Service
	logger   *zap.Logger
}

func New(cart *store.CartStore, wishlist *store.WishlistStore, orders *store.OrderStore, svc *checkout.Service, logger *zap.Logger) *Handler {
	return &Handler{
		cart:     cart,
		wishlist: wishlist,
		orders:   orders,
		checkout: svc,
		logger:   logging.OrNop(logger).Named("http"),
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /cart", h.getCart)
	mux.HandleFunc("POST /cart/items", h.addCartItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("POST /cart/items/{id}/increment", h.changeQuantity(true))
	mux.HandleFunc("POST /cart/items/{id}/decrement", h.changeQuantity(false))
	mux.HandleFunc("GET /cart/totals", h.getTotals)

	mux.HandleFunc("GET /wishlist", h.getWishlist)
	mux.HandleFunc("POST /wishlist", h.addToWishlist)
	mux.HandleFunc("GET /wishlist/{id}", h.wishlistContains)
	mux.HandleFunc("DELETE /wishlist/{id}", h.removeFromWishlist)

	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("PUT /orders/{id}/status", h.updateOrderStatus)
	mux.HandleFunc("POST /checkout", h.placeOrder)

	return h.logRequests(mux)
}

type cartResponse struct {
	Items  []models.CartLineItem  `json:"items"`
	Count  int                    `json:"count"`
	Totals checkout.DisplayTotals `json:"totals"`
}

func (h *Handler) cartView() cartResponse {
	return cartResponse{
		Items:  h.cart.GetAll(),
		Count:  h.cart.Count(),
		Totals: h.checkout.Quote().Display(),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.cartView())
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.cart.AddItem(p); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, h.cartView())
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveItem(r.PathValue("id"))
	h.respondJSON(w, http.StatusOK, h.cartView())
}

func (h *Handler) changeQuantity(increment bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.cart.UpdateQuantity(r.PathValue("id"), increment)
		h.respondJSON(w, http.StatusOK, h.cartView())
	}
}

func (h *Handler) getTotals(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.checkout.Quote().Display())
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.wishlist.GetAll())
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.wishlist.AddToWishlist(p); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, h.wishlist.GetAll())
}

func (h *Handler) wishlistContains(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.respondJSON(w, http.StatusOK, map[string]any{
		"productId": id,
		"saved":     h.wishlist.IsInWishlist(id),
	})
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.wishlist.RemoveFromWishlist(r.PathValue("id"))
	h.respondJSON(w, http.StatusOK, h.wishlist.GetAll())
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := store.ParseOrderFilter(q.Get("filter"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	switch q.Get("source") {
	case "", "local":
		h.respondJSON(w, http.StatusOK, h.orders.List(filter, page, pageSize))
	case "backend":
		all, err := h.checkout.BackendOrders(r.Context())
		if err != nil {
			h.respondErr(w, err)
			return
		}
		matched := []models.Order{}
		for _, o := range all {
			if filter.Match(o.Status) {
				matched = append(matched, o)
			}
		}
		h.respondJSON(w, http.StatusOK, store.Paginate(matched, page, pageSize))
	default:
		h.respondError(w, http.StatusBadRequest, "source must be local or backend")
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.checkout.LookupOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	role := models.RoleBuyer
	if raw := r.Header.Get("X-Role"); raw != "" {
		parsed, err := models.ParseRole(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		role = parsed
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.checkout.UpdateStatus(r.Context(), role, r.PathValue("id"), status)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, order)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbiddenTransition):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, backend.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}

	var fieldErrs checkout.ValidationErrors
	if errors.As(err, &fieldErrs) {
		h.respondJSON(w, status, map[string]any{"error": err.Error(), "fields": fieldErrs})
		return
	}
	h.respondError(w, status, err.Error())
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode JSON response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
