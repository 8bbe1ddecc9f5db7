package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/rocketshoes/internal/domain"
	"github.com/utafrali/rocketshoes/internal/service"
	"github.com/utafrali/rocketshoes/pkg/httputil"
	"github.com/utafrali/rocketshoes/pkg/logger"
	"github.com/utafrali/rocketshoes/pkg/validator"
)

// Stores resolves the CartStore for a session.
type Stores interface {
	Get(ctx context.Context, sessionID string) (*service.CartStore, error)
}

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	stores Stores
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(stores Stores, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		stores: stores,
		logger: logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// UpdateAmountRequest is the JSON request body for setting a product's
// amount. Amounts of zero or less are accepted and ignored.
type UpdateAmountRequest struct {
	Amount *int `json:"amount" validate:"required"`
}

// CartResponse is the cart as returned to the storefront.
type CartResponse struct {
	Items     domain.Cart     `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

func newCartResponse(c domain.Cart) CartResponse {
	if c == nil {
		c = domain.Cart{}
	}
	return CartResponse{Items: c, ItemCount: c.ItemCount(), Total: c.Total()}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart. A freshly minted session has nothing
// stored yet, so it gets an empty cart without loading a store.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	if sessionMinted(r.Context()) {
		httputil.WriteData(w, http.StatusOK, newCartResponse(nil))
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(store.Cart()))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	cart, err := store.AddProduct(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// UpdateItemAmount handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItemAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req UpdateAmountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	cart, err := store.UpdateProductAmount(r.Context(), service.AmountUpdate{ProductID: productID, Amount: *req.Amount})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	cart, err := store.RemoveProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// store resolves the session's CartStore, writing an error response on failure.
func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*service.CartStore, bool) {
	store, err := h.stores.Get(r.Context(), logger.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, false
	}
	return store, true
}
