package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/gomarket/internal/cart"
	"github.com/utafrali/gomarket/internal/domain"
	"github.com/utafrali/gomarket/pkg/httputil"
	"github.com/utafrali/gomarket/pkg/validator"
)

// CartHandler serves the cart endpoints. It holds no store of its own: the
// store comes from the request context, set by Provide.
type CartHandler struct {
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(logger *slog.Logger) *CartHandler {
	return &CartHandler{logger: logger}
}

// --- Request / response DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ID       string  `json:"id" validate:"required,max=128"`
	Title    string  `json:"title" validate:"required,max=500"`
	ImageURL string  `json:"image_url" validate:"max=2048"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// CartResponse is the cart view returned by every endpoint.
type CartResponse struct {
	Products  domain.Cart `json:"products"`
	ItemCount int         `json:"item_count"`
	Total     float64     `json:"total"`
}

func newCartResponse(c domain.Cart) CartResponse {
	return CartResponse{Products: c, ItemCount: c.ItemCount(), Total: c.Total()}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(store.Products())})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item := domain.NewProduct{
		ID:       req.ID,
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Price:    req.Price,
	}
	if err := store.AddToCart(r.Context(), item); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(store.Products())})
}

// Increment handles POST /api/v1/cart/items/{id}/increment
func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, (*cart.Store).Increment)
}

// Decrement handles POST /api/v1/cart/items/{id}/decrement
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, (*cart.Store).Decrement)
}

func (h *CartHandler) adjust(w http.ResponseWriter, r *http.Request, op func(*cart.Store, context.Context, string) error) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := op(store, r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(store.Products())})
}
