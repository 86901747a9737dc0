package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/fitcoach/storefront/internal/cart"
	"github.com/fjod/fitcoach/storefront/internal/catalog"
	"github.com/fjod/fitcoach/storefront/internal/checkout"
	"github.com/fjod/fitcoach/storefront/internal/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// Prices looks up the authoritative product a cart line is priced from.
type Prices interface {
	Product(ctx context.Context, id string) (*catalog.Product, error)
}

type CartHandler struct {
	sessions *Sessions
	prices   Prices
}

// NewCartHandler serves the cart. With prices nil the price and title sent
// with an item are taken as given.
func NewCartHandler(sessions *Sessions, prices Prices) *CartHandler {
	return &CartHandler{sessions: sessions, prices: prices}
}

type AddItemRequestDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// CartResponseDTO is the cart plus the derived figures the header badge
// and drawer show.
type CartResponseDTO struct {
	cart.State
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func newCartResponse(s cart.State) CartResponseDTO {
	return CartResponseDTO{State: s, Count: s.Count(), Subtotal: s.Subtotal()}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	respondJSON(w, r, http.StatusOK, newCartResponse(sess.Store.Snapshot()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.ID) == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_item_id", "id is required")
		return
	}
	if req.ProductID == "" {
		req.ProductID = req.ID
	}
	if h.prices != nil && !h.priceFromCatalog(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_title", "title is required")
		return
	}

	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	state := sess.Store.Dispatch(cart.AddItem{Item: cart.CartItem{
		ID:        req.ID,
		ProductID: req.ProductID,
		Title:     req.Title,
		Price:     req.Price,
		Size:      req.Size,
		Color:     req.Color,
		Image:     req.Image,
	}})

	respondJSON(w, r, http.StatusCreated, newCartResponse(state))
}

// priceFromCatalog replaces the client's price with the catalog's and fills
// a missing title or image. It responds and returns false on failure.
func (h *CartHandler) priceFromCatalog(w http.ResponseWriter, r *http.Request, req *AddItemRequestDTO) bool {
	p, err := h.prices.Product(r.Context(), req.ProductID)
	switch {
	case errors.Is(err, catalog.ErrUnknownProduct):
		respondError(w, r, http.StatusBadRequest, "unknown_product", "product is not in the catalog")
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, r, http.StatusServiceUnavailable, "service_unavailable", "the catalog is temporarily unavailable")
		return false
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("product_id", req.ProductID).Msg("catalog lookup failed")
		respondError(w, r, http.StatusBadGateway, "catalog_error", "failed to look up product")
		return false
	}

	req.Price = p.Price
	if strings.TrimSpace(req.Title) == "" {
		req.Title = p.Title
	}
	if req.Image == "" && len(p.Images) > 0 {
		req.Image = p.Images[0]
	}
	return true
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, r, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	state := sess.Store.Dispatch(cart.UpdateQuantity{ID: itemID, Size: req.Size, Quantity: req.Quantity})

	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

// DELETE /api/v1/cart/items/{id}?size=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	state := sess.Store.Dispatch(cart.RemoveItem{ID: itemID, Size: r.URL.Query().Get("size")})

	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	state := sess.Store.Dispatch(cart.ClearCart{})

	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

// POST /api/v1/cart/toggle
func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	state := sess.Store.Dispatch(cart.ToggleCart{})

	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps checkout and gateway failures to HTTP statuses. The
// message is always one that can be shown to the shopper.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve     *checkout.ValidationError
		pe     *checkout.ProviderError
		apiErr *gateway.APIError
	)

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, r, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondJSON(w, r, http.StatusConflict, ErrorResponse{Error: "checkout is not in a state that allows this step", Code: "illegal_transition", Details: err.Error()})
	case errors.As(err, &ve):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: ve.Message, Code: "validation_error", Details: ve.Field})
	case errors.As(err, &pe):
		respondJSON(w, r, http.StatusPaymentRequired, ErrorResponse{Error: checkout.UserMessage(pe), Code: "payment_failed", Details: pe.Code})
	case errors.As(err, &apiErr):
		respondError(w, r, http.StatusBadGateway, "gateway_error", apiErr.Message)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, r, http.StatusServiceUnavailable, "service_unavailable", "payments are temporarily unavailable")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled checkout error")
		respondError(w, r, http.StatusInternalServerError, "internal_error", checkout.GenericErrorMessage)
	}
}
