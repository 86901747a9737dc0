package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/fitcoach/catalog-service/internal/domain"
	"github.com/fjod/fitcoach/catalog-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Catalog interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListMemberships(ctx context.Context) ([]domain.Membership, error)
	GetMembership(ctx context.Context, id string) (*domain.Membership, error)
	CompareMemberships(ctx context.Context) (domain.FeatureMatrix, error)
	ListPrograms(ctx context.Context) ([]domain.Program, error)
}

type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(c Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// MembershipDTO adds the derived yearly pricing figures.
type MembershipDTO struct {
	domain.Membership
	YearlySavings  string `json:"yearly_savings"`
	SavingsPercent int64  `json:"savings_percent"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func newMembershipDTO(m domain.Membership) MembershipDTO {
	return MembershipDTO{
		Membership:     m,
		YearlySavings:  m.YearlySavings().StringFixed(2),
		SavingsPercent: m.SavingsPercent(),
	}
}

// GET /api/v1/products?category=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, products)
}

// GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

// GET /api/v1/memberships
func (h *CatalogHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	ms, err := h.catalog.ListMemberships(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]MembershipDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, newMembershipDTO(m))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GET /api/v1/memberships/{id}
func (h *CatalogHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.GetMembership(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, newMembershipDTO(*m))
}

// GET /api/v1/memberships/compare
func (h *CatalogHandler) CompareMemberships(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.catalog.CompareMemberships(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, matrix)
}

// GET /api/v1/programs
func (h *CatalogHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.catalog.ListPrograms(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, programs)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		respondJSON(w, r, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("catalog request failed")
	respondJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "backend_error"})
}
