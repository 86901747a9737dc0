package http

import (
	"net/http"
	"time"

	"github.com/fjod/fitcoach/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(h *CatalogHandler, log zerolog.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/memberships", h.ListMemberships)
		r.Get("/memberships/compare", h.CompareMemberships)
		r.Get("/memberships/{id}", h.GetMembership)
		r.Get("/programs", h.ListPrograms)
	})

	return otelhttp.NewHandler(r, "catalog-service")
}
