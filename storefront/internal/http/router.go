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

// NewRouter mounts the cart and checkout API.
func NewRouter(cartHandler *CartHandler, checkoutHandler *CheckoutHandler, log zerolog.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(CartIDMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/toggle", cartHandler.ToggleCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.GetCheckout)
			r.Post("/email", checkoutHandler.SubmitEmail)
			r.Post("/card", checkoutHandler.SubmitCard)
			r.Post("/express", checkoutHandler.Express)
			r.Post("/confirm", checkoutHandler.Confirm)
			r.Post("/session", checkoutHandler.HostedSession)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
