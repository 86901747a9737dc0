package gateway

import (
	"net/http"

	"github.com/fjod/fitcoach/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter mounts the payment functions. Method handling is left to each
// function so that OPTIONS and wrong methods get the documented answers.
func NewRouter(h *Handler, wh *WebhookHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/functions/v1", func(r chi.Router) {
		r.HandleFunc("/create-payment-intent", postOnly(h.CreatePaymentIntent))
		r.HandleFunc("/create-checkout-session", postOnly(h.CreateCheckoutSession))
		if wh != nil {
			r.Post("/stripe-webhook", wh.Handle)
		}
	})

	return otelhttp.NewHandler(r, "payment-service")
}
