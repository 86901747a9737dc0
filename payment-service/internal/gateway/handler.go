package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fjod/fitcoach/payment-service/internal/provider"
	r "github.com/fjod/fitcoach/payment-service/internal/repository"
	"github.com/fjod/fitcoach/pkg/money"
	"github.com/rs/zerolog"
)

type Provider interface {
	CreatePaymentIntent(ctx context.Context, req provider.IntentRequest) (*provider.Intent, error)
	CreateCheckoutSession(ctx context.Context, req provider.SessionRequest) (*provider.Session, error)
}

type Ledger interface {
	RecordIntent(ctx context.Context, pi *r.PaymentIntent) error
}

type Options struct {
	// DefaultOrigin builds redirect URLs when the request has no Origin.
	DefaultOrigin    string
	AllowedCountries []string
}

type Handler struct {
	provider Provider
	ledger   Ledger
	opts     Options
}

func NewHandler(p Provider, ledger Ledger, opts Options) *Handler {
	if opts.DefaultOrigin == "" {
		opts.DefaultOrigin = "http://localhost:5173"
	}
	if len(opts.AllowedCountries) == 0 {
		opts.AllowedCountries = []string{"US"}
	}
	return &Handler{provider: p, ledger: ledger, opts: opts}
}

type CreatePaymentIntentRequestDTO struct {
	CartID string `json:"cartId,omitempty"`
	// AttemptID changes once a checkout of the cart has been paid for.
	AttemptID string `json:"attemptId,omitempty"`
	Items     []Item `json:"items"`
}

type CreatePaymentIntentResponseDTO struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
}

type CreateCheckoutSessionRequestDTO struct {
	CartID string `json:"cartId,omitempty"`
	Items  []Item `json:"items"`
}

type CreateCheckoutSessionResponseDTO struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// POST /functions/v1/create-payment-intent
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, req *http.Request) {
	log := zerolog.Ctx(req.Context())

	var body CreatePaymentIntentRequestDTO
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, req, http.StatusInternalServerError, "Invalid JSON body")
		return
	}
	if err := ValidateItems(body.Items); err != nil {
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}
	amount, err := Amount(body.Items)
	if err != nil {
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}
	manifest, err := Manifest(body.Items)
	if err != nil {
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	cartID := body.CartID
	if cartID == "" {
		cartID = strings.TrimSpace(req.Header.Get("Idempotency-Key"))
	}

	intent, err := h.provider.CreatePaymentIntent(req.Context(), provider.IntentRequest{
		Amount:         amount,
		Currency:       money.Currency,
		CartID:         cartID,
		Manifest:       manifest,
		IdempotencyKey: IdempotencyKey(cartID, body.AttemptID, amount, manifest),
	})
	if err != nil {
		log.Error().Err(err).Int64("amount", amount).Str("cart_id", cartID).Msg("failed to create payment intent")
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	if h.ledger != nil {
		err := h.ledger.RecordIntent(req.Context(), &r.PaymentIntent{
			ID:       intent.ID,
			CartID:   cartID,
			Amount:   amount,
			Currency: money.Currency,
			Status:   intent.Status,
			Manifest: []byte(manifest),
		})
		if err != nil {
			log.Warn().Err(err).Str("intent_id", intent.ID).Msg("failed to record payment intent")
		}
	}

	respondJSON(w, req, http.StatusOK, CreatePaymentIntentResponseDTO{
		ClientSecret: intent.ClientSecret,
		ID:           intent.ID,
	})
}

// POST /functions/v1/create-checkout-session
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, req *http.Request) {
	var body CreateCheckoutSessionRequestDTO
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, req, http.StatusInternalServerError, "Invalid JSON body")
		return
	}
	if len(body.Items) == 0 {
		respondError(w, req, http.StatusInternalServerError, ErrNoItems.Error())
		return
	}

	lines, err := SessionLines(body.Items)
	if err != nil {
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	origin := strings.TrimRight(req.Header.Get("Origin"), "/")
	if origin == "" {
		origin = strings.TrimRight(h.opts.DefaultOrigin, "/")
	}

	session, err := h.provider.CreateCheckoutSession(req.Context(), provider.SessionRequest{
		Items:            lines,
		Currency:         money.Currency,
		CartID:           body.CartID,
		SuccessURL:       origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        origin + "/cart",
		AllowedCountries: h.opts.AllowedCountries,
	})
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Str("cart_id", body.CartID).Msg("failed to create checkout session")
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, req, http.StatusOK, CreateCheckoutSessionResponseDTO{URL: session.URL})
}

func respondJSON(w http.ResponseWriter, req *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, req *http.Request, status int, message string) {
	respondJSON(w, req, status, ErrorResponse{Error: message})
}
