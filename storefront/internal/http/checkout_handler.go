package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/fitcoach/storefront/internal/checkout"
)

// ElementFactory creates the payment element for a confirmation attempt
// from the payment method the browser tokenised.
type ElementFactory interface {
	Element(paymentMethodID string) checkout.PaymentElement
}

type CheckoutHandler struct {
	sessions *Sessions
	elements ElementFactory
	// siteURL is used for return and redirect URLs when the request has
	// no Origin.
	siteURL string
	timeout time.Duration
}

func NewCheckoutHandler(sessions *Sessions, elements ElementFactory, siteURL string, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		elements: elements,
		siteURL:  strings.TrimRight(siteURL, "/"),
		timeout:  timeout,
	}
}

type SubmitEmailRequestDTO struct {
	Email string `json:"email"`
}

type ExpressRequestDTO struct {
	Email string `json:"email"`
}

type ConfirmRequestDTO struct {
	PaymentMethodID string `json:"paymentMethodId"`
	ReturnURL       string `json:"returnUrl,omitempty"`
}

type HostedSessionResponseDTO struct {
	URL string `json:"url"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	respondJSON(w, r, http.StatusOK, sess.Checkout.View())
}

// POST /api/v1/checkout/email
func (h *CheckoutHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	var req SubmitEmailRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess := h.sessions.Get(r.Context(), getCartIDFromContext(r.Context()))
	if err := sess.Checkout.SubmitEmail(req.Email); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sess.Checkout.View())
}

// POST /api/v1/checkout/card
func (h *CheckoutHandler) SubmitCard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := h.sessions.Get(ctx, getCartIDFromContext(ctx))
	if _, err := sess.Checkout.SubmitCard(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, sess.Checkout.View())
}

// POST /api/v1/checkout/express
func (h *CheckoutHandler) Express(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ExpressRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess := h.sessions.Get(ctx, getCartIDFromContext(ctx))
	if _, err := sess.Checkout.Express(ctx, req.Email); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, sess.Checkout.View())
}

// POST /api/v1/checkout/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ConfirmRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = h.origin(r) + "/checkout/success"
	}

	sess := h.sessions.Get(ctx, getCartIDFromContext(ctx))
	if err := sess.Checkout.Confirm(ctx, h.elements.Element(req.PaymentMethodID), returnURL); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sess.Checkout.View())
}

// POST /api/v1/checkout/session
func (h *CheckoutHandler) HostedSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := h.sessions.Get(ctx, getCartIDFromContext(ctx))
	url, err := sess.Checkout.HostedCheckout(ctx, h.origin(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, HostedSessionResponseDTO{URL: url})
}

func (h *CheckoutHandler) origin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return strings.TrimRight(o, "/")
	}
	return h.siteURL
}
