package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/fitcoach/pkg/circuitbreaker"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	paymentIntentPath   = "/functions/v1/create-payment-intent"
	checkoutSessionPath = "/functions/v1/create-checkout-session"
)

// LineItem is the wire shape of a cart line sent to the payment functions.
type LineItem struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity"`
	Images   []string `json:"images,omitempty"`
}

type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
}

type CheckoutSession struct {
	URL string `json:"url"`
}

// APIError is an error body returned by a payment function.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type paymentIntentRequest struct {
	CartID    string     `json:"cartId,omitempty"`
	AttemptID string     `json:"attemptId,omitempty"`
	Items     []LineItem `json:"items"`
}

type checkoutSessionRequest struct {
	CartID string     `json:"cartId,omitempty"`
	Items  []LineItem `json:"items"`
}

type errorBody struct {
	Error string `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        zerolog.Logger
}

// NewClient talks to the payment functions at baseURL. Calls go through a
// circuit breaker that only counts transport failures, so a gateway that
// answers with an error body never trips it.
func NewClient(baseURL string, timeout time.Duration, cb circuitbreaker.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[[]byte]("payment-gateway", cb, log, func(err error) bool {
			var apiErr *APIError
			return err == nil || errors.As(err, &apiErr)
		}),
		log: log,
	}
}

// CreatePaymentIntent creates an intent for items. Retries with the same
// cartID and attemptID get the same intent back; a new attemptID starts a
// fresh purchase of the same cart.
func (c *Client) CreatePaymentIntent(ctx context.Context, cartID, attemptID string, items []LineItem) (*PaymentIntent, error) {
	payload := paymentIntentRequest{CartID: cartID, AttemptID: attemptID, Items: items}
	body, err := c.post(ctx, paymentIntentPath, payload, map[string]string{
		"Idempotency-Key": cartID,
	})
	if err != nil {
		return nil, err
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	if intent.ClientSecret == "" {
		return nil, errors.New("payment gateway returned no client secret")
	}
	return &intent, nil
}

// CreateCheckoutSession starts the hosted redirect flow. origin becomes the
// base of the success and cancel URLs; cartID comes back on the completion
// event.
func (c *Client) CreateCheckoutSession(ctx context.Context, cartID, origin string, items []LineItem) (*CheckoutSession, error) {
	headers := map[string]string{}
	if origin != "" {
		headers["Origin"] = origin
	}
	body, err := c.post(ctx, checkoutSessionPath, checkoutSessionRequest{CartID: cartID, Items: items}, headers)
	if err != nil {
		return nil, err
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, errors.New("payment gateway returned no checkout url")
	}
	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, headers map[string]string) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			if v != "" {
				req.Header.Set(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("payment gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read gateway response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			var eb errorBody
			if json.Unmarshal(body, &eb) != nil || eb.Error == "" {
				eb.Error = fmt.Sprintf("payment gateway returned status %d", resp.StatusCode)
			}
			c.log.Warn().Str("path", path).Int("status", resp.StatusCode).Str("error", eb.Error).Msg("payment gateway rejected request")
			return nil, &APIError{StatusCode: resp.StatusCode, Message: eb.Error}
		}
		return body, nil
	})
}
