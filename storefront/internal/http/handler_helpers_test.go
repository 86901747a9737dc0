package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/fitcoach/storefront/internal/cache"
	"github.com/fjod/fitcoach/storefront/internal/checkout"
	"github.com/fjod/fitcoach/storefront/internal/gateway"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type GatewayMock struct {
	intent  *gateway.PaymentIntent
	session *gateway.CheckoutSession
	err     error
	origin  string
	calls   int
}

func (g *GatewayMock) CreatePaymentIntent(ctx context.Context, cartID, attemptID string, items []gateway.LineItem) (*gateway.PaymentIntent, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.intent, nil
}

func (g *GatewayMock) CreateCheckoutSession(ctx context.Context, cartID, origin string, items []gateway.LineItem) (*gateway.CheckoutSession, error) {
	g.calls++
	g.origin = origin
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

type ElementMock struct {
	confirmErr error
	params     checkout.ConfirmParams
}

func (e *ElementMock) Submit(ctx context.Context) error { return nil }

func (e *ElementMock) Confirm(ctx context.Context, p checkout.ConfirmParams) error {
	e.params = p
	return e.confirmErr
}

type ElementFactoryMock struct {
	element *ElementMock
	methods []string
}

func (f *ElementFactoryMock) Element(paymentMethodID string) checkout.PaymentElement {
	f.methods = append(f.methods, paymentMethodID)
	return f.element
}

type testServer struct {
	handler   http.Handler
	sessions  *Sessions
	mirror    *cache.RedisMirror
	gateway   *GatewayMock
	elements  *ElementFactoryMock
	successes []checkout.Result
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithPrices(t, nil)
}

func newTestServerWithPrices(t *testing.T, prices Prices) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ts := &testServer{
		mirror:   cache.NewRedisMirror(client, time.Hour),
		gateway:  &GatewayMock{intent: &gateway.PaymentIntent{ClientSecret: "pi_1_secret_x", ID: "pi_1"}},
		elements: &ElementFactoryMock{element: &ElementMock{}},
	}
	ts.sessions = NewSessions(ts.gateway, ts.mirror, func(r checkout.Result) {
		ts.successes = append(ts.successes, r)
	}, zerolog.Nop())

	ts.handler = NewRouter(
		NewCartHandler(ts.sessions, prices),
		NewCheckoutHandler(ts.sessions, ts.elements, "http://localhost:5173", 5*time.Second),
		zerolog.Nop(),
		10*time.Second,
	)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, cartID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cartID != "" {
		req.Header.Set(CartIDHeader, cartID)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

var teeItem = map[string]any{"id": "p1", "title": "Tee", "price": 29.99, "size": "M"}
