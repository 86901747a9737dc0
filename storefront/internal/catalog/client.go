package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/fitcoach/pkg/circuitbreaker"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrUnknownProduct = errors.New("product not found in catalog")

// Product is the part of a catalog product the cart needs.
type Product struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Product]
	log        zerolog.Logger
}

// NewClient reads products from the catalog service at baseURL. An unknown
// product does not count against the breaker.
func NewClient(baseURL string, timeout time.Duration, cb circuitbreaker.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[*Product]("catalog", cb, log, func(err error) bool {
			return err == nil || errors.Is(err, ErrUnknownProduct)
		}),
		log: log,
	}
}

// Product fetches one product by id.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	return c.breaker.Execute(func() (*Product, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/products/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("catalog request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			c.log.Warn().Str("product_id", id).Int("status", resp.StatusCode).Msg("catalog lookup failed")
			return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
		}

		var p Product
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		return &p, nil
	})
}
