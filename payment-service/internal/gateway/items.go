package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fjod/fitcoach/payment-service/internal/provider"
	"github.com/fjod/fitcoach/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a cart line as sent by the storefront. Price is in major units.
type Item struct {
	ID       string          `json:"id,omitempty"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Images   []string        `json:"images,omitempty"`
}

type manifestEntry struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// MaxQuantity is the most units of one line a single order may carry.
const MaxQuantity = 999

var (
	ErrNoItems       = errors.New("No items provided")
	ErrInvalidAmount = errors.New("Invalid order amount")
)

var idempotencyNamespace = uuid.MustParse("9b8f0c4e-5d2a-4f6b-8e1a-3c7d2b1a0f5e")

// ValidateItems checks every line before anything is sent to the provider.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if !item.Price.IsPositive() {
			return fmt.Errorf("Invalid price for item: %s", item.Title)
		}
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return fmt.Errorf("Invalid quantity for item: %s", item.Title)
		}
	}
	return nil
}

// Amount is the order total in cents: each unit price is rounded to cents
// before it is multiplied by the quantity. The sum is kept in decimal and
// must fit money.MaxAmount.
func Amount(items []Item) (int64, error) {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(money.MinorUnits(item.Price).Mul(decimal.NewFromInt(item.Quantity)))
	}
	if !total.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return money.Narrow(total)
}

// Manifest is the item list kept in intent metadata: ids and quantities,
// never prices.
func Manifest(items []Item) (string, error) {
	entries := make([]manifestEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, manifestEntry{ID: item.ID, Quantity: item.Quantity})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	return string(b), nil
}

// IdempotencyKey derives a stable key for one checkout attempt of one cart
// and one exact order, so a retried submit maps to the same intent while a
// changed cart or a new attempt after a purchase gets a new one. Without a
// cart id there is nothing to derive from.
func IdempotencyKey(cartID, attemptID string, amount int64, manifest string) string {
	if cartID == "" {
		return ""
	}
	name := cartID + "|" + attemptID + "|" + strconv.FormatInt(amount, 10) + "|" + manifest
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

// SessionLines converts items to hosted-session lines. Unit amounts and
// the order total must fit money.MaxAmount.
func SessionLines(items []Item) ([]provider.LineItem, error) {
	lines := make([]provider.LineItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, fmt.Errorf("Invalid quantity for item: %s", item.Title)
		}
		unit, err := money.LineTotal(item.Price, 1)
		if err != nil {
			return nil, err
		}
		total = total.Add(decimal.NewFromInt(unit).Mul(decimal.NewFromInt(item.Quantity)))
		lines = append(lines, provider.LineItem{
			Title:      item.Title,
			UnitAmount: unit,
			Quantity:   item.Quantity,
			Images:     item.Images,
		})
	}
	if _, err := money.Narrow(total); err != nil {
		return nil, err
	}
	return lines, nil
}
