// Package provider talks to the payment provider.
package provider

import "errors"

// LineItem is one priced line of a hosted checkout session. UnitAmount is
// in minor units.
type LineItem struct {
	Title      string
	UnitAmount int64
	Quantity   int64
	Images     []string
}

type IntentRequest struct {
	Amount   int64
	Currency string
	CartID   string
	// Manifest is the JSON item list stored in the intent metadata. It
	// carries ids and quantities only.
	Manifest       string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

type SessionRequest struct {
	Items            []LineItem
	Currency         string
	CartID           string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

type Session struct {
	ID  string
	URL string
}

// Error is a provider rejection with its own type and message.
type Error struct {
	Type    string
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var ErrNoClientSecret = errors.New("payment provider returned no client secret")
