package publisher

import (
	"encoding/json"

	r "github.com/fjod/fitcoach/payment-service/internal/repository"
)

const (
	Topic                  = "checkout-outbox"
	EventCheckoutCompleted = "checkout.completed"
)

// CheckoutCompleted tells the storefront a cart has been paid for.
type CheckoutCompleted struct {
	CartID   string `json:"cart_id"`
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func CheckoutCompletedPayload(pi *r.PaymentIntent) ([]byte, error) {
	return json.Marshal(CheckoutCompleted{
		CartID:   pi.CartID,
		IntentID: pi.ID,
		Amount:   pi.Amount,
		Currency: pi.Currency,
	})
}
