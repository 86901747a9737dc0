package checkout

type State string

const (
	StateEmptyCart         State = "EMPTY_CART"
	StateCollectingEmail   State = "COLLECTING_EMAIL"
	StateCardForm          State = "CARD_FORM"
	StateExpressCheckout   State = "EXPRESS_CHECKOUT"
	StatePaymentConfirming State = "PAYMENT_CONFIRMING"
	StateSuccess           State = "SUCCESS"
	StateFailed            State = "FAILED"
)

var transitions = map[State][]State{
	StateEmptyCart:         {StateCollectingEmail},
	StateCollectingEmail:   {StateCardForm, StateExpressCheckout},
	StateCardForm:          {StateCardForm, StatePaymentConfirming, StateExpressCheckout},
	StateExpressCheckout:   {StatePaymentConfirming, StateCollectingEmail},
	StatePaymentConfirming: {StateSuccess, StateFailed},
	StateFailed:            {StatePaymentConfirming},
}

func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible. An empty
// cart is terminal until the cart is filled again from outside.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateEmptyCart
}

func (s State) String() string {
	return string(s)
}
