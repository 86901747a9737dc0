package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/fitcoach/storefront/internal/cache"
	"github.com/fjod/fitcoach/storefront/internal/cart"
	"github.com/fjod/fitcoach/storefront/internal/gateway"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gateway creates payments for a cart snapshot.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, cartID, attemptID string, items []gateway.LineItem) (*gateway.PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, cartID, origin string, items []gateway.LineItem) (*gateway.CheckoutSession, error)
}

// Result is handed to the success callback.
type Result struct {
	CartID   string
	IntentID string
	Email    string
}

// View is a read-only snapshot for rendering.
type View struct {
	State        State      `json:"state"`
	Email        string     `json:"email,omitempty"`
	ClientSecret string     `json:"clientSecret,omitempty"`
	IntentID     string     `json:"intentId,omitempty"`
	Error        string     `json:"error,omitempty"`
	Cart         cart.State `json:"cart"`
}

// Orchestrator drives one shopper through checkout. Calls are serialised,
// so a double submit sees the state left by the first one.
type Orchestrator struct {
	store     *cart.Store
	gateway   Gateway
	mirror    cache.CartMirror
	onSuccess func(Result)
	log       zerolog.Logger

	mu           sync.Mutex
	state        State
	email        string
	clientSecret string
	intentID     string
	errMsg       string
	notified     bool

	// attemptID names one purchase of the cart; it changes after success.
	attemptID string
	// paid is the cart the current intent was created for.
	paid cart.State
}

func NewOrchestrator(store *cart.Store, gw Gateway, mirror cache.CartMirror, onSuccess func(Result), log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		gateway:   gw,
		mirror:    mirror,
		onSuccess: onSuccess,
		log:       log.With().Str("cart_id", store.ID()).Logger(),
		state:     StateEmptyCart,
		attemptID: uuid.NewString(),
	}
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()
	return View{
		State:        o.state,
		Email:        o.email,
		ClientSecret: o.clientSecret,
		IntentID:     o.intentID,
		Error:        o.errMsg,
		Cart:         o.store.Snapshot(),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()
	return o.state
}

// sync reconciles the state with the cart: an empty cart always shows the
// empty view, a cart filled again after success starts over, and a cart
// edited under a live intent drops that intent.
func (o *Orchestrator) sync() {
	snap := o.store.Snapshot()
	empty := snap.IsEmpty()
	switch {
	case o.state == StateSuccess && !empty:
		o.reset()
		o.state = StateCollectingEmail
	case o.state == StateSuccess:
	case empty:
		o.dropIntent()
		o.state = StateEmptyCart
	case o.state == StateEmptyCart:
		o.state = StateCollectingEmail
	case o.clientSecret != "" && snap.Fingerprint() != o.paid.Fingerprint():
		o.log.Info().Str("intent_id", o.intentID).Msg("cart changed under payment intent")
		o.dropIntent()
		o.errMsg = CartChangedMessage
		if o.email == "" {
			o.state = StateCollectingEmail
		} else {
			o.state = StateCardForm
		}
	}
}

func (o *Orchestrator) dropIntent() {
	o.clientSecret = ""
	o.intentID = ""
	o.paid = cart.State{}
}

func (o *Orchestrator) reset() {
	o.email = ""
	o.dropIntent()
	o.errMsg = ""
	o.notified = false
}

func (o *Orchestrator) transition(to State) error {
	if !CanTransitionTo(o.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.state, to)
	}
	o.state = to
	return nil
}

// SubmitEmail gates the card form on a non-empty email.
func (o *Orchestrator) SubmitEmail(email string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()

	if o.state == StateEmptyCart {
		return ErrEmptyCart
	}
	email = strings.TrimSpace(email)
	if email == "" {
		err := &ValidationError{Field: "email", Message: "Please enter your email address"}
		o.errMsg = err.Message
		return err
	}
	if err := o.transition(StateCardForm); err != nil {
		return err
	}
	o.email = email
	o.errMsg = ""
	return nil
}

// SubmitCard creates the payment intent for the card form. On success the
// payment element can be mounted with the returned client secret.
func (o *Orchestrator) SubmitCard(ctx context.Context) (*gateway.PaymentIntent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()

	if o.state == StateEmptyCart {
		return nil, ErrEmptyCart
	}
	if o.state != StateCardForm {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.state, StatePaymentConfirming)
	}

	intent, err := o.createIntent(ctx)
	if err != nil {
		o.errMsg = err.Error()
		return nil, err
	}
	o.errMsg = ""
	return intent, o.transition(StatePaymentConfirming)
}

// Express starts a wallet payment, skipping the card form. A failure sends
// the shopper back to the email step with the error shown inline.
func (o *Orchestrator) Express(ctx context.Context, walletEmail string) (*gateway.PaymentIntent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()

	if o.state == StateEmptyCart {
		return nil, ErrEmptyCart
	}
	if err := o.transition(StateExpressCheckout); err != nil {
		return nil, err
	}
	if e := strings.TrimSpace(walletEmail); e != "" {
		o.email = e
	}

	intent, err := o.createIntent(ctx)
	if err != nil {
		o.errMsg = err.Error()
		o.state = StateCollectingEmail
		return nil, err
	}
	o.errMsg = ""
	return intent, o.transition(StatePaymentConfirming)
}

func (o *Orchestrator) createIntent(ctx context.Context) (*gateway.PaymentIntent, error) {
	snap := o.store.Snapshot()
	items, err := lineItems(snap)
	if err != nil {
		return nil, err
	}

	intent, err := o.gateway.CreatePaymentIntent(ctx, o.store.ID(), o.attemptID, items)
	if err != nil {
		o.log.Warn().Err(err).Msg("payment intent creation failed")
		return nil, err
	}
	o.clientSecret = intent.ClientSecret
	o.intentID = intent.ID
	o.paid = snap
	return intent, nil
}

// Confirm submits and confirms el against the current intent. It may be
// called again after a failure.
func (o *Orchestrator) Confirm(ctx context.Context, el PaymentElement, returnURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()

	if o.state == StateFailed {
		if err := o.transition(StatePaymentConfirming); err != nil {
			return err
		}
	}
	if o.state != StatePaymentConfirming || o.clientSecret == "" {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.state, StateSuccess)
	}

	if err := el.Submit(ctx); err != nil {
		o.fail(err, submitMessage(err))
		return err
	}

	err := el.Confirm(ctx, ConfirmParams{
		ClientSecret: o.clientSecret,
		IntentID:     o.intentID,
		ReturnURL:    returnURL,
		Email:        o.email,
	})
	if err != nil {
		o.fail(err, UserMessage(err))
		return err
	}

	o.succeed(ctx)
	return nil
}

func (o *Orchestrator) fail(err error, msg string) {
	o.log.Info().Err(err).Msg("payment confirmation failed")
	o.errMsg = msg
	o.state = StateFailed
}

func (o *Orchestrator) succeed(ctx context.Context) {
	res := Result{CartID: o.store.ID(), IntentID: o.intentID, Email: o.email}

	o.removePaid()
	o.dropIntent()
	o.errMsg = ""
	o.attemptID = uuid.NewString()
	if o.mirror != nil && o.store.Snapshot().IsEmpty() {
		if err := o.mirror.Delete(ctx, o.store.ID()); err != nil {
			o.log.Warn().Err(err).Msg("failed to clear cart mirror")
		}
	}
	o.state = StateSuccess

	if !o.notified && o.onSuccess != nil {
		o.notified = true
		o.onSuccess(res)
	}
}

// removePaid takes the paid lines out of the cart. Units added while the
// payment was confirming stay.
func (o *Orchestrator) removePaid() {
	if o.store.Snapshot().Fingerprint() == o.paid.Fingerprint() {
		o.store.Dispatch(cart.ClearCart{})
		return
	}
	for _, paid := range o.paid.Items {
		current, ok := o.store.Snapshot().Find(paid.ID, paid.Size)
		if !ok {
			continue
		}
		o.store.Dispatch(cart.UpdateQuantity{ID: paid.ID, Size: paid.Size, Quantity: current.Quantity - paid.Quantity})
	}
}

// HostedCheckout is the redirect alternative to the embedded flow. It does
// not move the state machine.
func (o *Orchestrator) HostedCheckout(ctx context.Context, origin string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sync()

	if o.state == StateEmptyCart {
		return "", ErrEmptyCart
	}
	items, err := lineItems(o.store.Snapshot())
	if err != nil {
		return "", err
	}
	session, err := o.gateway.CreateCheckoutSession(ctx, o.store.ID(), origin, items)
	if err != nil {
		o.errMsg = err.Error()
		return "", err
	}
	return session.URL, nil
}

// submitMessage shows the element's own message for validation failures.
func submitMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return GenericErrorMessage
}

// lineItems validates the cart and converts it to the gateway wire shape.
func lineItems(s cart.State) ([]gateway.LineItem, error) {
	if s.IsEmpty() {
		return nil, ErrEmptyCart
	}
	items := make([]gateway.LineItem, 0, len(s.Items))
	for _, it := range s.Items {
		if !it.Price.IsPositive() {
			return nil, &ValidationError{Field: "price", Message: fmt.Sprintf("Invalid price for item: %s", it.Title)}
		}
		if it.Quantity <= 0 {
			return nil, &ValidationError{Field: "quantity", Message: fmt.Sprintf("Invalid quantity for item: %s", it.Title)}
		}
		var images []string
		if it.Image != "" {
			images = []string{it.Image}
		}
		items = append(items, gateway.LineItem{
			ID:       it.ID,
			Title:    it.Title,
			Price:    it.Price.InexactFloat64(),
			Quantity: it.Quantity,
			Images:   images,
		})
	}
	return items, nil
}
