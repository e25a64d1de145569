package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lacomanda/storefront/internal/cart"
	"github.com/lacomanda/storefront/internal/identity"
	"github.com/lacomanda/storefront/internal/transport"
)

// Invariant violations: programmer/UI-gating errors that short-circuit
// before any request is made.
var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrNoPaymentIntent = errors.New("checkout: no payment intent cached")
	ErrSubmitInFlight  = errors.New("checkout: submission already in progress")
	ErrUnknownPromo    = errors.New("checkout: unknown promo code")
)

// InvalidFormError reports which steps failed validation on submit.
type InvalidFormError struct {
	Steps []Step
}

func (e *InvalidFormError) Error() string {
	names := make([]string, len(e.Steps))
	for i, s := range e.Steps {
		names[i] = s.String()
	}
	return fmt.Sprintf("checkout: invalid steps: %s", strings.Join(names, ", "))
}

// Confirmer is the hosted payment widget: given a client secret it collects
// the card and yields a confirm result. The orchestrator never manages its
// rendering.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret string) error
}

// PromoChecker answers whether a promo code might be valid, typically from
// an offline bloom pack. False positives are acceptable (the backend is
// authoritative); false negatives are not.
type PromoChecker interface {
	MightContain(code string) bool
}

// Confirmation is the outcome of a successfully submitted order.
type Confirmation struct {
	OrderID       int64
	OrderNumber   string
	TransactionID string
	Detail        string
}

// Orchestrator coordinates the checkout session: the wizard, the cached
// payment intent, and the exactly-once submission. Submission is not
// re-entrant; concurrent Submit calls beyond the first fail with
// ErrSubmitInFlight.
type Orchestrator struct {
	api     *transport.Client
	cart    *cart.Engine
	devices *identity.Devices
	confirm Confirmer
	promo   PromoChecker
	lg      *zap.Logger

	mu         sync.Mutex
	wizard     *Wizard
	intent     *PaymentIntent
	submitting bool

	sf singleflight.Group
}

// NewOrchestrator creates a checkout session. promo may be nil, in which
// case promo codes are passed through unchecked.
func NewOrchestrator(
	api *transport.Client,
	cartEngine *cart.Engine,
	devices *identity.Devices,
	confirm Confirmer,
	promo PromoChecker,
	lg *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		api:     api,
		cart:    cartEngine,
		devices: devices,
		confirm: confirm,
		promo:   promo,
		lg:      lg.Named("checkout"),
		wizard:  NewWizard(),
	}
}

// Begin initializes the session: it reuses a cached payment intent or
// requests one keyed off the current cart contents.
func (o *Orchestrator) Begin(ctx context.Context) (PaymentIntent, error) {
	return o.EnsureIntent(ctx)
}

// CurrentStep returns the wizard's position.
func (o *Orchestrator) CurrentStep() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wizard.Current()
}

// Goto forwards to the wizard's navigation gate.
func (o *Orchestrator) Goto(s Step) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wizard.Goto(s)
}

// IsStepValid forwards to the wizard.
func (o *Orchestrator) IsStepValid(s Step) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wizard.StepValid(s)
}

// FieldErrors forwards to the wizard.
func (o *Orchestrator) FieldErrors(s Step) []FieldError {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wizard.FieldErrors(s)
}

// SetDeliveryInfo stores the first step's form.
func (o *Orchestrator) SetDeliveryInfo(f DeliveryInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.wizard.SetDeliveryInfo(f)
}

// SetOrderSummary stores the second step's form.
func (o *Orchestrator) SetOrderSummary(f OrderSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.wizard.SetOrderSummary(f)
}

// SetPayment stores the third step's form.
func (o *Orchestrator) SetPayment(f Payment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.wizard.SetPayment(f)
}

// Wizard returns a copy of the wizard state for display purposes.
func (o *Orchestrator) Wizard() Wizard {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.wizard
}

// ApplyPromoCode runs the code through the offline prefilter and stores it
// on the order-summary step. An empty code clears any applied code.
func (o *Orchestrator) ApplyPromoCode(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code != "" && o.promo != nil && !o.promo.MightContain(code) {
		return ErrUnknownPromo
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	f := o.wizard.OrderSummary()
	f.PromoCode = code
	o.wizard.SetOrderSummary(f)
	return nil
}

// orderRequest is the order submission payload.
type orderRequest struct {
	CustomerInfo      customerInfo      `json:"customer_info"`
	AddressInfo       addressInfo       `json:"address_info"`
	OrderInstructions orderInstructions `json:"order_instructions"`
	PaymentInfo       paymentInfo       `json:"payment_info"`
	MenuItems         []menuItem        `json:"menu_items"`
	PaymentIntentID   string            `json:"payment_intent_id"`
	PromoCode         string            `json:"promo_code,omitempty"`
}

type customerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type addressInfo struct {
	AddressLine1        string `json:"address_line_1"`
	AddressLine2        string `json:"address_line_2"`
	NoInterior          string `json:"no_interior"`
	NoExterior          string `json:"no_exterior"`
	SpecialInstructions string `json:"special_instructions"`
}

type orderInstructions struct {
	SpecialInstructions string `json:"special_instructions"`
}

type paymentInfo struct {
	CardHolder    string `json:"card_holder"`
	CardNumber    string `json:"card_number,omitempty"`
	ExpiryDate    string `json:"expiry_date"`
	TransactionID string `json:"transaction_id"`
}

// orderResponse is the order endpoint's envelope.
type orderResponse struct {
	Success       bool   `json:"success"`
	Detail        string `json:"detail"`
	TransactionID string `json:"transaction_id"`
	DeviceID      string `json:"device_id"`
	Order         struct {
		ID          int64  `json:"id"`
		OrderNumber string `json:"order_number"`
	} `json:"order"`
}

// Submit places the order exactly once. Preconditions: every step valid, a
// payment intent cached, a non-empty cart, and no submission in flight;
// violations are returned before any network call. On success the cart and
// the intent are cleared and the wizard resets; on failure everything is
// preserved so the user can retry with the same intent and data.
func (o *Orchestrator) Submit(ctx context.Context) (*Confirmation, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if invalid := o.wizard.InvalidSteps(); len(invalid) > 0 {
		o.mu.Unlock()
		return nil, &InvalidFormError{Steps: invalid}
	}
	if o.intent == nil {
		o.mu.Unlock()
		return nil, ErrNoPaymentIntent
	}
	snap := o.cart.Snapshot()
	if snap.IsEmpty() {
		o.mu.Unlock()
		return nil, ErrEmptyCart
	}
	o.submitting = true
	intent := *o.intent
	delivery := o.wizard.DeliveryInfo()
	summary := o.wizard.OrderSummary()
	payment := o.wizard.Payment()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	if err := o.confirm.Confirm(ctx, intent.ClientSecret); err != nil {
		return nil, errors.Wrap(err, "confirm payment")
	}

	req := orderRequest{
		CustomerInfo: customerInfo{
			Name:  delivery.CustomerName,
			Phone: delivery.CustomerPhone,
			Email: delivery.CustomerEmail,
		},
		AddressInfo: addressInfo{
			AddressLine1:        delivery.AddressLine1,
			AddressLine2:        delivery.AddressLine2,
			NoInterior:          delivery.NoInterior,
			NoExterior:          delivery.NoExterior,
			SpecialInstructions: delivery.SpecialInstructions,
		},
		OrderInstructions: orderInstructions{
			SpecialInstructions: summary.SpecialInstructions,
		},
		PaymentInfo: paymentInfo{
			CardHolder:    payment.CardHolder,
			CardNumber:    stripSpaces(payment.CardNumber),
			ExpiryDate:    NormalizeExpiry(payment.ExpiryDate),
			TransactionID: newTransactionToken(),
		},
		MenuItems:       menuItemsPayload(snap.Lines),
		PaymentIntentID: intent.ID,
		PromoCode:       summary.PromoCode,
	}

	var resp orderResponse
	if err := o.api.Post(ctx, "orders/", req, &resp); err != nil {
		o.lg.Warn("order submission failed", zap.Error(err))
		return nil, errors.Wrap(err, "submit order")
	}

	// Success: the backend may issue a device id for new customers.
	if resp.DeviceID != "" {
		if err := o.devices.Assign(resp.DeviceID); err != nil {
			o.lg.Error("persist assigned device id", zap.Error(err))
		}
	}

	o.cart.Clear()
	o.mu.Lock()
	o.intent = nil
	o.wizard.markSubmitted()
	o.mu.Unlock()

	o.lg.Info("order submitted",
		zap.Int64("order_id", resp.Order.ID),
		zap.String("order_number", resp.Order.OrderNumber),
	)
	return &Confirmation{
		OrderID:       resp.Order.ID,
		OrderNumber:   resp.Order.OrderNumber,
		TransactionID: resp.TransactionID,
		Detail:        resp.Detail,
	}, nil
}
