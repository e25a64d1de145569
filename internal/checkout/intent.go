package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lacomanda/storefront/internal/cart"
)

// PaymentIntent is a provider-side staged-payment handle, created once per
// checkout session and reused until the order is placed or abandoned.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
}

// intentResponse is the payment-intent endpoint's envelope.
type intentResponse struct {
	Success         bool            `json:"success"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Detail          string          `json:"detail"`
}

// EnsureIntent returns the session's payment intent, creating it on first
// call. At most one non-empty intent exists per session: a second call while
// one is cached returns the cached intent without a network call, and
// concurrent first calls collapse into a single request. Creation failure
// caches nothing, so retrying is simply calling EnsureIntent again.
func (o *Orchestrator) EnsureIntent(ctx context.Context) (PaymentIntent, error) {
	o.mu.Lock()
	if o.intent != nil {
		cached := *o.intent
		o.mu.Unlock()
		return cached, nil
	}
	snap := o.cart.Snapshot()
	o.mu.Unlock()

	if snap.IsEmpty() {
		return PaymentIntent{}, ErrEmptyCart
	}

	v, err, _ := o.sf.Do("payment-intent", func() (any, error) {
		// Re-check under the group: a concurrent winner may have cached.
		o.mu.Lock()
		if o.intent != nil {
			cached := *o.intent
			o.mu.Unlock()
			return cached, nil
		}
		o.mu.Unlock()

		req := map[string]any{"menu_items": menuItemsPayload(snap.Lines)}
		var resp intentResponse
		if err := o.api.Post(ctx, "orders/create-payment-intent/", req, &resp); err != nil {
			return PaymentIntent{}, errors.Wrap(err, "create payment intent")
		}
		if resp.PaymentIntentID == "" || resp.ClientSecret == "" {
			return PaymentIntent{}, errors.New("payment intent response missing id or secret")
		}

		intent := PaymentIntent{
			ID:           resp.PaymentIntentID,
			ClientSecret: resp.ClientSecret,
			Amount:       resp.Amount,
			Currency:     resp.Currency,
		}
		o.mu.Lock()
		o.intent = &intent
		o.mu.Unlock()
		o.lg.Info("payment intent created", zap.String("payment_intent_id", intent.ID))
		return intent, nil
	})
	if err != nil {
		return PaymentIntent{}, err
	}
	return v.(PaymentIntent), nil
}

// Intent returns the cached payment intent, if any.
func (o *Orchestrator) Intent() (PaymentIntent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.intent == nil {
		return PaymentIntent{}, false
	}
	return *o.intent, true
}

// ClearIntent drops the cached intent, forcing the next checkout to create
// a fresh one. Called internally after successful submission; exposed for
// explicit checkout abandonment.
func (o *Orchestrator) ClearIntent() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.intent = nil
}

// menuItem is one cart line in the over-the-wire shape.
type menuItem struct {
	MenuItemID int64 `json:"menu_item_id"`
	SizeID     int64 `json:"size_id"`
	Quantity   int   `json:"quantity"`
}

func menuItemsPayload(lines []cart.Line) []menuItem {
	out := make([]menuItem, len(lines))
	for i, l := range lines {
		out[i] = menuItem{MenuItemID: l.MenuItemID, SizeID: l.SizeID, Quantity: l.Quantity}
	}
	return out
}
