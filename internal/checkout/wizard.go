// Package checkout orchestrates the multi-step checkout: a step-sequenced
// form wizard, a one-time payment-intent acquisition, and exactly-once order
// submission.
package checkout

import (
	"fmt"
	"regexp"
	"strings"
)

// Step is a position in the checkout wizard.
type Step int

const (
	StepDeliveryInfo Step = iota
	StepOrderSummary
	StepPayment
	StepFinalReview
	stepCount

	// StepSubmitted is terminal: entered only through a successful
	// submission, never through Goto.
	StepSubmitted = stepCount
)

func (s Step) String() string {
	switch s {
	case StepDeliveryInfo:
		return "deliveryInfo"
	case StepOrderSummary:
		return "orderSummary"
	case StepPayment:
		return "payment"
	case StepFinalReview:
		return "finalReview"
	case StepSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// FieldError is one inline validation failure. Validation errors stay on the
// client; they are never sent to the network.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

var (
	phoneRe      = regexp.MustCompile(`^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)
	emailRe      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	cardHolderRe = regexp.MustCompile(`^[\p{L}][\p{L} ]*$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2}|\d{4})$`)
	cvcRe        = regexp.MustCompile(`^\d{3,4}$`)
)

// DeliveryInfo is the first step's field set.
type DeliveryInfo struct {
	CustomerName        string
	CustomerPhone       string
	CustomerEmail       string
	AddressLine1        string
	AddressLine2        string
	NoExterior          string
	NoInterior          string
	SpecialInstructions string
}

// Validate applies the step's local rules.
func (f DeliveryInfo) Validate() []FieldError {
	var errs []FieldError
	if len(strings.TrimSpace(f.CustomerName)) < 2 {
		errs = append(errs, FieldError{"customerName", "name must be at least 2 characters"})
	}
	if !phoneRe.MatchString(strings.TrimSpace(f.CustomerPhone)) {
		errs = append(errs, FieldError{"customerPhone", "enter a valid phone number"})
	}
	if f.CustomerEmail != "" && !emailRe.MatchString(f.CustomerEmail) {
		errs = append(errs, FieldError{"customerEmail", "enter a valid email address"})
	}
	if len(strings.TrimSpace(f.AddressLine1)) < 5 {
		errs = append(errs, FieldError{"addressLine1", "address must be at least 5 characters"})
	}
	if strings.TrimSpace(f.NoExterior) == "" {
		errs = append(errs, FieldError{"noExterior", "exterior number is required"})
	}
	return errs
}

// OrderSummary is the second step's field set. Both fields are optional, so
// the step is always valid; the promo code has its own check in the
// orchestrator.
type OrderSummary struct {
	SpecialInstructions string
	PromoCode           string
}

// Validate never fails for this step.
func (f OrderSummary) Validate() []FieldError {
	return nil
}

// Payment is the third step's field set. Only the card holder is mandatory
// here: the hosted payment widget owns the card itself, and the remaining
// fields are validated only when the caller supplies them.
type Payment struct {
	CardHolder string
	CardNumber string
	ExpiryDate string
	CVC        string
}

// Validate applies the step's local rules.
func (f Payment) Validate() []FieldError {
	var errs []FieldError
	holder := strings.TrimSpace(f.CardHolder)
	switch {
	case len(holder) < 2:
		errs = append(errs, FieldError{"cardHolder", "card holder name must be at least 2 characters"})
	case len(holder) > 50:
		errs = append(errs, FieldError{"cardHolder", "card holder name must be at most 50 characters"})
	case !cardHolderRe.MatchString(holder):
		errs = append(errs, FieldError{"cardHolder", "card holder name may only contain letters and spaces"})
	}
	if f.CardNumber != "" && len(stripSpaces(f.CardNumber)) < 13 {
		errs = append(errs, FieldError{"cardNumber", "enter a valid card number"})
	}
	if f.ExpiryDate != "" && !expiryRe.MatchString(f.ExpiryDate) {
		errs = append(errs, FieldError{"expiryDate", "expiry must be MM/YY"})
	}
	if f.CVC != "" && !cvcRe.MatchString(f.CVC) {
		errs = append(errs, FieldError{"cvc", "enter a valid security code"})
	}
	return errs
}

// Wizard is the step-indexed checkout state machine. It holds each step's
// field values and pure validity predicates, independent of any UI binding.
// It is not safe for concurrent use; the Orchestrator serializes access.
type Wizard struct {
	current  Step
	delivery DeliveryInfo
	summary  OrderSummary
	payment  Payment
}

// NewWizard starts at the delivery-info step with empty forms.
func NewWizard() *Wizard {
	return &Wizard{}
}

// Current returns the step the wizard is on.
func (w *Wizard) Current() Step {
	return w.current
}

// StepValid reports whether a step's current field values pass its rules.
func (w *Wizard) StepValid(s Step) bool {
	return len(w.FieldErrors(s)) == 0
}

// FieldErrors returns a step's inline validation failures.
func (w *Wizard) FieldErrors(s Step) []FieldError {
	switch s {
	case StepDeliveryInfo:
		return w.delivery.Validate()
	case StepOrderSummary:
		return w.summary.Validate()
	case StepPayment:
		return w.payment.Validate()
	case StepFinalReview:
		return nil
	default:
		return []FieldError{{Field: "step", Message: "unknown step"}}
	}
}

// Reachable reports whether every step before s is currently valid.
func (w *Wizard) Reachable(s Step) bool {
	if s < 0 || s >= stepCount {
		return false
	}
	for prior := StepDeliveryInfo; prior < s; prior++ {
		if !w.StepValid(prior) {
			return false
		}
	}
	return true
}

// Goto requests navigation to s and reports whether it happened. Allowed
// moves: staying put, any earlier step, or exactly the next step when all
// steps before it are valid. Anything else is ignored without error; this is
// a UI affordance gate, not a hard constraint.
func (w *Wizard) Goto(s Step) bool {
	if s < 0 || s >= stepCount {
		return false
	}
	switch {
	case s <= w.current:
		w.current = s
		return true
	case s == w.current+1 && w.Reachable(s):
		w.current = s
		return true
	default:
		return false
	}
}

// AllValid reports whether every step passes validation.
func (w *Wizard) AllValid() bool {
	for s := StepDeliveryInfo; s < stepCount; s++ {
		if !w.StepValid(s) {
			return false
		}
	}
	return true
}

// InvalidSteps lists the steps that currently fail validation.
func (w *Wizard) InvalidSteps() []Step {
	var out []Step
	for s := StepDeliveryInfo; s < stepCount; s++ {
		if !w.StepValid(s) {
			out = append(out, s)
		}
	}
	return out
}

// Reset returns the wizard to step one with all forms empty and untouched.
func (w *Wizard) Reset() {
	*w = Wizard{}
}

// markSubmitted moves to the terminal state with all forms cleared, so the
// next checkout restarts from step one with untouched fields.
func (w *Wizard) markSubmitted() {
	*w = Wizard{current: StepSubmitted}
}

// Setters and getters for the step forms. Setting a form does not move the
// wizard; navigation is always an explicit Goto.

func (w *Wizard) SetDeliveryInfo(f DeliveryInfo) { w.delivery = f }
func (w *Wizard) SetOrderSummary(f OrderSummary) { w.summary = f }
func (w *Wizard) SetPayment(f Payment)           { w.payment = f }

func (w Wizard) DeliveryInfo() DeliveryInfo { return w.delivery }
func (w Wizard) OrderSummary() OrderSummary { return w.summary }
func (w Wizard) Payment() Payment           { return w.payment }
