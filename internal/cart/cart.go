// Package cart owns the canonical shopping-cart state: line items keyed by
// (menu item, size), derived totals, persistence, and change notification.
package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Key is the compound identity of a cart line. No two lines in a cart share
// a Key.
type Key struct {
	MenuItemID int64
	SizeID     int64
}

// Line is one (menu item, size) pairing in the cart. Quantity is always a
// positive integer while the line is present; a quantity forced to zero or
// below removes the line instead.
type Line struct {
	MenuItemID int64           `json:"menuItemId"`
	SizeID     int64           `json:"sizeId"`
	Size       string          `json:"size"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	ImageURL   string          `json:"imageUrl"`
}

// Key returns the line's compound identity.
func (l Line) Key() Key {
	return Key{MenuItemID: l.MenuItemID, SizeID: l.SizeID}
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// UnmarshalJSON accepts both the current shape and the legacy one where a
// line carried a bare productId and no size id. Legacy lines are migrated to
// the compound identity with a zero SizeID.
func (l *Line) UnmarshalJSON(raw []byte) error {
	var p struct {
		MenuItemID *int64          `json:"menuItemId"`
		ProductID  *int64          `json:"productId"`
		SizeID     int64           `json:"sizeId"`
		Size       string          `json:"size"`
		Name       string          `json:"name"`
		Price      decimal.Decimal `json:"price"`
		Quantity   int             `json:"quantity"`
		ImageURL   string          `json:"imageUrl"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	switch {
	case p.MenuItemID != nil:
		l.MenuItemID = *p.MenuItemID
	case p.ProductID != nil:
		l.MenuItemID = *p.ProductID
	}
	l.SizeID = p.SizeID
	l.Size = p.Size
	l.Name = p.Name
	l.Price = p.Price
	l.Quantity = p.Quantity
	l.ImageURL = p.ImageURL
	return nil
}

// Cart is the full cart snapshot. Total and ItemCount are derived from Lines
// and recomputed after every mutation; they are persisted for convenience but
// never trusted on load.
type Cart struct {
	Lines     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// Empty returns a cart with no lines and zeroed totals.
func Empty() Cart {
	return Cart{Lines: []Line{}, Total: decimal.Zero}
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// recompute rederives Total and ItemCount from Lines.
func (c *Cart) recompute() {
	total := decimal.Zero
	count := 0
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
		count += l.Quantity
	}
	c.Total = total
	c.ItemCount = count
}

// clone returns a deep copy, so callers can never mutate engine state
// through a returned snapshot.
func (c Cart) clone() Cart {
	out := c
	out.Lines = make([]Line, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

// FormatTotal renders an amount as a display string in the given currency,
// e.g. "MX$129.50" for MXN.
func FormatTotal(amount decimal.Decimal, unit currency.Unit) string {
	p := message.NewPrinter(language.English)
	f, _ := amount.Float64()
	return p.Sprintf("%v", currency.Symbol(unit.Amount(f)))
}
