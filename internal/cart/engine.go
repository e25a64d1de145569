package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/lacomanda/storefront/internal/kvstore"
)

// StoreKey is the persistence key for the cart snapshot.
const StoreKey = "shopping_cart"

// Engine is the sole writer of cart state. Every mutation recomputes the
// derived totals, persists the snapshot, and then notifies subscribers
// synchronously with the post-mutation snapshot, so no observer can ever see
// a partially applied update.
type Engine struct {
	store kvstore.Store
	lg    *zap.Logger

	mu      sync.Mutex
	cart    Cart
	subs    map[int]func(Cart)
	nextSub int
}

// NewEngine restores the cart from the store (or starts empty) and returns
// an engine. Totals are recomputed from the restored lines, never read back.
func NewEngine(store kvstore.Store, lg *zap.Logger) (*Engine, error) {
	e := &Engine{
		store: store,
		lg:    lg.Named("cart"),
		subs:  make(map[int]func(Cart)),
	}
	c, err := load(store)
	if err != nil {
		return nil, err
	}
	e.cart = c
	return e, nil
}

func load(store kvstore.Store) (Cart, error) {
	c, ok, err := kvstore.GetJSON[Cart](store, StoreKey)
	if err != nil {
		return Cart{}, errors.Wrap(err, "restore cart")
	}
	if !ok {
		return Empty(), nil
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	c.recompute()
	return c, nil
}

// Snapshot returns a defensive copy of the current cart.
func (e *Engine) Snapshot() Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.clone()
}

// Subscribe registers fn for post-mutation snapshots. It returns a cancel
// func. fn runs synchronously on the mutating goroutine; it must not call
// back into the engine.
func (e *Engine) Subscribe(fn func(Cart)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// AddItem merges line into the cart: an existing line with the same
// (menu item, size) identity has its quantity incremented by the incoming
// quantity, otherwise the line is appended. Invalid shapes (non-positive
// quantity, negative price) are caller contract violations, not runtime
// failures.
func (e *Engine) AddItem(line Line) Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := line.Key()
	merged := false
	for i := range e.cart.Lines {
		if e.cart.Lines[i].Key() == key {
			e.cart.Lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		e.cart.Lines = append(e.cart.Lines, line)
	}
	e.lg.Debug("item added",
		zap.Int64("menu_item_id", line.MenuItemID),
		zap.Int64("size_id", line.SizeID),
		zap.Int("quantity", line.Quantity),
		zap.Bool("merged", merged),
	)
	return e.commitLocked()
}

// UpdateQuantity sets the quantity of the identified line. A quantity of
// zero or below removes the line. When no line matches, the cart is returned
// unchanged.
func (e *Engine) UpdateQuantity(menuItemID, sizeID int64, quantity int) Cart {
	if quantity <= 0 {
		return e.RemoveItem(menuItemID, sizeID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := Key{MenuItemID: menuItemID, SizeID: sizeID}
	for i := range e.cart.Lines {
		if e.cart.Lines[i].Key() == key {
			e.cart.Lines[i].Quantity = quantity
			return e.commitLocked()
		}
	}
	return e.cart.clone()
}

// RemoveItem deletes the identified line if present.
func (e *Engine) RemoveItem(menuItemID, sizeID int64) Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := Key{MenuItemID: menuItemID, SizeID: sizeID}
	for i := range e.cart.Lines {
		if e.cart.Lines[i].Key() == key {
			e.cart.Lines = append(e.cart.Lines[:i], e.cart.Lines[i+1:]...)
			return e.commitLocked()
		}
	}
	return e.cart.clone()
}

// Clear resets to the empty cart and persists.
func (e *Engine) Clear() Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart = Empty()
	return e.commitLocked()
}

// commitLocked recomputes totals, persists, and notifies. Persistence
// failure is logged, not returned: the in-memory cart stays authoritative
// for this session and the next successful mutation rewrites the snapshot.
func (e *Engine) commitLocked() Cart {
	e.cart.recompute()
	if err := kvstore.SetJSON(e.store, StoreKey, e.cart); err != nil {
		e.lg.Error("persist cart", zap.Error(err))
	}
	snap := e.cart.clone()
	for _, fn := range e.subs {
		fn(snap)
	}
	return snap
}

// WatchExternal reloads and re-emits whenever another execution context
// writes the persisted cart: eventual consistency across tabs, last writer
// wins, no merge. It blocks until ctx is done.
func (e *Engine) WatchExternal(ctx context.Context) error {
	ch, err := e.store.Watch(ctx, StoreKey)
	if err != nil {
		return errors.Wrap(err, "watch cart key")
	}
	for raw := range ch {
		var c Cart
		if raw == nil {
			c = Empty()
		} else if err := json.Unmarshal(raw, &c); err != nil {
			e.lg.Error("decode external cart, keeping local state", zap.Error(err))
			continue
		}
		if c.Lines == nil {
			c.Lines = []Line{}
		}
		c.recompute()

		e.mu.Lock()
		e.cart = c
		snap := e.cart.clone()
		for _, fn := range e.subs {
			fn(snap)
		}
		e.mu.Unlock()
		e.lg.Debug("external cart change applied", zap.Int("item_count", snap.ItemCount))
	}
	return nil
}
