package orders

import (
	"context"
	"sync"

	"github.com/lacomanda/storefront/pkg/loading"
)

// ListView drives a paginated order listing (admin dashboard, kitchen
// board). Every fetch flows through a loading.Source, so a consumer sees
// loading / error / data states and a stale response can never clobber a
// newer one. The view remembers only the cursor of the page it is on; page
// navigation follows the server's cursors exclusively.
type ListView struct {
	client *Client
	src    *loading.Source[Page]

	mu     sync.Mutex
	gen    uint64
	filter Filter
	cursor string
	last   *Page
}

// NewListView creates a view with an initial filter.
func NewListView(client *Client, filter Filter) *ListView {
	return &ListView{
		client: client,
		src:    loading.NewSource[Page](),
		filter: filter,
	}
}

// States is the stream of loading states for this view.
func (v *ListView) States() <-chan loading.State[Page] {
	return v.src.States()
}

// Load fetches the first page for the current filter.
func (v *ListView) Load(ctx context.Context) {
	v.mu.Lock()
	v.cursor = ""
	v.mu.Unlock()
	v.fetch(ctx)
}

// Search reclassifies q into a filter and reloads from the first page.
func (v *ListView) Search(ctx context.Context, q string) {
	v.mu.Lock()
	v.filter = ClassifyQuery(q)
	v.cursor = ""
	v.mu.Unlock()
	v.fetch(ctx)
}

// Next moves to the next page. It reports false when there is none (or
// nothing is loaded yet).
func (v *ListView) Next(ctx context.Context) bool {
	return v.move(ctx, func(p *Page) string { return p.Next })
}

// Previous moves to the previous page.
func (v *ListView) Previous(ctx context.Context) bool {
	return v.move(ctx, func(p *Page) string { return p.Previous })
}

func (v *ListView) move(ctx context.Context, cursorOf func(*Page) string) bool {
	v.mu.Lock()
	if v.last == nil {
		v.mu.Unlock()
		return false
	}
	target := cursorOf(v.last)
	if target == "" {
		v.mu.Unlock()
		return false
	}
	v.cursor = target
	v.mu.Unlock()
	v.fetch(ctx)
	return true
}

// Refresh refetches the page the view is currently on, e.g. after a status
// update.
func (v *ListView) Refresh(ctx context.Context) {
	v.fetch(ctx)
}

// Current returns the most recently loaded page, or false before the first
// successful load.
func (v *ListView) Current() (Page, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last == nil {
		return Page{}, false
	}
	return *v.last, true
}

// Close drops interest in any in-flight fetch and closes the state stream.
func (v *ListView) Close() {
	v.src.Close()
}

func (v *ListView) fetch(ctx context.Context) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	filter := v.filter
	cursor := v.cursor
	v.mu.Unlock()

	v.src.Fetch(ctx, func(ctx context.Context) (Page, error) {
		page, err := v.client.FetchPage(ctx, filter, cursor)
		if err != nil {
			return Page{}, err
		}
		v.mu.Lock()
		// A newer fetch may have started while this one was in flight; its
		// page is the one the view is on now.
		if gen == v.gen {
			p := page
			v.last = &p
		}
		v.mu.Unlock()
		return page, nil
	})
}
