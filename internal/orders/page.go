package orders

import (
	"net/url"
	"strconv"
)

// PageSize is the backend's fixed page size. It exists only to reconstruct a
// page number for display; fetching always follows the opaque cursors.
const PageSize = 25

// Page is one fetched batch of orders. The client never accumulates pages;
// callers decide whether to replace or append.
type Page struct {
	Count    int       `json:"count"`
	Results  []Summary `json:"results"`
	Next     string    `json:"next"`
	Previous string    `json:"previous"`
}

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Next != "" }

// HasPrevious reports whether an earlier page exists.
func (p Page) HasPrevious() bool { return p.Previous != "" }

// CurrentPage reconstructs the 1-based page number from the cursors, since
// the backend never states it directly. Best-effort and purely
// presentational; navigation must use the cursors, never this number.
//
// Derivation: a next cursor with page=N means we are on N-1; else a previous
// cursor with page=N means N+1; else a non-empty page with no next cursor is
// the last page, ceil(count/PageSize); else page 1.
func (p Page) CurrentPage() int {
	if n, ok := cursorPage(p.Next); ok {
		return n - 1
	}
	if n, ok := cursorPage(p.Previous); ok {
		return n + 1
	}
	if p.Next == "" && len(p.Results) > 0 {
		return p.TotalPages()
	}
	return 1
}

// TotalPages is the page count implied by Count, at least 1.
func (p Page) TotalPages() int {
	if p.Count <= 0 {
		return 1
	}
	return (p.Count + PageSize - 1) / PageSize
}

// cursorPage extracts the page query parameter from a cursor URL.
// DRF-style cursors omit page=1, so absence is common and not an error.
func cursorPage(cursor string) (int, bool) {
	if cursor == "" {
		return 0, false
	}
	u, err := url.Parse(cursor)
	if err != nil {
		return 0, false
	}
	raw := u.Query().Get("page")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
