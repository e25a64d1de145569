package checkout

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeExpiry converts a two-digit-year expiry (MM/YY) to the four-digit
// form the backend expects (MM/20YY). A value already carrying a four-digit
// year, or one that does not split as MM/YY at all, is returned unchanged.
func NormalizeExpiry(expiry string) string {
	month, year, ok := strings.Cut(expiry, "/")
	if !ok || month == "" || year == "" {
		return expiry
	}
	if len(year) == 2 {
		return month + "/20" + year
	}
	return expiry
}

// stripSpaces removes all whitespace from a card number.
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		default:
			return r
		}
	}, s)
}

// newTransactionToken generates the idempotency token sent with one
// submission attempt. A fresh token is generated per attempt.
func newTransactionToken() string {
	return "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
