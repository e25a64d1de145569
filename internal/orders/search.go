package orders

import (
	"net/url"
	"regexp"
	"strings"
)

// OrderNumberPrefix is the prefix the backend assigns to order numbers.
const OrderNumberPrefix = "ORD-"

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	// phoneRe is deliberately permissive: digits plus the separators people
	// actually type. At least one digit is required.
	phoneRe = regexp.MustCompile(`^[0-9()+.\s-]*[0-9][0-9()+.\s-]*$`)
)

// Filter narrows an order listing. Zero-valued fields are omitted from the
// request. Query is the combined order-number-or-phone free-text fallback;
// whether the backend combines its fields with AND or OR is the backend's
// contract, the client passes it through as one parameter.
type Filter struct {
	Status        Status
	Date          string
	OrderNumber   string
	CustomerPhone string
	Query         string
}

// IsZero reports whether the filter narrows nothing.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Values translates the filter into query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Date != "" {
		v.Set("date", f.Date)
	}
	if f.OrderNumber != "" {
		v.Set("order_number", f.OrderNumber)
	}
	if f.CustomerPhone != "" {
		v.Set("customer_phone", f.CustomerPhone)
	}
	if f.Query != "" {
		v.Set("order_number_or_phone", f.Query)
	}
	return v
}

// ClassifyQuery turns a single free-text admin search into a Filter. Rules
// apply in priority order and only the first match counts, trading fuzzy
// multi-field matching for unambiguous classification:
//
//  1. a known status label or value (case-insensitive) filters by status
//  2. YYYY-MM-DD filters by date
//  3. an ORD- prefix filters by order number
//  4. a permissive phone pattern filters by customer phone
//  5. anything else becomes the combined order-number-or-phone filter
func ClassifyQuery(q string) Filter {
	q = strings.TrimSpace(q)
	if q == "" {
		return Filter{}
	}

	for s, label := range statusLabels {
		if strings.EqualFold(q, string(s)) || strings.EqualFold(q, label) {
			return Filter{Status: s}
		}
	}
	if dateRe.MatchString(q) {
		return Filter{Date: q}
	}
	if strings.HasPrefix(strings.ToUpper(q), OrderNumberPrefix) {
		return Filter{OrderNumber: q}
	}
	if phoneRe.MatchString(q) {
		return Filter{CustomerPhone: q}
	}
	return Filter{Query: q}
}
