package transport

import (
	"fmt"
	"sort"
)

// APIError is a business-level failure reported by the backend: a non-2xx
// status, or a 2xx envelope carrying success:false. It travels as a value up
// exactly one level, to the component that initiated the call; consumers
// decide whether to retry.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Detail is the server's top-level message, when one was present.
	Detail string
	// Payload is the decoded response body, kept for structured field
	// errors (payment declined, invalid address, ...).
	Payload map[string]any
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// envelopeKeys are top-level payload keys that are bookkeeping, not field
// errors, and are skipped when flattening.
var envelopeKeys = map[string]bool{
	"success": true,
	"status":  true,
	"code":    true,
}

// Messages flattens the payload's field errors into display-ready
// "field: message" strings, recursing into nested error objects. Keys are
// visited in sorted order so the output is stable.
func (e *APIError) Messages() []string {
	msgs := flattenErrors(e.Payload)
	if len(msgs) == 0 && e.Detail != "" {
		return []string{e.Detail}
	}
	return msgs
}

func flattenErrors(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, flattenErrors(item)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			if envelopeKeys[k] {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []string
		for _, k := range keys {
			switch inner := val[k].(type) {
			case string:
				out = append(out, fmt.Sprintf("%s: %s", k, inner))
			case []any:
				for _, item := range inner {
					if s, ok := item.(string); ok {
						out = append(out, fmt.Sprintf("%s: %s", k, s))
					} else {
						out = append(out, flattenErrors(item)...)
					}
				}
			case map[string]any:
				out = append(out, flattenErrors(inner)...)
			}
		}
		return out
	default:
		return nil
	}
}
