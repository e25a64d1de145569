package httpclient

import (
	"net/http"
	"strings"
)

// DeviceIDHeader carries the stable per-device identifier that lets the
// backend scope "my orders" lookups without authentication.
const DeviceIDHeader = "X-Device-ID"

// orderPathPrefix limits device identification to the endpoints that need
// it; other requests stay anonymous.
const orderPathPrefix = "/orders/"

// DeviceID returns a middleware that attaches the device identifier to
// requests under the orders path prefix. provider returns the current id, or
// an empty string when the device has no identity yet (nothing is injected
// and the header is left untouched).
func DeviceID(provider func() string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, orderPathPrefix) {
				return next.RoundTrip(req)
			}
			id := provider()
			if id == "" {
				return next.RoundTrip(req)
			}
			out := req.Clone(req.Context())
			out.Header.Set(DeviceIDHeader, id)
			return next.RoundTrip(out)
		})
	}
}
