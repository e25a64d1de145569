package httpclient

import "net/http"

// AuthToken returns a middleware that injects a bearer token on every
// request. provider returns the current token, or an empty string when no
// valid token exists (the request goes out unauthenticated). An existing
// Authorization header is never overwritten.
func AuthToken(provider func() string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			token := provider()
			if token == "" {
				return next.RoundTrip(req)
			}
			out := req.Clone(req.Context())
			out.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(out)
		})
	}
}
