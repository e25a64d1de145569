package httpclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LogRequests returns a middleware that debug-logs every outbound request
// with its status and duration. Failures log at warn; the error itself is
// still returned to the caller untouched.
func LogRequests(lg *zap.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("url", req.URL.Redacted()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				lg.Warn("request failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			lg.Debug("request", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
