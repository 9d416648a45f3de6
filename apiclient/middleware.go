package apiclient

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Middleware decorates a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with mw so that mw[0] sees the request first and the last
// middleware sits closest to the network.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	chained := base
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// RequestID stamps each outgoing request with a fresh X-Request-ID unless the
// caller already set one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(r)
		})
	}
}

// Logging logs each round trip at debug level and transport failures at warn.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			if err != nil {
				logger.Warn().Err(err).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Str("request_id", req.Header.Get(RequestIDHeader)).
					Dur("elapsed", time.Since(start)).
					Msg("request failed")
				return nil, err
			}
			logger.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", resp.StatusCode).
				Str("request_id", req.Header.Get(RequestIDHeader)).
				Dur("elapsed", time.Since(start)).
				Msg("request")
			return resp, nil
		})
	}
}
