package auth

import (
	"context"
	"net"
	"net/http"
	"strings"

	pkgerrors "kaku/pkg/errors"
)

type contextKey struct{}

// WithClaims stores claims in ctx
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFromContext returns the authenticated caller, if any
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// ErrorWriter writes an error response
type ErrorWriter interface {
	Handle(w http.ResponseWriter, r *http.Request, err error)
}

// Authenticate rejects requests without a valid bearer token
func Authenticate(v *Validator, errs ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("missing or malformed authorization header"))
				return
			}
			claims, err := v.Validate(token)
			if err != nil {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(err.Error()))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RateLimit limits requests per scribe, or per client address when the
// request is anonymous.
func RateLimit(l *RateLimiter, errs ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if c, ok := ClaimsFromContext(r.Context()); ok {
				key = "scribe:" + c.ScribeID
			}
			if !l.Allow(key) {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(l.Limit()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
