package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/utils/response"
)

// CheckoutLimiter reports whether owner may attempt another checkout,
// the attempts left and the seconds to wait when it may not.
type CheckoutLimiter interface {
	CheckCheckoutRateLimit(ctx context.Context, owner string) (bool, int, int, error)
}

// RateLimit throttles checkout attempts per cart owner. It must run after Identify.
func RateLimit(limiter CheckoutLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			logger := LoggerFromContext(r.Context())

			cc, ok := CartContextFromContext(r.Context())
			if !ok {
				response.Error(w, errors.UnauthorizedError("Missing cart owner"))
				return
			}

			allowed, remaining, retryAfter, err := limiter.CheckCheckoutRateLimit(r.Context(), cc.Key())
			if err != nil {
				// fail open
				logger.Error("Checkout rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, errors.TooManyRequestsError("Too many checkout attempts"))
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
