package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/iwanyu/marketplace-backend/api/responses"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps requests per authenticated user, or per client IP for
// anonymous callers, within a fixed window. Limiter outages fail open.
func RateLimit(limiter fixedWindowLimiter, limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := "api:ip:" + ClientIP(r)
			if userID := UserIDFromContext(ctx); userID != "" {
				scope = "api:user:" + userID
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
			if err != nil {
				logError(ctx, logg, "rate limit check failed", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				rejectRateLimited(ctx, logg, w, window, map[string]any{"scope": scope, "attempts": count, "limit": limit})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rejectRateLimited answers 429 with a Retry-After of one full window, the
// worst case for a fixed window counter.
func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, window time.Duration, fields map[string]any) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, fields), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(window.Seconds()))))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}
