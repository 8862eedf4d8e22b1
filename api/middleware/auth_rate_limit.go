package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwanyu/marketplace-backend/api/responses"
	"github.com/iwanyu/marketplace-backend/api/validators"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
)

// maxAuthBody caps how much of a credentials payload is buffered to find the
// email. Larger bodies are rejected by the decoder downstream anyway.
const maxAuthBody = 64 << 10

// AuthRateLimitPolicy throttles one credentials endpoint by client IP and by
// the submitted email. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) scope(dimension, subject string) string {
	return "auth:" + p.name + ":" + dimension + ":" + subject
}

// AuthRateLimit guards login and registration. Unlike RateLimit it fails
// closed: a limiter outage answers 500 rather than opening the door to
// credential stuffing.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				ip := ClientIP(r)
				if ip != "" {
					scope := policy.scope("ip", ip)
					allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(policy.ipLimit), policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						rejectRateLimited(ctx, logg, w, policy.window, map[string]any{
							"policy": policy.name, "dimension": "ip", "ip": ip, "attempts": count, "limit": policy.ipLimit,
						})
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if digest := emailDigest(body); digest != "" {
					scope := policy.scope("email", digest)
					allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(policy.emailLimit), policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						rejectRateLimited(ctx, logg, w, policy.window, map[string]any{
							"policy": policy.name, "dimension": "email", "email_hash": digest, "attempts": count, "limit": policy.emailLimit,
						})
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// emailDigest hashes the normalized email so raw addresses never land in
// Redis keys or logs.
func emailDigest(payload []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &creds) != nil {
		return ""
	}
	email := validators.NormalizeEmail(creds.Email)
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
