package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credentialsRequest(path, email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"email":"`+email+`","password":"hunter22"}`))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimitPreservesBody(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	var seen string
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), limiter, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			seen = string(body)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialsRequest("/api/auth/login", "Buyer@Iwanyu.rw", "10.0.0.1:5000"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"Buyer@Iwanyu.rw"`)
	assert.Contains(t, limiter.counts, "auth:login:ip:10.0.0.1")
	assert.Len(t, limiter.counts, 2)
}

func TestAuthRateLimitEmailDimension(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), limiter, nil)(okHandler())

	// Case and whitespace differences hit the same counter; different IPs do
	// not help an attacker.
	emails := []string{"victim@iwanyu.rw", " VICTIM@iwanyu.rw", "victim@IWANYU.RW"}
	var codes []int
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, credentialsRequest("/api/auth/login", email, fmt.Sprintf("10.0.0.%d:1", i+1)))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), "RATE_LIMIT")
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	for scope := range limiter.counts {
		assert.NotContains(t, scope, "victim")
	}
}

func TestAuthRateLimitIPDimension(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	handler := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), limiter, nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, credentialsRequest("/api/auth/register", "a@iwanyu.rw", "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, credentialsRequest("/api/auth/register", "b@iwanyu.rw", "5.6.7.8:9999"))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestAuthRateLimitFailsClosed(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), &countingLimiter{err: errors.New("redis down")}, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialsRequest("/api/auth/login", "a@iwanyu.rw", "1.1.1.1:1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthRateLimitDisabledPolicy(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), limiter, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialsRequest("/api/auth/login", "a@iwanyu.rw", "1.1.1.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, limiter.counts)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4431"
	assert.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "::ffff:203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
