package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

type windowCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newWindowCounter() *windowCounter {
	return &windowCounter{counts: map[string]int64{}}
}

func (c *windowCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, 0, c.err
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func authPost(path, body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func tallyHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimitKeepsBodyForHandler(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	var seen string
	handler := AuthRateLimit(policy, newWindowCounter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authPost("/auth/login", `{"email":"tester@example.com","password":"secret"}`, "1.2.3.4:5678"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"tester@example.com"`)
}

func TestAuthRateLimitEmailWindow(t *testing.T) {
	store := newWindowCounter()
	calls := 0
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), store, nil)(tallyHandler(&calls))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		body := `{"email":"  Blocked@Example.com ","password":"secret"}`
		if i%2 == 1 {
			body = `{"email":"blocked@example.com","password":"secret"}`
		}
		handler.ServeHTTP(last, authPost("/auth/login", body, "1.2.3.4:5678"))
	}

	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	var payload struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Code)

	for scope := range store.counts {
		assert.NotContains(t, scope, "example.com", "raw email leaked into scope %q", scope)
	}
}

func TestAuthRateLimitIPWindow(t *testing.T) {
	calls := 0
	handler := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), newWindowCounter(), nil)(tallyHandler(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, authPost("/auth/register", `{"email":"foo@example.com"}`, "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, authPost("/auth/register", `{"email":"bar@example.com"}`, "5.6.7.8:4321"))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, calls)
}

func TestAuthRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newWindowCounter()
	store.err = errors.New("redis down")
	calls := 0
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), store, nil)(tallyHandler(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authPost("/auth/login", `{"email":"a@b.c"}`, "1.1.1.1:1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, calls)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	calls := 0
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), newWindowCounter(), nil)(tallyHandler(&calls))
	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), authPost("/auth/login", `{"email":"a@b.c"}`, "1.1.1.1:1"))
	}
	assert.Equal(t, 3, calls)
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := authPost("/auth/login", "", "10.0.0.1:9000")
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
