package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	pkgredis "github.com/catchyfabric/market-backend/pkg/redis"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	defaultIdempotencyTTL   = 24 * time.Hour
	criticalIdempotencyTTL  = 7 * 24 * time.Hour
	maxIdempotencyKeyLength = 255
)

// Routes whose POSTs may be replayed. Payments keep their record for a week.
var idempotentRoutes = map[string]time.Duration{
	"/auth/register": defaultIdempotencyTTL,
	"/orders":        defaultIdempotencyTTL,
	"/admin/users":   defaultIdempotencyTTL,
	"/payments":      criticalIdempotencyTTL,
}

const rpcRoutePrefix = "/rpc/"

// storedResponse is what gets written to redis for a completed request.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if method != http.MethodPost || pattern == "" {
		return 0, false
	}
	if ttl, ok := idempotentRoutes[pattern]; ok {
		return ttl, true
	}
	if strings.HasPrefix(pattern, rpcRoutePrefix) {
		return defaultIdempotencyTTL, true
	}
	return 0, false
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response when a mutating request is retried
// with the same Idempotency-Key. Requests without the header pass through and
// 5xx responses are never stored.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, matchedPattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !guarded || g.store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next, clientKey, ttl)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, clientKey string, ttl time.Duration) {
	ctx := r.Context()
	if len(clientKey) > maxIdempotencyKeyLength {
		writeError(r, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(r, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintBody(body)
	key := g.store.IdempotencyKey(requestScope(r), clientKey)

	prior, err := g.lookup(ctx, key)
	if err != nil {
		writeError(r, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if prior != nil {
		if prior.Fingerprint != fingerprint {
			writeError(r, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
			return
		}
		prior.writeTo(w)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		return
	}
	g.remember(ctx, key, ttl, storedResponse{
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
}

// lookup returns the stored response for key, or nil when none exists.
// A record that no longer decodes is dropped so the request runs again.
func (g *idempotencyGuard) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		g.warn(ctx, "discarding unreadable idempotency record", err)
		if delErr := g.store.Del(ctx, key); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	}
	return &stored, nil
}

func (g *idempotencyGuard) remember(ctx context.Context, key string, ttl time.Duration, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		g.warn(ctx, "encode idempotency record", err)
		return
	}
	if _, err := g.store.SetNX(ctx, key, string(payload), ttl); err != nil {
		g.warn(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) warn(ctx context.Context, msg string, err error) {
	if g.logg == nil {
		return
	}
	g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), msg)
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// requestScope binds a client key to the caller and the exact route.
func requestScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func matchedPattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
