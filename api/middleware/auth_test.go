package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "catchy-market", ExpirationMinutes: 10}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, _, _ := mintTestToken(t, enums.RoleBuyer)
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionStoreFailureIsDependencyError(t *testing.T) {
	token, _, _ := mintTestToken(t, enums.RoleBuyer)
	handler := Auth(testJWT, stubSessionVerifier{err: errors.New("redis down")}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestAuthSeedsActor(t *testing.T) {
	token, userID, jti := mintTestToken(t, enums.RoleSeller)

	var captured auth.Actor
	var accessID string
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ActorFromContext(r.Context())
		accessID = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.ID != userID || captured.Role != enums.RoleSeller {
		t.Fatalf("unexpected actor %+v", captured)
	}
	if accessID != jti {
		t.Fatalf("expected access id %s got %s", jti, accessID)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name  string
		actor auth.Actor
		want  int
	}{
		{"anonymous", auth.Actor{}, http.StatusUnauthorized},
		{"buyer", auth.Actor{ID: uuid.New(), Role: enums.RoleBuyer}, http.StatusForbidden},
		{"seller", auth.Actor{ID: uuid.New(), Role: enums.RoleSeller}, http.StatusOK},
		{"admin", auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}, http.StatusOK},
	}
	handler := RequireRole(nil, enums.RoleSeller, enums.RoleAdmin)(okHandler())
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPut, "/orders/x/status", nil)
		req = req.WithContext(WithActor(req.Context(), tc.actor))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, role enums.Role) (string, uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	jti := uuid.NewString()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID, jti
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}
