package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jtsaich/fda-search-sub000/internal/rbac"
	"github.com/jtsaich/fda-search-sub000/internal/session"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	api   *API
	store *fakeStore
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	store := newFakeStore()
	resolver, err := rbac.NewResolver(store)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	admin, err := rbac.NewAdmin(store)
	if err != nil {
		t.Fatalf("NewAdmin: %v", err)
	}
	if err := admin.EnsureBuiltins(context.Background()); err != nil {
		t.Fatalf("EnsureBuiltins: %v", err)
	}
	verifier, err := session.NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	reader, err := session.NewReader(verifier)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	cfg.Reader = reader
	cfg.Resolver = resolver
	cfg.Admin = admin
	cfg.Profiles = store.Profiles()
	cfg.Version = "test"
	api, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{api: api, store: store}
}

func (e *testEnv) seedProfile(t *testing.T, id, role string) {
	t.Helper()
	now := time.Now().UTC()
	err := e.store.Profiles().Ensure(context.Background(), &rbac.UserProfile{
		ID:        id,
		Email:     id + "@example.com",
		Role:      rbac.NormalizeRoleName(role),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func signedCookie(t *testing.T, userID string, ttl time.Duration) *http.Cookie {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Email: userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := session.WriteCookie(rec, &session.Session{AccessToken: token, UserID: userID}, false); err != nil {
		t.Fatalf("WriteCookie: %v", err)
	}
	return rec.Result().Cookies()[0]
}

func doJSON(t *testing.T, api *API, method, path string, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := doJSON(t, env.api, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["status"] != "ok" || body["service"] != "fda-search-api" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	env := newTestEnv(t, Config{})

	// API client: JSON 401.
	rec := doJSON(t, env.api, http.MethodGet, "/v1/roles", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}

	// Browser navigation: redirect to login.
	req := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	env.api.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestProtectedRouteWithExpiredSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "user-1", rbac.RoleViewer)

	cookie := signedCookie(t, "user-1", -time.Minute)
	rec := doJSON(t, env.api, http.MethodGet, "/v1/roles", "", cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestVerifiedTokenWithoutProfileIsUnauthenticated(t *testing.T) {
	env := newTestEnv(t, Config{})

	cookie := signedCookie(t, "ghost", time.Hour)
	rec := doJSON(t, env.api, http.MethodGet, "/v1/roles", "", cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unregistered identity, got %d", rec.Code)
	}
}
