package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
)

var testSecret = []byte("test-secret-0123456789abcdef")

func signToken(t *testing.T, subject string, roles []string, expiresIn time.Duration) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Subject(subject).
		Issuer("cuahang-id").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(expiresIn))
	if roles != nil {
		builder = builder.Claim("roles", roles)
	}
	tok, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func newMiddleware() Middleware {
	return Middleware{Verifier: Verifier{Secret: testSecret, Issuer: "cuahang-id"}}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	var gotCustomer string
	handler := newMiddleware().RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCustomer, _ = common.CustomerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "cust-1", nil, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || gotCustomer != "cust-1" {
		t.Fatalf("expected authenticated request, got status=%d customer=%q", rec.Code, gotCustomer)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	handler := newMiddleware().RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	handler := newMiddleware().RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "cust-1", nil, -time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "cust-1", []string{"admin"}, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin allowed, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "cust-1", []string{"customer"}, time.Hour))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing role, got %d", rec.Code)
	}
}

func TestAuthenticatePassesAnonymous(t *testing.T) {
	handler := newMiddleware().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.CustomerID(r.Context()); ok {
			t.Fatal("anonymous request must not carry identity")
		}
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}
