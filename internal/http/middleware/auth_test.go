package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/practice-crm/internal/actor"
)

const (
	repOne   = "6f1c2a8e-3b7d-4e52-9a0f-1d2c3b4a5e6f"
	repForty = "0b9e8d7c-6a5f-4e3d-8c2b-1a0f9e8d7c6b"
)

func signedToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func noop() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

func TestRepJWTMissingSecret(t *testing.T) {
	rec := serve(RepJWT("")(noop()), signedToken(t, "secret", repOne, ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRepJWTMissingHeader(t *testing.T) {
	rec := serve(RepJWT("secret")(noop()), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRepJWTInvalidToken(t *testing.T) {
	rec := serve(RepJWT("secret")(noop()), signedToken(t, "wrong", repOne, ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRepJWTRejectsMissingSubject(t *testing.T) {
	rec := serve(RepJWT("secret")(noop()), signedToken(t, "secret", "", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRepJWTRejectsNonUUIDSubject(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	for _, subject := range []string{"admin", "ops@practice-crm.example", "rep-1"} {
		rec := serve(RepJWT("secret")(next), signedToken(t, "secret", subject, RoleAdmin))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("subject %q: expected status %d, got %d", subject, http.StatusUnauthorized, rec.Code)
		}
	}
	if called {
		t.Fatal("handler must not run for a subject that is not a rep id")
	}
}

func TestRepJWTRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: repOne}})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := serve(RepJWT("secret")(noop()), signed)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRepJWTPlacesActingRep(t *testing.T) {
	var gotRep string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRep, _ = actor.RepIDFromContext(r.Context())
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			t.Fatal("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := serve(RepJWT("secret")(next), signedToken(t, "secret", repForty, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotRep != repForty {
		t.Fatalf("expected %s, got %q", repForty, gotRep)
	}
}

func TestRequireRole(t *testing.T) {
	h := RepJWT("secret")(RequireRole(RoleAdmin)(noop()))

	if rec := serve(h, signedToken(t, "secret", repOne, "")); rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
	if rec := serve(h, signedToken(t, "secret", repOne, RoleAdmin)); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec := serve(RequireRole(RoleAdmin)(noop()), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d without claims, got %d", http.StatusUnauthorized, rec.Code)
	}
}
