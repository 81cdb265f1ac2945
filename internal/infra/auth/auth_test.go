package auth

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/campusface-client/internal/domain"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	claims := &domain.CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sub-" + userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-side-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBearer(t *testing.T) {
	if got := Bearer("  Bearer abc.def "); got.Token != "abc.def" {
		t.Errorf("Bearer() = %q", got.Token)
	}
	if got := Bearer("abc").Header(); got != "Bearer abc" {
		t.Errorf("Header() = %q", got)
	}
	if s := Bearer("abcdefghijkl").String(); s != "Bearer abcd***" {
		t.Errorf("String() leaks token: %q", s)
	}
}

func TestClaimsReader_Inspect(t *testing.T) {
	r := NewClaimsReader()

	claims, err := r.Inspect(Bearer(signedToken(t, "u1", time.Now().Add(time.Hour))))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if claims.SubjectID() != "u1" {
		t.Errorf("SubjectID = %q", claims.SubjectID())
	}

	_, err = r.Inspect(Bearer(signedToken(t, "u1", time.Now().Add(-time.Hour))))
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}

	if _, err := r.Inspect(Credential{}); !errors.Is(err, ErrTokenEmpty) {
		t.Errorf("expected ErrTokenEmpty, got %v", err)
	}
	if _, err := r.Inspect(Bearer("not-a-jwt")); err == nil {
		t.Error("garbage token must fail")
	}
}

func TestMiddleware(t *testing.T) {
	token := signedToken(t, "admin-1", time.Now().Add(time.Hour))

	var seen Credential
	h := NewMiddleware(NewClaimsReader(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CredentialFrom(r.Context())
		if c, ok := ClaimsFrom(r.Context()); !ok || c.SubjectID() != "admin-1" {
			t.Errorf("claims missing in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d", rec.Code)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
	if seen.Token != token {
		t.Errorf("credential not propagated")
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	store, err := NewSessionStore(path, "correct horse")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	if err := store.Save(Session{Token: "tok-123", UserID: "u1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if bytes.Contains(raw, []byte("tok-123")) {
		t.Fatal("token stored in plaintext")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Token != "tok-123" || got.UserID != "u1" || got.SavedAt.IsZero() {
		t.Errorf("Load = %+v", got)
	}

	other, _ := NewSessionStore(path, "wrong secret")
	if _, err := other.Load(); !errors.Is(err, ErrCorruptedFile) {
		t.Errorf("wrong secret: expected ErrCorruptedFile, got %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear should be a no-op, got %v", err)
	}
}

func TestNewSessionStore_NoSecret(t *testing.T) {
	if _, err := NewSessionStore("/tmp/x", ""); !errors.Is(err, ErrNoSecret) {
		t.Errorf("expected ErrNoSecret, got %v", err)
	}
}
