package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := OwnerFromContext(r.Context())
		w.Write([]byte(owner))
	})
}

func TestJWT(t *testing.T) {
	now := time.Now()
	valid, err := IssueToken(secret, "user-1", time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, _ := IssueToken(secret, "user-1", time.Hour, now.Add(-2*time.Hour))
	otherKey, _ := IssueToken([]byte("another-secret-another-secret-xx"), "user-1", time.Hour, now)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString(secret)
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(secret)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject: "user-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(secret)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + otherKey, http.StatusUnauthorized},
		{"no expiry", "Bearer " + noExp, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSub, http.StatusUnauthorized},
		{"other algorithm", "Bearer " + hs512, http.StatusUnauthorized},
	}
	h := JWT(secret)(ownerEcho())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
			if tt.want == http.StatusOK && rec.Body.String() != "user-1" {
				t.Errorf("owner = %q", rec.Body)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"unauthorized"`) {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	rec := httptest.NewRecorder()
	Static(LocalOwner)(ownerEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != LocalOwner {
		t.Fatalf("owner = %q", rec.Body)
	}
}

func TestIssueTokenRequiresOwner(t *testing.T) {
	if _, err := IssueToken(secret, " ", time.Hour, time.Now()); err != ErrNoOwner {
		t.Fatalf("err = %v", err)
	}
}
