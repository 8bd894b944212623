package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID  = "test-key-qt"
	testIssuer = "https://idp.test/realms/qrtrack"
)

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewJWTAuthWithKeyfunc(kf, testIssuer, 5*time.Second, testLogger())
}

func generateToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func ownerClaimsMap(sub string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                sub,
		"preferred_username": "owner",
		"email":              "owner@test.com",
		"iss":                testIssuer,
		"exp":                jwt.NewNumericDate(exp),
		"nbf":                jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		"iat":                jwt.NewNumericDate(time.Now()),
	}
}

func serveWithToken(auth *JWTAuth, header string, next http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/qr-codes", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)
	token := generateToken(t, key, ownerClaimsMap("user-123", time.Now().Add(time.Hour)))

	called := false
	rec := serveWithToken(auth, "Bearer "+token, func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("claims не найдены в контексте")
		}
		if claims.Subject != "user-123" {
			t.Errorf("ожидался sub=user-123, получен %s", claims.Subject)
		}
		if claims.Email != "owner@test.com" {
			t.Errorf("ожидался email=owner@test.com, получен %s", claims.Email)
		}
		if OwnerFromContext(r.Context()) != "user-123" {
			t.Errorf("OwnerFromContext = %q", OwnerFromContext(r.Context()))
		}
		w.WriteHeader(http.StatusOK)
	})

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("ожидался 200 и вызов обработчика, получен %d", rec.Code)
	}
}

func TestJWTAuth_Rejections(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	wrongIssuer := ownerClaimsMap("user-1", time.Now().Add(time.Hour))
	wrongIssuer["iss"] = "https://evil.test"

	tests := []struct {
		name   string
		header string
	}{
		{"без заголовка", ""},
		{"не Bearer", "Basic dXNlcjpwYXNz"},
		{"пустой токен", "Bearer "},
		{"мусор", "Bearer not-a-jwt"},
		{"просроченный", "Bearer " + generateToken(t, key, ownerClaimsMap("user-1", time.Now().Add(-time.Hour)))},
		{"чужая подпись", "Bearer " + generateToken(t, otherKey, ownerClaimsMap("user-1", time.Now().Add(time.Hour)))},
		{"чужой issuer", "Bearer " + generateToken(t, key, wrongIssuer)},
		{"без sub", "Bearer " + generateToken(t, key, ownerClaimsMap("", time.Now().Add(time.Hour)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveWithToken(auth, tt.header, func(w http.ResponseWriter, _ *http.Request) {
				t.Error("обработчик не должен вызываться")
			})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался 401, получен %d", rec.Code)
			}
		})
	}
}

func TestOwnerFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := OwnerFromContext(req.Context()); got != "" {
		t.Errorf("ожидалась пустая строка, получено %q", got)
	}
	ctx := WithClaims(req.Context(), &AuthClaims{Subject: "u"})
	if got := OwnerFromContext(ctx); got != "u" {
		t.Errorf("ожидался u, получено %q", got)
	}
}
