package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scansheet/ocr-service/internal/models"
)

func initTestSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, Init())
}

func TestTokenRoundTrip(t *testing.T) {
	initTestSecret(t)

	token, err := GenerateToken("user@example.com")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateRejectsGarbage(t *testing.T) {
	initTestSecret(t)

	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestMiddlewareSkipsPublicRoutes(t *testing.T) {
	initTestSecret(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTMiddleware(next)

	for _, path := range []string{"/health", "/api/login"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	// Protected routes need a token.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/extract", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewarePassesClaimsThrough(t *testing.T) {
	initTestSecret(t)

	token, err := GenerateToken("user@example.com")
	require.NoError(t, err)

	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaimsFromContext(r.Context())
		require.NoError(t, err)
		gotEmail = claims.Email
	})

	req := httptest.NewRequest(http.MethodGet, "/api/extract", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(rr, req)

	assert.Equal(t, "user@example.com", gotEmail)
}

func TestLoginHandler(t *testing.T) {
	initTestSecret(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := models.AuthConfig{Email: "admin@example.com", PasswordHash: string(hash)}
	handler := LoginHandler(cfg)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"valid", `{"email":"admin@example.com","password":"hunter2"}`, http.StatusOK},
		{"wrong password", `{"email":"admin@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"wrong email", `{"email":"other@example.com","password":"hunter2"}`, http.StatusUnauthorized},
		{"missing fields", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			handler(rr, req)
			assert.Equal(t, tc.code, rr.Code)
		})
	}
}
