package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"digitalstore/internal/config"
	"digitalstore/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	cfg := config.Config{
		JWTSecretKey:   "test-secret",
		JWTExpiryHours: 1,
	}
	return NewServer(nil, cfg, zerolog.Nop())
}

func echoSession(t *testing.T, captured *Session) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = sessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	s := newTestServer()
	user := models.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: models.RoleCustomer}
	token, err := s.generateJWT(user)
	require.NoError(t, err)

	var sess Session
	handler := s.jwtMiddleware(echoSession(t, &sess))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, models.RoleCustomer, sess.Role)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	s := newTestServer()
	handler := s.jwtMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	s := newTestServer()
	handler := s.jwtMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	s := newTestServer()
	other := NewServer(nil, config.Config{JWTSecretKey: "other-secret", JWTExpiryHours: 1}, zerolog.Nop())
	token, err := other.generateJWT(models.User{ID: "u1"})
	require.NoError(t, err)

	handler := s.jwtMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a forged token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	s := newTestServer()
	claims := JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	handler := s.jwtMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminMiddleware(t *testing.T) {
	s := newTestServer()

	run := func(role string) int {
		token, err := s.generateJWT(models.User{ID: "u1", Role: role})
		require.NoError(t, err)
		handler := s.jwtMiddleware(s.adminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, run(models.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, run(models.RoleFree))
}

func TestAccessDeniedMessage(t *testing.T) {
	assert.Equal(t, "you have not purchased this product", accessDeniedMessage(models.AccessReasonNotPurchased))
	assert.Equal(t, "access denied", accessDeniedMessage("something-else"))
}
