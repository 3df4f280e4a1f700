package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func operatorRequest(t *testing.T, secret string, token string) *httptest.ResponseRecorder {
	t.Helper()

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/operator/knowledge-bases/sync-all", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	OperatorAuthMiddleware(secret)(next).ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		assert.True(t, called)
	} else {
		assert.False(t, called)
	}
	return rec
}

func signOperatorToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestOperatorAuthValidToken(t *testing.T) {
	rec := operatorRequest(t, "test-secret", signOperatorToken(t, "test-secret"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOperatorAuthMissingToken(t *testing.T) {
	rec := operatorRequest(t, "test-secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOperatorAuthWrongSecret(t *testing.T) {
	rec := operatorRequest(t, "test-secret", signOperatorToken(t, "other-secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOperatorAuthExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	rec := operatorRequest(t, "test-secret", signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOperatorAuthDisabledWithoutSecret(t *testing.T) {
	rec := operatorRequest(t, "", signOperatorToken(t, "anything"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/calls", nil)
	_, err := userIDFromRequest(req)
	assert.Error(t, err)

	req.Header.Set("X-User-ID", "not-a-uuid")
	_, err = userIDFromRequest(req)
	assert.Error(t, err)

	req.Header.Set("X-User-ID", "0b9cb261-0e4a-4c8e-9b4f-31a6e1e7e0a3")
	id, err := userIDFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "0b9cb261-0e4a-4c8e-9b4f-31a6e1e7e0a3", id.String())
}
