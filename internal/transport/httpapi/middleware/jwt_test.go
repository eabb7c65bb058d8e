package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicfin/relion-bridge/internal/transport/httpapi/middleware"
)

const testSecret = "test-secret-key-minimum-32-characters-long"

func TestJWTServiceGenerateAndValidateToken(t *testing.T) {
	jwtService := middleware.NewJWTService(testSecret)

	t.Run("generate valid token", func(t *testing.T) {
		token, err := jwtService.GenerateToken("file-forwarder", time.Hour)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Contains(t, token, ".")
	})

	t.Run("validate valid token", func(t *testing.T) {
		token, err := jwtService.GenerateToken("file-forwarder", time.Hour)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "file-forwarder", claims.Caller)
		assert.Equal(t, "relion-bridge", claims.Issuer)
	})

	t.Run("reject expired token", func(t *testing.T) {
		token, err := jwtService.GenerateToken("file-forwarder", -time.Minute)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("reject token signed with different secret", func(t *testing.T) {
		other := middleware.NewJWTService("another-secret-key-also-32-characters!!")
		token, err := other.GenerateToken("file-forwarder", time.Hour)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("reject garbage token", func(t *testing.T) {
		_, err := jwtService.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestJWTMiddleware(t *testing.T) {
	jwtService := middleware.NewJWTService(testSecret)
	mw := middleware.JWTMiddleware(jwtService)

	var gotCaller string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller, _ = middleware.GetCallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("passes valid bearer token", func(t *testing.T) {
		token, err := jwtService.GenerateToken("event-relay", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/event", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "event-relay", gotCaller)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/event", nil)
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/event", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
