package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"konung-miniapp-svc/src/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouterForTest(t *testing.T, f *authFixture) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	cfg := &config.Configuration{App: config.Application{Timeout: 5}}
	handler := NewHandler(cfg, f.service, nil)

	router := gin.New()
	router.GET("/api/auth", handler.GetAuth)
	router.DELETE("/api/auth", handler.DeleteAuth)
	router.GET("/auth", handler.AuthRedirect)
	return router
}

func TestGetAuthEndpoint(t *testing.T) {
	f := newAuthFixture(t)
	router := newRouterForTest(t, f)
	ctx := context.Background()

	f.registerUser(t, 42, "Иван", 30)
	sess, err := f.issuer.Issue(ctx, 42)
	require.NoError(t, err)

	t.Run("authenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth?token="+sess.Token, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			User struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
				Age  int    `json:"age"`
			} `json:"user"`
			Session struct {
				Token string `json:"token"`
			} `json:"session"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(42), body.User.ID)
		assert.Equal(t, "Иван", body.User.Name)
		assert.Equal(t, 30, body.User.Age)
		assert.Equal(t, sess.Token, body.Session.Token)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth?token=bogus", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expiring, err := f.issuer.Issue(ctx, 42)
		require.NoError(t, err)

		*f.now = f.now.Add(25 * time.Hour)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth?token="+expiring.Token, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDeleteAuthEndpoint(t *testing.T) {
	f := newAuthFixture(t)
	router := newRouterForTest(t, f)
	ctx := context.Background()

	f.registerUser(t, 1, "Анна", 25)
	sess, err := f.issuer.Issue(ctx, 1)
	require.NoError(t, err)

	revoke := func(token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/auth?token="+token, nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, revoke(sess.Token))
	// Idempotent: revoking again, or revoking garbage, still succeeds.
	assert.Equal(t, http.StatusOK, revoke(sess.Token))
	assert.Equal(t, http.StatusOK, revoke("never-existed"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/auth", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The revoked token no longer authenticates.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/auth?token="+sess.Token, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRedirectSetsCookie(t *testing.T) {
	f := newAuthFixture(t)
	router := newRouterForTest(t, f)
	ctx := context.Background()

	f.registerUser(t, 2, "Ольга", 33)
	sess, err := f.issuer.Issue(ctx, 2)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth?token="+sess.Token, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "auth_token="+sess.Token))
	assert.Contains(t, cookie, "Max-Age=86400")
	assert.Contains(t, cookie, "Path=/")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "Secure")
	assert.Contains(t, cookie, "SameSite=Strict")
}

func TestAuthRedirectRejectsBadTokens(t *testing.T) {
	f := newAuthFixture(t)
	router := newRouterForTest(t, f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth?token=bogus", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}
