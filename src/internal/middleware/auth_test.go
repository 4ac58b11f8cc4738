package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJwtSecret = "admin-test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminClaims() Claims {
	return Claims{
		UserID:    "admin-1",
		Email:     "admin@example.com",
		Role:      "admin",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newAdminRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(testJwtSecret)

	router := gin.New()
	router.GET("/admin", m.RequireAuth(), m.RequireAdminRights(), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func getAdmin(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthAcceptsValidAdminToken(t *testing.T) {
	router := newAdminRouter(t)
	token := signToken(t, testJwtSecret, adminClaims())

	w := getAdmin(router, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin-1")
}

func TestRequireAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	router := newAdminRouter(t)

	assert.Equal(t, http.StatusUnauthorized, getAdmin(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, getAdmin(router, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, getAdmin(router, "Bearer not-a-jwt").Code)
}

func TestRequireAuthRejectsBadSignature(t *testing.T) {
	router := newAdminRouter(t)
	token := signToken(t, "some-other-secret", adminClaims())

	assert.Equal(t, http.StatusUnauthorized, getAdmin(router, "Bearer "+token).Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	router := newAdminRouter(t)

	claims := adminClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	token := signToken(t, testJwtSecret, claims)

	assert.Equal(t, http.StatusUnauthorized, getAdmin(router, "Bearer "+token).Code)
}

func TestRequireAuthRejectsNonAccessToken(t *testing.T) {
	router := newAdminRouter(t)

	claims := adminClaims()
	claims.TokenType = "refresh"
	token := signToken(t, testJwtSecret, claims)

	assert.Equal(t, http.StatusUnauthorized, getAdmin(router, "Bearer "+token).Code)
}

func TestRequireAdminRightsRejectsNonAdminRole(t *testing.T) {
	router := newAdminRouter(t)

	claims := adminClaims()
	claims.Role = "user"
	token := signToken(t, testJwtSecret, claims)

	assert.Equal(t, http.StatusForbidden, getAdmin(router, "Bearer "+token).Code)
}
