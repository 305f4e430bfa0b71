package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-purposes-only")
	manager, err := NewJWTManager()
	require.NoError(t, err)
	return manager
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewJWTManager()
	assert.Error(t, err)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	token, err := manager.GenerateToken(ctx, "user-123", []string{"user"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, []string{"user"}, claims.Roles)
	assert.Equal(t, "justicebot-analysis", claims.Issuer)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	token, err := manager.GenerateToken(ctx, "user-123", nil, -time.Minute)
	require.NoError(t, err)

	_, err = manager.ValidateToken(ctx, token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsTokenSignedWithOtherKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	first, err := NewJWTManager()
	require.NoError(t, err)

	token, err := first.GenerateToken(context.Background(), "user-123", nil, time.Hour)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "second-secret")
	second, err := NewJWTManager()
	require.NoError(t, err)

	_, err = second.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := newTestManager(t)

	router := gin.New()
	router.GET("/protected", RequireAuth(manager), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	t.Run("valid token passes", func(t *testing.T) {
		token, err := manager.GenerateToken(context.Background(), "user-123", nil, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "user-123")
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
