package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLimitedRouter поднимает роутер с лимитером поверх miniredis
func newLimitedRouter(t *testing.T, cfg RateLimitConfig) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	router := gin.New()
	limiter := NewRateLimiter(client)
	router.POST("/api/rooms", limiter.Limit(cfg), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	return router, mr
}

func doRequest(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinWindow(t *testing.T) {
	// Arrange
	cfg := RateLimitConfig{MaxRequests: 3, Window: time.Minute, KeyPrefix: "rl:test"}
	router, _ := newLimitedRouter(t, cfg)

	// Act + Assert
	for i := 0; i < cfg.MaxRequests; i++ {
		w := doRequest(router)
		require.Equal(t, http.StatusCreated, w.Code, "Запрос %d в пределах лимита", i+1)
	}

	last := doRequest(router)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	// Arrange
	cfg := RateLimitConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "rl:test"}
	router, _ := newLimitedRouter(t, cfg)
	doRequest(router)
	doRequest(router)

	// Act
	w := doRequest(router)

	// Assert
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestRateLimiter_WindowExpiryResets(t *testing.T) {
	// Arrange: лимит исчерпан
	cfg := RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "rl:test"}
	router, mr := newLimitedRouter(t, cfg)
	require.Equal(t, http.StatusCreated, doRequest(router).Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(router).Code)

	// Act: окно истекает
	mr.FastForward(cfg.Window + time.Second)

	// Assert
	assert.Equal(t, http.StatusCreated, doRequest(router).Code,
		"Новое окно начинает счет заново")
}

func TestRateLimiter_FailOpenWhenRedisDown(t *testing.T) {
	// Arrange
	cfg := RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "rl:test"}
	router, mr := newLimitedRouter(t, cfg)
	mr.Close()

	// Act
	w := doRequest(router)

	// Assert: недоступный Redis не блокирует запросы
	assert.Equal(t, http.StatusCreated, w.Code)
}
