package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Таймаут обращения к Redis при проверке лимита
const rateLimitRedisTimeout = 2 * time.Second

// RateLimitConfig задает лимит фиксированного окна
type RateLimitConfig struct {
	// MaxRequests - максимум запросов за окно Window
	MaxRequests int

	// Window - длительность окна подсчета
	Window time.Duration

	// KeyPrefix - префикс ключей счетчиков в Redis
	KeyPrefix string
}

// DefaultRoomRateLimitConfig - общий лимит на операции с комнатами
func DefaultRoomRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 30,
		Window:      time.Minute,
		KeyPrefix:   "rl:rooms",
	}
}

// CreateRoomRateLimitConfig - строгий лимит на создание комнат,
// чтобы один клиент не выбирал пространство кодов
func CreateRoomRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 5,
		Window:      time.Minute,
		KeyPrefix:   "rl:rooms:create",
	}
}

// RateLimiter ограничивает частоту запросов счетчиками фиксированного окна
// в Redis (INCR + EXPIRE). Лимитер вспомогательный: при недоступном Redis
// запросы пропускаются (fail-open), прием ответов важнее лимита.
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает лимитер поверх клиента Redis
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit ограничивает запросы по паре IP + маршрут: POST /api/rooms
// считается отдельно от POST /api/rooms/:roomID/join
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rl.enforce(c, cfg, fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, c.ClientIP(), path))
	}
}

// LimitByIP ограничивает запросы только по IP - общий лимит на группу маршрутов
func (rl *RateLimiter) LimitByIP(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rl.enforce(c, cfg, fmt.Sprintf("%s:%s", cfg.KeyPrefix, c.ClientIP()))
	}
}

// enforce инкрементирует счетчик окна и либо пропускает запрос дальше,
// либо завершает его ответом 429
func (rl *RateLimiter) enforce(c *gin.Context, cfg RateLimitConfig, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), rateLimitRedisTimeout)
	defer cancel()

	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[RateLimiter] Ошибка Redis для ключа %s: %v. Запрос пропущен (fail-open)", key, err)
		c.Next()
		return
	}

	// Первый запрос открывает окно
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
			log.Printf("[RateLimiter] Не удалось установить TTL ключа %s: %v", key, err)
		}
	}

	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	ttl, _ := rl.redisClient.TTL(ctx, key).Result()
	retryAfter := int(ttl.Seconds())
	if retryAfter < 0 {
		retryAfter = int(cfg.Window.Seconds())
	}

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

	if int(count) > cfg.MaxRequests {
		log.Printf("[RateLimiter] Лимит превышен: ключ %s, count=%d, limit=%d", key, count, cfg.MaxRequests)
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many requests. Please try again later.",
			"error_type":  "rate_limited",
			"retry_after": retryAfter,
		})
		return
	}

	c.Next()
}
