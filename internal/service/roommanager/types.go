package roommanager

import (
	"context"
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/repository"
)

// Constants for default values
const (
	DefaultFuzzyThreshold    = 80
	DefaultSemanticThreshold = 0.75
	DefaultTimeLimitSec      = 30
)

// Config содержит настройки для всех компонентов RoomManager
type Config struct {
	// Пороги валидации ответов
	FuzzyThreshold    int     // Минимальное сходство [0,100] для нечеткого совпадения
	SemanticThreshold float64 // Минимальное косинусное сходство [0,1] для семантического совпадения

	// Лимит времени вопроса по умолчанию, если ведущий не запускал таймер
	DefaultTimeLimitSec int

	// Настройки оракула семантического сходства
	OracleURL     string        // Базовый URL сервиса эмбеддингов (пусто = оракул отключен)
	OracleTimeout time.Duration // Таймаут одного обращения к оракулу

	// TTL кешированных значений сходства в Redis
	SimilarityCacheTTL time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		FuzzyThreshold:      DefaultFuzzyThreshold,
		SemanticThreshold:   DefaultSemanticThreshold,
		DefaultTimeLimitSec: DefaultTimeLimitSec,
		OracleTimeout:       2 * time.Second,
		SimilarityCacheTTL:  time.Hour,
	}
}

// Broadcaster определяет интерфейс рассылки событий комнаты,
// необходимый компонентам RoomManager.
type Broadcaster interface {
	BroadcastEventToRoom(roomID string, eventType string, payload map[string]interface{}) error
}

// SimilarityOracle вычисляет семантическое сходство двух текстов.
// Возвращает косинусное сходство в [0,1]. Недоступность оракула
// выражается ошибкой, оборачивающей apperrors.ErrOracleUnavailable.
type SimilarityOracle interface {
	Similarity(ctx context.Context, submission, accepted string) (float64, error)
}

// Dependencies содержит зависимости компонентов RoomManager
type Dependencies struct {
	Store       repository.SessionRepository
	Cache       repository.CacheRepository // Может быть nil: кеш сходства вспомогательный
	Broadcaster Broadcaster
	Oracle      SimilarityOracle // Может быть nil: семантика падает на нечеткое сравнение
	Config      *Config
}
