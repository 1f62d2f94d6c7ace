package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Используется валидатором ответов для кеширования оценок семантического
// сходства: повторные ответы участников на один вопрос не должны каждый раз
// ходить во внешний сервис.
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	Exists(key string) (bool, error)
}
