package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	Redis      RedisConfig
	Validation ValidationConfig
	Room       RoomConfig
	WebSocket  WebSocketConfig
	RateLimit  RateLimitConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// CORSConfig содержит список разрешенных Origin.
// Список используется и для CORS, и для проверки Origin при апгрейде WebSocket.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis.
// Redis в этом сервисе вспомогательный (кеш сходства, rate limiting):
// пустой Addr/Addrs означает работу без него.
type RedisConfig struct {
	// Mode: режим работы Redis ("single", "sentinel"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: список адресов Redis (хост:порт). Используется для обоих режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: альтернативный адрес для режима 'single', если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: максимальное количество попыток переподключения (-1 - бесконечно)
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff / MaxRetryBackoff: интервалы между попытками (в миллисекундах)
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// IsConfigured сообщает, задано ли подключение к Redis
func (r *RedisConfig) IsConfigured() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// ValidationConfig содержит настройки валидации ответов
type ValidationConfig struct {
	// FuzzyThreshold: минимальное сходство [0,100] для нечеткого совпадения
	FuzzyThreshold int `mapstructure:"fuzzy_threshold"`

	// SemanticThreshold: минимальное косинусное сходство [0,1]
	SemanticThreshold float64 `mapstructure:"semantic_threshold"`

	// OracleURL: базовый URL сервиса эмбеддингов (пусто = семантика через fuzzy)
	OracleURL string `mapstructure:"oracle_url"`

	// OracleTimeoutMs: таймаут обращения к оракулу в миллисекундах
	OracleTimeoutMs int `mapstructure:"oracle_timeout_ms"`

	// SimilarityCacheTTLSec: TTL кеша сходства в секундах
	SimilarityCacheTTLSec int `mapstructure:"similarity_cache_ttl_sec"`
}

// RoomConfig содержит настройки комнат
type RoomConfig struct {
	// DefaultTimeLimitSec: лимит времени вопроса по умолчанию
	DefaultTimeLimitSec int `mapstructure:"default_time_limit_sec"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	Buffers BuffersConfig
}

// BuffersConfig содержит настройки буферов хаба
type BuffersConfig struct {
	BroadcastBuffer  int `mapstructure:"broadcast_buffer"`
	RegisterBuffer   int `mapstructure:"register_buffer"`
	UnregisterBuffer int `mapstructure:"unregister_buffer"`
}

// RateLimitConfig содержит настройки ограничения частоты запросов
type RateLimitConfig struct {
	// Enabled: включает rate limiting (требует Redis)
	Enabled bool `mapstructure:"enabled"`

	// MaxRequests: максимум запросов за окно
	MaxRequests int `mapstructure:"max_requests"`

	// WindowSec: длительность окна в секундах
	WindowSec int `mapstructure:"window_sec"`
}

// OracleTimeout возвращает таймаут оракула как Duration
func (v *ValidationConfig) OracleTimeout() time.Duration {
	if v.OracleTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(v.OracleTimeoutMs) * time.Millisecond
}

// SimilarityCacheTTL возвращает TTL кеша сходства как Duration
func (v *ValidationConfig) SimilarityCacheTTL() time.Duration {
	if v.SimilarityCacheTTLSec <= 0 {
		return time.Hour
	}
	return time.Duration(v.SimilarityCacheTTLSec) * time.Second
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
	vip.SetDefault("validation.fuzzy_threshold", 80)
	vip.SetDefault("validation.semantic_threshold", 0.75)
	vip.SetDefault("validation.oracle_timeout_ms", 2000)
	vip.SetDefault("validation.similarity_cache_ttl_sec", 3600)
	vip.SetDefault("room.default_time_limit_sec", 30)
	vip.SetDefault("ratelimit.max_requests", 30)
	vip.SetDefault("ratelimit.window_sec", 60)

	// 2. Привязываем переменные окружения явно
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	vip.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	vip.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("validation.fuzzy_threshold", "VALIDATION_FUZZY_THRESHOLD")
	vip.BindEnv("validation.semantic_threshold", "VALIDATION_SEMANTIC_THRESHOLD")
	vip.BindEnv("validation.oracle_url", "VALIDATION_ORACLE_URL")
	vip.BindEnv("validation.oracle_timeout_ms", "VALIDATION_ORACLE_TIMEOUT_MS")
	vip.BindEnv("validation.similarity_cache_ttl_sec", "VALIDATION_SIMILARITY_CACHE_TTL_SEC")

	vip.BindEnv("room.default_time_limit_sec", "ROOM_DEFAULT_TIME_LIMIT_SEC")

	vip.BindEnv("ratelimit.enabled", "RATELIMIT_ENABLED")
	vip.BindEnv("ratelimit.max_requests", "RATELIMIT_MAX_REQUESTS")
	vip.BindEnv("ratelimit.window_sec", "RATELIMIT_WINDOW_SEC")

	// 3. Путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Не страшно, если файла нет: есть BindEnv и умолчания
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Redis Configured: %t (mode: %s)", cfg.Redis.IsConfigured(), cfg.Redis.Mode)
		log.Printf("Fuzzy Threshold: %d", cfg.Validation.FuzzyThreshold)
		log.Printf("Semantic Threshold: %.2f", cfg.Validation.SemanticThreshold)
		log.Printf("Oracle URL Set: %t", cfg.Validation.OracleURL != "")
		log.Printf("Default Time Limit: %ds", cfg.Room.DefaultTimeLimitSec)
		log.Printf("Rate Limit Enabled: %t", cfg.RateLimit.Enabled)
		log.Printf("-----------------------------------------")
	}

	// 6. Проверка параметров
	if cfg.Validation.FuzzyThreshold < 0 || cfg.Validation.FuzzyThreshold > 100 {
		return nil, fmt.Errorf("validation.fuzzy_threshold must be in [0,100], got %d", cfg.Validation.FuzzyThreshold)
	}
	if cfg.Validation.SemanticThreshold < 0 || cfg.Validation.SemanticThreshold > 1 {
		return nil, fmt.Errorf("validation.semantic_threshold must be in [0,1], got %f", cfg.Validation.SemanticThreshold)
	}
	if cfg.RateLimit.Enabled && !cfg.Redis.IsConfigured() {
		return nil, fmt.Errorf("rate limiting requires Redis (check REDIS_ADDR env var)")
	}

	return &cfg, nil
}
