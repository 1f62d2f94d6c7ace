package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizroom-api/internal/config"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	"github.com/yourusername/quizroom-api/internal/handler"
	"github.com/yourusername/quizroom-api/internal/middleware"
	"github.com/yourusername/quizroom-api/internal/repository/memory"
	redisRepo "github.com/yourusername/quizroom-api/internal/repository/redis"
	"github.com/yourusername/quizroom-api/internal/service"
	"github.com/yourusername/quizroom-api/internal/service/roommanager"
	ws "github.com/yourusername/quizroom-api/internal/websocket"
	"github.com/yourusername/quizroom-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Redis вспомогательный: кеш сходства и rate limiting.
	// Без него сервис работает полностью, семантический кеш просто отключен.
	var cacheRepo repository.CacheRepository
	var rateLimiter *middleware.RateLimiter
	if cfg.Redis.IsConfigured() {
		redisClient, err := database.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Println("Successfully connected to Redis")

		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
			os.Exit(1)
		}
		cacheRepo = repo

		if cfg.RateLimit.Enabled {
			rateLimiter = middleware.NewRateLimiter(redisClient)
		}
	} else {
		log.Println("Redis не сконфигурирован, кеш сходства и rate limiting отключены")
	}

	// Session Store живет в памяти процесса: состояние комнат эфемерно
	store := memory.NewSessionStore()

	// Инициализация WebSocket Hub
	hub := ws.NewHub(ws.HubConfig{
		BroadcastBuffer:  cfg.WebSocket.Buffers.BroadcastBuffer,
		RegisterBuffer:   cfg.WebSocket.Buffers.RegisterBuffer,
		UnregisterBuffer: cfg.WebSocket.Buffers.UnregisterBuffer,
	})
	go hub.Run()
	wsManager := ws.NewManager(hub)

	// Конфигурация компонентов комнат из загруженных настроек
	roomConfig := roommanager.DefaultConfig()
	roomConfig.FuzzyThreshold = cfg.Validation.FuzzyThreshold
	roomConfig.SemanticThreshold = cfg.Validation.SemanticThreshold
	roomConfig.DefaultTimeLimitSec = cfg.Room.DefaultTimeLimitSec
	roomConfig.OracleURL = cfg.Validation.OracleURL
	roomConfig.OracleTimeout = cfg.Validation.OracleTimeout()
	roomConfig.SimilarityCacheTTL = cfg.Validation.SimilarityCacheTTL()

	// Оракул семантического сходства опционален: без него семантическая
	// валидация выполняется откатом на нечеткое сравнение
	var oracle roommanager.SimilarityOracle
	if roomConfig.OracleURL != "" {
		oracle = roommanager.NewHTTPOracle(roomConfig.OracleURL, roomConfig.OracleTimeout)
		log.Printf("Оракул сходства: %s", roomConfig.OracleURL)
	} else {
		log.Println("Оракул сходства не сконфигурирован, семантическая валидация работает через fuzzy")
	}

	validator := roommanager.NewValidator(roomConfig, cacheRepo, oracle)
	scheduler := roommanager.NewTimeoutScheduler(roomConfig, &roommanager.Dependencies{
		Store:       store,
		Cache:       cacheRepo,
		Broadcaster: wsManager,
		Oracle:      oracle,
		Config:      roomConfig,
	})

	// Инициализируем сервисы и обработчики
	roomService := service.NewRoomService(store, validator, scheduler, wsManager, roomConfig)
	roomHandler := handler.NewRoomHandler(roomService)
	wsHandler := handler.NewWSHandler(hub, roomService, cfg.CORS.AllowedOrigins)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check отдается без префикса API
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  store.RoomCount(),
		})
	})

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		rooms := api.Group("/rooms")
		if rateLimiter != nil {
			limitCfg := middleware.DefaultRoomRateLimitConfig()
			if cfg.RateLimit.MaxRequests > 0 {
				limitCfg.MaxRequests = cfg.RateLimit.MaxRequests
			}
			if cfg.RateLimit.WindowSec > 0 {
				limitCfg.Window = time.Duration(cfg.RateLimit.WindowSec) * time.Second
			}
			rooms.Use(rateLimiter.LimitByIP(limitCfg))
		}
		{
			createGroup := rooms.Group("")
			if rateLimiter != nil {
				createGroup.Use(rateLimiter.Limit(middleware.CreateRoomRateLimitConfig()))
			}
			createGroup.POST("", roomHandler.CreateRoom)

			rooms.GET("/:roomID", roomHandler.GetRoom)
			rooms.POST("/:roomID/join", roomHandler.JoinRoom)
			rooms.POST("/:roomID/start", roomHandler.StartQuestion)
			rooms.POST("/:roomID/advance", roomHandler.AdvanceQuestion)
			rooms.POST("/:roomID/answers", roomHandler.SubmitAnswer)
			rooms.GET("/:roomID/leaderboard", roomHandler.GetLeaderboard)
		}
	}

	// WebSocket маршрут: поток событий комнаты
	router.GET("/ws/rooms/:roomID", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Гасим фоновые задачи и отключаем клиентов
	scheduler.Shutdown()
	hub.Shutdown()

	// Graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
