package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-chat/internal/config"
	"session-chat/internal/db"
	apihttp "session-chat/internal/http"
	"session-chat/internal/llm"
	"session-chat/internal/repository"
	"session-chat/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	sessionRepo := repository.NewPgSessionRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	var sessionCache service.SessionCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			sessionCache = service.NewRedisSessionCache(redisClient)
		}
		cancel()
	}

	provider := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	sessionSvc := service.NewSessionService(sessionRepo, sessionCache, cfg.SessionTTL())
	chatSvc := service.NewChatService(sessionSvc, conversationRepo, messageRepo, provider)

	sessionHandler := apihttp.NewSessionHandler(logger, sessionSvc)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	adminHandler := apihttp.NewAdminHandler(logger, sessionSvc, cfg.CleanupSecret)
	healthHandler := apihttp.NewHealthHandler(logger, pool, cfg)
	router := apihttp.NewRouter(logger, sessionHandler, chatHandler, adminHandler, healthHandler)

	if cfg.CleanupSecret == "" {
		logger.Warn("cleanup secret not configured, POST /cleanup disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
