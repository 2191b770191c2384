package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"horizon-bank/internal/config"
	"horizon-bank/internal/db"
	apihttp "horizon-bank/internal/http"
	"horizon-bank/internal/linking"
	"horizon-bank/internal/payments"
	"horizon-bank/internal/repository"
	"horizon-bank/internal/service"

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
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	bankRepo := repository.NewPgBankRepository(pool)

	var (
		sessionStore service.SessionStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			redisClient = nil
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		sessionStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	linkProvider := linking.NewHTTPClient(cfg.LinkBaseURL, cfg.LinkClientID, cfg.LinkSecret)
	paymentsProvider := payments.NewHTTPClient(cfg.PaymentsBaseURL, cfg.PaymentsAPIKey)

	engine := service.NewValidationEngine()
	orchestrator := service.NewCredentialOrchestrator(logger, userRepo, bankRepo, engine)
	coordinator := service.NewAccountLinkCoordinator(logger, linkProvider, bankRepo)
	projector := service.NewAccountListProjector(
		logger,
		linkProvider,
		bankRepo,
		time.Duration(cfg.AccountCacheTTLSecs)*time.Second,
		redisClient,
	)
	initiator := service.NewTransferInitiator(logger, paymentsProvider, projector)

	authHandler := apihttp.NewAuthHandler(logger, orchestrator, userRepo, bankRepo, jwtSvc)
	bankHandler := apihttp.NewBankHandler(logger, userRepo, orchestrator, coordinator, projector, initiator)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, bankHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
