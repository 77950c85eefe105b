package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/authstarter/backend/internal/api"
	"github.com/authstarter/backend/internal/auth"
	"github.com/authstarter/backend/internal/config"
	"github.com/authstarter/backend/internal/db"
	"github.com/authstarter/backend/internal/email"
	"github.com/authstarter/backend/internal/health"
	"github.com/authstarter/backend/internal/logger"
	"github.com/authstarter/backend/internal/metrics"
	"github.com/authstarter/backend/internal/middleware"
	"github.com/authstarter/backend/internal/ratelimit"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	logLevel := logger.LevelInfo
	switch cfg.Env {
	case config.EnvDevelopment:
		logLevel = logger.LevelDebug
	case config.EnvTest:
		// Keep test runs quiet; audit events are info-level.
		logLevel = logger.LevelError
	}
	appLog := logger.New(os.Stdout, logLevel, "server")
	logger.SetDefault(appLog)

	// Postgres is only dialed when the durable store is selected; the
	// in-memory store needs nothing external.
	var database *db.DB
	if cfg.UserStore == config.StorePostgres {
		var err error
		database, err = db.New(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	userRepo, err := db.NewUserRepository(cfg.UserStore, database)
	if err != nil {
		log.Fatalf("Failed to create user repository: %v", err)
	}

	var redisClient *redis.Client
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient)
	}

	mailer, err := email.NewMailer(cfg.EmailProvider, cfg.EmailFrom, cfg.ResendAPIKey, appLog)
	if err != nil {
		log.Fatalf("Failed to create mailer: %v", err)
	}

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTRefreshSecret)
	authService := auth.NewService(userRepo, hasher, tokens, mailer, appLog, cfg.AppURL)

	m := metrics.New()
	authHandlers := auth.NewHandlers(authService, limiter, appLog, m, auth.HandlersConfig{
		SecureCookies:   cfg.IsProduction(),
		EchoResetToken:  !cfg.IsProduction(),
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	checkerCfg := &health.CheckerConfig{Redis: redisClient, Version: version}
	if database != nil {
		checkerCfg.DB = database.DB
	}
	healthHandler := health.NewHandler(health.NewChecker(checkerCfg))

	router := api.NewRouter(authHandlers, healthHandler, m)

	handler := middleware.Chain(router,
		middleware.Recoverer(appLog),
		middleware.RequestID,
		middleware.Logging(appLog),
		metrics.MetricsMiddleware(m),
		middleware.CORS([]string{cfg.AppURL}),
		middleware.Gzip,
	)

	log.Printf("Starting server on %s (env=%s, store=%s)", cfg.ServerAddr, cfg.Env, cfg.UserStore)
	if err := http.ListenAndServe(cfg.ServerAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
