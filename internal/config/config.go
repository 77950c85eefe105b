package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// User store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	ServerAddr string
	Env        string
	AppURL     string

	// Repository selection: "memory" (transient, dev/test) or "postgres"
	UserStore  string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret        string
	JWTRefreshSecret string
	BcryptCost       int

	// Rate limiter: redis-backed when RedisAddr is set, in-memory otherwise
	RedisAddr       string
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Email: "console" (dev) or "resend"
	EmailProvider string
	EmailFrom     string
	ResendAPIKey  string
}

func Load() *Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	godotenv.Load()

	bcryptCost, _ := strconv.Atoi(getEnvOrDefault("BCRYPT_COST", "12"))
	if bcryptCost <= 0 {
		bcryptCost = 12
	}

	rateLimitMax, _ := strconv.Atoi(getEnvOrDefault("RATE_LIMIT_MAX", "5"))
	if rateLimitMax <= 0 {
		rateLimitMax = 5
	}

	rateLimitWindow, err := time.ParseDuration(getEnvOrDefault("RATE_LIMIT_WINDOW", "15m"))
	if err != nil || rateLimitWindow <= 0 {
		rateLimitWindow = 15 * time.Minute
	}

	return &Config{
		ServerAddr:       getEnvOrDefault("SERVER_ADDR", ":8080"),
		Env:              getEnvOrDefault("APP_ENV", EnvDevelopment),
		AppURL:           getEnvOrDefault("APP_URL", "http://localhost:3000"),
		UserStore:        getEnvOrDefault("USER_STORE", StoreMemory),
		DBHost:           getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:           getEnvOrDefault("DB_PORT", "5432"),
		DBUser:           getEnvOrDefault("DB_USER", "auth"),
		DBPassword:       getEnvOrDefault("DB_PASSWORD", "auth_dev_password"),
		DBName:           getEnvOrDefault("DB_NAME", "authstarter"),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", generateDefaultSecret()),
		JWTRefreshSecret: getEnvOrDefault("JWT_REFRESH_SECRET", generateDefaultSecret()),
		BcryptCost:       bcryptCost,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RateLimitMax:     rateLimitMax,
		RateLimitWindow:  rateLimitWindow,
		EmailProvider:    getEnvOrDefault("EMAIL_PROVIDER", "console"),
		EmailFrom:        getEnvOrDefault("EMAIL_FROM", "no-reply@localhost"),
		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
	}
}

// IsProduction reports whether the app runs in a production-like environment.
// Controls cookie Secure flags and whether reset tokens are echoed back.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func generateDefaultSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "dev-secret-change-in-production"
	}
	return hex.EncodeToString(bytes)
}
