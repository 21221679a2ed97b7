package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"paperTrader/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// HTTP Server
	HTTPPort    int
	CORSOrigins []string

	// External Providers
	PriceAPIURL  string // price-routing provider (token quotes by address)
	ChainAPIURL  string // blockchain-data provider (proxied for the dashboard)
	MarketAPIURL string // market-data provider (proxied for the dashboard)
	QuoteSymbol  string // USD reference ticker (e.g. SOLUSDT); empty disables
	PriceTimeout time.Duration

	// Redis price cache (optional; empty address disables the cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PriceCacheTTL time.Duration

	// Engine
	RefreshInterval time.Duration

	// Auth
	SessionTTL time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// HTTP Server
	cfg.HTTPPort = getEnvAsInt("HTTP_PORT", 8080)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		errs = append(errs, "HTTP_PORT must be a valid port number")
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	// External Providers
	cfg.PriceAPIURL = getEnv("PRICE_API_URL", "https://lite-api.jup.ag/price/v2")
	if cfg.PriceAPIURL == "" {
		errs = append(errs, "PRICE_API_URL must be set")
	}
	cfg.ChainAPIURL = getEnv("CHAIN_API_URL", "")
	cfg.MarketAPIURL = getEnv("MARKET_API_URL", "")
	cfg.QuoteSymbol = getEnv("QUOTE_SYMBOL", "SOLUSDT")

	priceTimeoutSeconds := getEnvAsInt("PRICE_TIMEOUT_SECONDS", 10)
	if priceTimeoutSeconds <= 0 {
		errs = append(errs, "PRICE_TIMEOUT_SECONDS must be positive")
	}
	cfg.PriceTimeout = time.Duration(priceTimeoutSeconds) * time.Second

	// Redis price cache
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cacheTTLSeconds := getEnvAsInt("PRICE_CACHE_TTL_SECONDS", 15)
	if cacheTTLSeconds <= 0 {
		errs = append(errs, "PRICE_CACHE_TTL_SECONDS must be positive")
	}
	cfg.PriceCacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	// Engine
	refreshSeconds := getEnvAsInt("REFRESH_INTERVAL_SECONDS", 30)
	if refreshSeconds <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_SECONDS must be positive")
	}
	cfg.RefreshInterval = time.Duration(refreshSeconds) * time.Second

	// Auth
	sessionTTLMinutes := getEnvAsInt("SESSION_TTL_MINUTES", 720)
	if sessionTTLMinutes <= 0 {
		errs = append(errs, "SESSION_TTL_MINUTES must be positive")
	}
	cfg.SessionTTL = time.Duration(sessionTTLMinutes) * time.Minute

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/paper_trader.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
