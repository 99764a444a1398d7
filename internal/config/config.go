package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Logging
	LogLevel  string
	LogPretty bool

	// Rate limiting
	RateLimitType   string // "memory" or "redis"
	RateLimit       int    // number of requests allowed
	RateLimitWindow int    // time window in seconds

	// Anchor market and base currency
	AnchorCountry string // ISO-2 country code the platform falls back to
	BaseCurrency  string // currency all exchange rates are quoted against

	// Cache TTLs
	LocationCacheTTL time.Duration // durable location cache entries
	RateCacheTTL     time.Duration // in-memory exchange rate entries

	// External call timeouts
	PositionTimeout time.Duration // hard bound on one positioning attempt
	ProviderTimeout time.Duration // per-attempt bound for geocoders and rate services

	// Positioning gateway (the device positioning capability)
	PositionGatewayURL string

	// Provider base URL overrides (comma-separated) - empty means the
	// built-in public endpoints in their default order
	GeocoderURLs []string
	RateURLs     []string

	// Redis configuration (durable location cache + redis rate limiter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MySQL configuration (agreement records for the earnings dashboard)
	MySQLDSN string

	// CSV agreements file (used by the load tool and zero-DB development)
	AgreementsPath string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	// Load .env file if it exists (for local development)
	// In production/Docker, environment variables are set directly
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port: getEnv("PORT", "3000"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnv("LOG_PRETTY", "true") == "true",

		RateLimitType:   getEnv("RATE_LIMITER_TYPE", "memory"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 10),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 1),

		AnchorCountry: getEnv("ANCHOR_COUNTRY", "ng"),
		BaseCurrency:  getEnv("BASE_CURRENCY", "usd"),

		LocationCacheTTL: getEnvAsDuration("LOCATION_CACHE_TTL", 2*time.Hour),
		RateCacheTTL:     getEnvAsDuration("RATE_CACHE_TTL", 10*time.Minute),

		PositionTimeout: getEnvAsDuration("POSITION_TIMEOUT", 15*time.Second),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 8*time.Second),

		PositionGatewayURL: getEnv("POSITION_GATEWAY_URL", ""),

		GeocoderURLs: getEnvAsList("GEOCODER_URLS"),
		RateURLs:     getEnvAsList("RATE_PROVIDER_URLS"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		AgreementsPath: getEnv("AGREEMENTS_PATH", "./data/agreements.csv"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer
// Returns default if not set or invalid
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

// getEnvAsList reads a comma-separated environment variable
// Returns nil if not set, so callers can fall back to built-in defaults
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// getEnvAsDuration reads an environment variable as a Go duration string
// (e.g. "2h", "10m", "15s"). Returns default if not set or invalid
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
