package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from the environment.
// .env files are loaded in cmd/server for local development via godotenv.
type Config struct {
	Port string

	// Retell API configuration
	RetellAPIKey     string
	RetellBaseURL    string
	RetellTimeout    time.Duration
	RetellRatePerSec float64

	// Operator endpoints (sync-all, backfill) are guarded by an HS256 JWT
	// signed with this secret.
	OperatorJWTSecret string

	// Redis configuration for the agent cache. Optional: the service runs
	// without a cache if Redis is unreachable.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	AgentCacheTTL time.Duration

	EnableCORS bool
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() *Config {
	return &Config{
		Port: GetEnvOrDefault("PORT", "8080"),

		RetellAPIKey:     GetEnvOrDefault("RETELL_API_KEY", ""),
		RetellBaseURL:    GetEnvOrDefault("RETELL_BASE_URL", "https://api.retellai.com"),
		RetellTimeout:    time.Duration(GetEnvIntOrDefault("RETELL_TIMEOUT_SECONDS", 15)) * time.Second,
		RetellRatePerSec: float64(GetEnvIntOrDefault("RETELL_RATE_PER_SEC", 10)),

		OperatorJWTSecret: GetEnvOrDefault("OPERATOR_JWT_SECRET", ""),

		RedisHost:     GetEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     GetEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvIntOrDefault("REDIS_DB", 0),

		AgentCacheTTL: time.Duration(GetEnvIntOrDefault("AGENT_CACHE_TTL_SECONDS", 300)) * time.Second,

		EnableCORS: GetEnvBoolOrDefault("ENABLE_CORS", true),
	}
}

// GetEnvOrDefault gets environment variable or returns default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntOrDefault gets environment variable as int or returns default
func GetEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBoolOrDefault gets environment variable as bool or returns default
func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
