package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is loaded once at startup
// from the environment and read-only afterwards; there is no hot reload.
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Database configuration. Driver selects the embedded sqlite store
	// (default) or postgres for installs that already run one.
	Database struct {
		Driver   string
		Path     string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// LLM holds the upstream completion provider configuration.
	LLM struct {
		Provider      string
		APIKey        string
		Model         string
		Endpoint      string
		MaxTokens     int
		Temperature   float64
		Timeout       time.Duration
		HistoryWindow int
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
		File   string
	}

	// OpenAPI request validation, enabled when the schema file exists.
	OpenAPI struct {
		SchemaPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "3000")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

		// Database config
		instance.Database.Driver = getEnvString("DB_DRIVER", "sqlite")
		instance.Database.Path = getEnvString("DB_PATH", "data/chat_log.db")
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "chat_relay")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

		// Completion provider config
		instance.LLM.Provider = getEnvString("LLM_PROVIDER", "openrouter")
		instance.LLM.APIKey = resolveAPIKey(instance.LLM.Provider)
		instance.LLM.Model = getEnvString("LLM_MODEL", "gryphe/mythomax-l2-13b")
		instance.LLM.Endpoint = getEnvString("LLM_ENDPOINT", "")
		instance.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", 300)
		instance.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", 0.7)
		instance.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)
		instance.LLM.HistoryWindow = getEnvInt("HISTORY_WINDOW", 10)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")
		instance.Logging.File = getEnvString("LOG_FILE", "")

		// OpenAPI schema
		instance.OpenAPI.SchemaPath = getEnvString("OPENAPI_SCHEMA", "api/openapi.yaml")
	})

	return instance
}

// Get returns the singleton Config instance.
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Validate checks the startup-fatal conditions: the service must not accept
// traffic without a provider API key.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("missing completion provider API key (set LLM_API_KEY or the provider-specific variable)")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return errors.New("DB_DRIVER must be sqlite or postgres")
	}
	return nil
}

// resolveAPIKey prefers the generic LLM_API_KEY and falls back to the
// provider-specific variables the historical deployments used.
func resolveAPIKey(providerName string) string {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key
	}
	switch providerName {
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "cohere":
		return os.Getenv("COHERE_API_KEY")
	}
	return ""
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
