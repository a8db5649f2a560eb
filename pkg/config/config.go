package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	MLPredictor MLPredictorConfig
	Datasets    DatasetsConfig
	Cache       CacheConfig
	OTEL        OTELConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	StreamPort     int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// PoolSize of 0 keeps the go-redis default. The SSE server holds one
	// subscription connection per channel on top of the pool.
	PoolSize int
}

// Predictor modes
const (
	PredictorModeNone    = "none"
	PredictorModeProcess = "process"
	PredictorModeHTTP    = "http"
)

// MLPredictorConfig configures the optional external predictor tried before the formula.
type MLPredictorConfig struct {
	Mode    string
	Command string
	Args    []string
	URL     string
	Timeout time.Duration
}

// DatasetsConfig points at the directory of pre-computed crew-health JSON documents.
type DatasetsConfig struct {
	Dir string
}

// CacheConfig holds TTLs for cached predictions and dataset responses.
type CacheConfig struct {
	PredictionTTL time.Duration
	DatasetTTL    time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Environment string
	Level       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			StreamPort:     getEnvAsInt("STREAM_PORT", 8081),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "iss_crew_health"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 0),
		},
		MLPredictor: MLPredictorConfig{
			Mode:    strings.ToLower(getEnv("ML_PREDICTOR_MODE", PredictorModeNone)),
			Command: getEnv("ML_PREDICTOR_COMMAND", ""),
			Args:    getEnvAsList("ML_PREDICTOR_ARGS", nil),
			URL:     getEnv("ML_PREDICTOR_URL", ""),
			Timeout: getEnvAsDuration("ML_PREDICTOR_TIMEOUT", 10*time.Second),
		},
		Datasets: DatasetsConfig{
			Dir: getEnv("DATASETS_DIR", "data"),
		},
		Cache: CacheConfig{
			PredictionTTL: getEnvAsDuration("PREDICTION_CACHE_TTL", time.Hour),
			DatasetTTL:    getEnvAsDuration("DATASET_CACHE_TTL", 30*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "iss-crew-health"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Environment: getEnv("APP_ENV", "development"),
			Level:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.MLPredictor.Mode {
	case PredictorModeNone:
	case PredictorModeProcess:
		if c.MLPredictor.Command == "" {
			return fmt.Errorf("ML_PREDICTOR_COMMAND is required when ML_PREDICTOR_MODE=process")
		}
	case PredictorModeHTTP:
		if c.MLPredictor.URL == "" {
			return fmt.Errorf("ML_PREDICTOR_URL is required when ML_PREDICTOR_MODE=http")
		}
	default:
		return fmt.Errorf("unknown ML_PREDICTOR_MODE %q (expected none, process or http)", c.MLPredictor.Mode)
	}
	if c.MLPredictor.Timeout <= 0 {
		return fmt.Errorf("ML_PREDICTOR_TIMEOUT must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
