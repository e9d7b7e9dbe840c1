package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig   `json:"server" validate:"required"`
	App      AppConfig      `json:"app" validate:"required"`
	Database DatabaseConfig `json:"database" validate:"required"`
	Redis    RedisConfig    `json:"redis"`
	Broker   BrokerConfig   `json:"broker"`
	Cache    CacheConfig    `json:"cache"`
	Scraper  ScraperConfig  `json:"scraper"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            string        `json:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `json:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `json:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gt=0"`
}

type AppConfig struct {
	Name     string `json:"name" validate:"required"`
	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	URL             string        `json:"-" validate:"required"`
	MaxOpenConns    int           `json:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `json:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" validate:"gte=0"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" validate:"gte=0"`
}

type RedisConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`
	URL  string `json:"-" validate:"omitempty,url"`
}

// BrokerConfig is declared for the task worker pipeline; nothing consumes it yet.
type BrokerConfig struct {
	BrokerURL     string `json:"-" validate:"omitempty,url"`
	ResultBackend string `json:"-" validate:"omitempty,url"`
}

type CacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

type ScraperConfig struct {
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxRetries     int           `json:"max_retries" validate:"gte=0"`
	UserAgent      string        `json:"user_agent"`
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// LoadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "8000"),
			ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		App: AppConfig{
			Name:     getEnv("APP_NAME", "WebProbe"),
			Debug:    getEnvAsBool("DEBUG", false),
			LogLevel: getEnv("LOG_LEVEL", "INFO"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 30),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
			URL:  os.Getenv("REDIS_URL"),
		},
		Broker: BrokerConfig{
			BrokerURL:     os.Getenv("CELERY_BROKER_URL"),
			ResultBackend: os.Getenv("CELERY_RESULT_BACKEND"),
		},
		Cache: CacheConfig{
			TTL: getEnvAsSeconds("CACHE_TTL", 300*time.Second),
		},
		Scraper: ScraperConfig{
			RequestTimeout: getEnvAsSeconds("REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries:     getEnvAsInt("MAX_RETRIES", 3),
			UserAgent:      getEnv("USER_AGENT", "WebProbe/1.0"),
		},
	}

	if config.Database.URL == "" {
		return nil, ErrMissingDatabaseURL
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) GetRedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsSeconds accepts either a bare number of seconds ("30") or a Go duration ("30s").
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return getEnvAsDuration(key, defaultValue)
}
