// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"streamcart-orders/pkg/db" // Import db package for its Config struct
)

// Supported event sinks.
const (
	EventSinkKafka = "kafka"
	EventSinkRedis = "redis"
	EventSinkLog   = "log"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort  string
	LogLevel    string
	DB          db.Config
	AutoMigrate bool
	Auth        AuthConfig
	Events      EventsConfig
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// EventsConfig selects and configures the order event sink.
type EventsConfig struct {
	Sink           string
	Topic          string
	KafkaBrokers   []string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PublishTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present; variables
// already set in the environment take precedence over it.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	autoMigrate, err := getBool("DB_AUTO_MIGRATE", true)
	if err != nil {
		return nil, err
	}
	ttlMinutes, err := getInt("JWT_TTL_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL_MINUTES: must be positive, got %d", ttlMinutes)
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	publishTimeout, err := getInt("EVENT_PUBLISH_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	secret := getString("JWT_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	sink := strings.ToLower(getString("EVENT_SINK", EventSinkKafka))
	switch sink {
	case EventSinkKafka, EventSinkRedis, EventSinkLog:
	default:
		return nil, fmt.Errorf("invalid EVENT_SINK %q: expected kafka, redis or log", sink)
	}

	return &AppConfig{
		ServerPort:  getString("SERVER_PORT", "8080"),
		LogLevel:    getString("LOG_LEVEL", "info"),
		AutoMigrate: autoMigrate,
		DB: db.Config{
			Host:     getString("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getString("DB_USER", "user"),
			Password: getString("DB_PASSWORD", "password"),
			DBName:   getString("DB_NAME", "orderdb"),
			SSLMode:  getString("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: secret,
			TokenTTL:  time.Duration(ttlMinutes) * time.Minute,
		},
		Events: EventsConfig{
			Sink:           sink,
			Topic:          getString("EVENT_TOPIC", "order.created"),
			KafkaBrokers:   splitList(getString("KAFKA_BROKERS", "localhost:9092")),
			RedisAddr:      getString("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getString("REDIS_PASSWORD", ""),
			RedisDB:        redisDB,
			PublishTimeout: time.Duration(publishTimeout) * time.Second,
		},
	}, nil
}

func getString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
