package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Invoice  InvoiceConfig
	Web      WebConfig
	Store    StoreConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	StatsTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	GroupID string
	Topics  TopicConfig
}

type TopicConfig struct {
	RegistrationCreated string
	RegistrationPaid    string
}

type InvoiceConfig struct {
	Prefix   string
	QRSecret string
	QRSize   int
	// FanOut bounds how many student/event lookups run at once when listing invoices.
	FanOut int
}

type WebConfig struct {
	CSRFKey        []byte
	Secure         bool
	TrustedOrigins []string
}

type StoreConfig struct {
	// Deny holds "collection:op" pairs, e.g. "students:write".
	Deny []string
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() (*Config, error) {
	csrfKey, err := decodeKey(getEnv("CSRF_KEY", ""))
	if err != nil {
		return nil, fmt.Errorf("CSRF_KEY: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			DSN:          getEnv("DB_DSN", "file:invoicing.db?cache=shared&_pragma=foreign_keys(1)"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			StatsTTL: getEnvDuration("REDIS_STATS_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "invoicing-ledger"),
			Topics: TopicConfig{
				RegistrationCreated: getEnv("KAFKA_TOPIC_REGISTRATION_CREATED", "invoicing.registration.created"),
				RegistrationPaid:    getEnv("KAFKA_TOPIC_REGISTRATION_PAID", "invoicing.registration.paid"),
			},
		},
		Invoice: InvoiceConfig{
			Prefix:   getEnv("INVOICE_PREFIX", "INV-"),
			QRSecret: getEnv("INVOICE_QR_SECRET", "change-me-in-production"),
			QRSize:   getEnvInt("INVOICE_QR_SIZE", 256),
			FanOut:   getEnvInt("INVOICE_FANOUT", 8),
		},
		Web: WebConfig{
			CSRFKey:        csrfKey,
			Secure:         getEnvBool("WEB_SECURE_COOKIES", false),
			TrustedOrigins: getEnvList("WEB_TRUSTED_ORIGINS", nil),
		},
		Store: StoreConfig{
			Deny: getEnvList("STORE_DENY", nil),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// decodeKey accepts a 64 character hex string. An empty value yields a nil key.
func decodeKey(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
