// Package config loads server configuration from the environment and the
// safety policy from its JSON file.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	PostgresDSN   string
	Redis         RedisConfig
	KafkaBrokers  []string
	OpenAIAPIKey  string
	JWTSigningKey string
	PolicyPath    string
	// NotifyWebhookURL is the parent notification endpoint. Empty falls
	// back to log-only delivery.
	NotifyWebhookURL string
}

// RedisConfig holds connection tuning for the optional Redis state store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("GUARDIAN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("GUARDIAN_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development fallback; production deployments must set the key.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("GUARDIAN_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:             addr,
		PostgresDSN:      os.Getenv("GUARDIAN_POSTGRES_DSN"),
		KafkaBrokers:     brokers,
		OpenAIAPIKey:     os.Getenv("GUARDIAN_OPENAI_API_KEY"),
		JWTSigningKey:    jwtSigningKey,
		PolicyPath:       os.Getenv("GUARDIAN_POLICY_PATH"),
		NotifyWebhookURL: os.Getenv("GUARDIAN_NOTIFY_WEBHOOK_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("GUARDIAN_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
