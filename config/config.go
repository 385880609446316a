package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// BackendConfig points at the commerce API the storefront calls on behalf of the browser.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicActivity string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type BusinessConfig struct {
	FlatShipping       decimal.Decimal
	FreeShippingOver   decimal.Decimal
	SnapshotTTL        time.Duration
	SessionIdleTimeout time.Duration
	ReapInterval       time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
			Timeout: getSeconds("BACKEND_TIMEOUT_SECONDS", 0),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicActivity: getEnv("KAFKA_TOPIC_ACTIVITY", "storefront-activity"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Business: BusinessConfig{
			FlatShipping:       getDecimal("FLAT_SHIPPING", "10.00"),
			FreeShippingOver:   getDecimal("FREE_SHIPPING_OVER", "100.00"),
			SnapshotTTL:        getSeconds("CHECKOUT_SNAPSHOT_TTL_SECONDS", 10*time.Minute),
			SessionIdleTimeout: getSeconds("SESSION_IDLE_TIMEOUT_SECONDS", 30*time.Minute),
			ReapInterval:       getSeconds("SESSION_REAP_INTERVAL_SECONDS", time.Minute),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, backend=%s", cfg.Server.Env, cfg.Server.Port, cfg.Backend.BaseURL)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDecimal(key, defaultVal string) decimal.Decimal {
	d, err := decimal.NewFromString(getEnv(key, defaultVal))
	if err != nil {
		log.Printf("Invalid decimal for %s, using %s", key, defaultVal)
		return decimal.RequireFromString(defaultVal)
	}
	return d
}

// getSeconds reads a positive duration given as whole seconds ("90") or a Go
// duration ("1m30s"). Anything else falls back to defaultVal.
func getSeconds(key string, defaultVal time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			log.Printf("Invalid duration for %s: %q, using %s", key, raw, defaultVal)
			return defaultVal
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		log.Printf("Non-positive duration for %s: %q, using %s", key, raw, defaultVal)
		return defaultVal
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
