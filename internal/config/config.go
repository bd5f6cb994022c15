package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBURL      string

	JWTSecret  string
	JWTTTL     time.Duration
	CORSOrigin string

	// When set, cancelling an order also cancels its still-pending items.
	CancelCascadesItems bool

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SellerCacheTTL time.Duration

	MongoURI             string
	MongoDatabase        string
	MongoAuditCollection string

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint      string
	InternalSecretKey string
}

var ErrMissingEnv = errors.New("environment variables not loaded properly")

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   os.Getenv("APP_ENV"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBURL:      os.Getenv("DB_URL"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getDuration("JWT_TTL", time.Hour),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		CancelCascadesItems: getBool("ORDER_CANCEL_CASCADE_ITEMS", false),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
		SellerCacheTTL: getDuration("SELLER_CACHE_TTL", 5*time.Minute),

		MongoURI:             os.Getenv("MONGO_URI"),
		MongoDatabase:        getEnv("MONGO_DATABASE", "marketplace"),
		MongoAuditCollection: getEnv("MONGO_AUDIT_COLLECTION", "order_audit"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order.events"),

		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),
	}

	if cfg.DBHost == "" || cfg.JWTSecret == "" {
		return nil, ErrMissingEnv
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
