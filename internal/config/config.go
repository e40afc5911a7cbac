package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppPort         = "8080"
	defaultCartStore       = "memory"
	defaultCartStoreDir    = "./data/carts"
	defaultOrderQueue      = "order.placed"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultShippingFee     = "40"
	defaultCheckoutTimeout = 5 * time.Second
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string
	CORSOrigin string

	// CartStore selects the cart slot backend: memory, file or redis.
	CartStore     string
	CartStoreDir  string
	RedisAddr     string
	RedisPassword string

	RabbitMQURL      string
	OrderEventsQueue string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	ShippingFee     decimal.Decimal
	CheckoutTimeout time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:           os.Getenv("DB_HOST"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		DBPort:           os.Getenv("DB_PORT"),
		AppPort:          getEnv("APP_PORT", defaultAppPort),
		AppEnv:           os.Getenv("APP_ENV"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigin:       getEnv("CORS_ALLOWED_ORIGIN", "*"),
		CartStore:        getEnv("CART_STORE", defaultCartStore),
		CartStoreDir:     getEnv("CART_STORE_DIR", defaultCartStoreDir),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		OrderEventsQueue: getEnv("ORDER_EVENTS_QUEUE", defaultOrderQueue),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL),
		ShippingFee:      parseDecimal("SHIPPING_FEE", defaultShippingFee),
		CheckoutTimeout:  parseDuration("CHECKOUT_TIMEOUT", defaultCheckoutTimeout),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDecimal(key, fallback string) decimal.Decimal {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		log.Printf("invalid %s=%q, using %s", key, raw, fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}
