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
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	Auth              AuthConfig
	InternalEndpoints InternalEndpointsConfig
	Redis             RedisConfig
	Paystack          PaystackConfig
	Generation        GenerationConfig
	Storage           StorageConfig
	Subscriptions     SubscriptionConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	JWTSecret string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

// RedisConfig selects the quota guard backend. An empty Addr keeps counters in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PaystackConfig struct {
	SecretKey      string
	BaseURL        string
	Currency       string
	VerifyWebhooks bool
	RequestTimeout time.Duration
	ProPlanCode    string
	TeamPlanCode   string
	ProAnnualCode  string
	TeamAnnualCode string
}

type GenerationConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	DefaultSize     string
	BulkConcurrency int
	BulkMaxPrompts  int
	RequestTimeout  time.Duration
}

// StorageConfig enables S3 persistence of generated images when Bucket is set.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type SubscriptionConfig struct {
	PastDueThreshold int
}

type JobsConfig struct {
	ExpirationCheckInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "entitlements-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{Level: getEnv("LOG_LEVEL", "info")},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Paystack: PaystackConfig{
			SecretKey:      getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseURL:        strings.TrimRight(getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),
			Currency:       getEnv("PAYSTACK_CURRENCY", "USD"),
			VerifyWebhooks: getBoolEnv("PAYSTACK_VERIFY_WEBHOOKS", true),
			RequestTimeout: getSecondsEnv("PAYSTACK_TIMEOUT_SECONDS", 15*time.Second),
			ProPlanCode:    getEnv("PAYSTACK_PLAN_PRO_MONTHLY", ""),
			TeamPlanCode:   getEnv("PAYSTACK_PLAN_TEAM_MONTHLY", ""),
			ProAnnualCode:  getEnv("PAYSTACK_PLAN_PRO_ANNUAL", ""),
			TeamAnnualCode: getEnv("PAYSTACK_PLAN_TEAM_ANNUAL", ""),
		},
		Generation: GenerationConfig{
			BaseURL:         strings.TrimRight(getEnv("GENERATION_BASE_URL", "https://api.openai.com/v1"), "/"),
			APIKey:          getEnv("GENERATION_API_KEY", ""),
			Model:           getEnv("GENERATION_MODEL", "gpt-image-1"),
			DefaultSize:     getEnv("GENERATION_DEFAULT_SIZE", "1024x1536"),
			BulkConcurrency: getIntEnv("GENERATION_BULK_CONCURRENCY", 4),
			BulkMaxPrompts:  getIntEnv("GENERATION_BULK_MAX_PROMPTS", 10),
			RequestTimeout:  getSecondsEnv("GENERATION_TIMEOUT_SECONDS", 120*time.Second),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		},
		Subscriptions: SubscriptionConfig{
			PastDueThreshold: getIntEnv("PAST_DUE_THRESHOLD", 3),
		},
		Jobs: JobsConfig{
			ExpirationCheckInterval: getDurationEnv("EXPIRATION_CHECK_INTERVAL_MINUTES", time.Hour),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
