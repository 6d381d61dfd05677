package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Storage  StorageConfig
	Queue    QueueConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret string
	AdminRole string
}

type PaymentConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type StorageConfig struct {
	Dir       string
	PublicURL string
}

type QueueConfig struct {
	// Driver is "memory" or "redis".
	Driver     string
	BufferSize int
	ConsumerID string
}

var AppConfig *Config

func LoadConfig() *Config {
	AppConfig = &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Server:   GetServerConfig(),
		Auth:     GetAuthConfig(),
		Payment:  GetPaymentConfig(),
		Storage:  GetStorageConfig(),
		Queue:    GetQueueConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test database listens on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test redis listens on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: *testConfig,
		Redis:    testRedisConfig,
		Server: ServerConfig{
			Port:           "8080",
			GinMode:        "test",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Auth: AuthConfig{
			JWTSecret: "test-secret",
			AdminRole: "admin",
		},
		Payment: PaymentConfig{
			SecretKey:     "sk_test_dummy",
			WebhookSecret: "whsec_test",
			SuccessURL:    "http://localhost:3000/checkout/success",
			CancelURL:     "http://localhost:3000/checkout/cancel",
		},
		Storage: StorageConfig{
			Dir:       os.TempDir(),
			PublicURL: "http://localhost:8080/uploads",
		},
		Queue: QueueConfig{
			Driver:     "memory",
			BufferSize: 16,
		},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:           getEnv("HTTP_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

func GetAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-key-change-in-production"),
		AdminRole: getEnv("ADMIN_ROLE", "admin"),
	}
}

func GetPaymentConfig() PaymentConfig {
	return PaymentConfig{
		SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		SuccessURL:    getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CancelURL:     getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
	}
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Dir:       getEnv("STORAGE_DIR", "./uploads"),
		PublicURL: getEnv("STORAGE_PUBLIC_URL", "http://localhost:8080/uploads"),
	}
}

func GetQueueConfig() QueueConfig {
	size, err := strconv.Atoi(getEnv("QUEUE_BUFFER_SIZE", "256"))
	if err != nil {
		panic(err)
	}

	return QueueConfig{
		Driver:     getEnv("QUEUE_DRIVER", "memory"),
		BufferSize: size,
		ConsumerID: getEnv("QUEUE_CONSUMER_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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
