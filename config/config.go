package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Gateway     GatewayConfig
	Reservation ReservationConfig
	CheckIn     CheckInConfig
	Auth        AuthConfig
}

type ServerConfig struct {
	Addr string
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

type GatewayConfig struct {
	BaseURL   string
	ServerKey string
	Timeout   time.Duration
}

type ReservationConfig struct {
	TTL            time.Duration
	SweepInterval  time.Duration
	MaxPerPurchase int
}

type CheckInConfig struct {
	// LeadTime is how long before an event's start a gate scan is accepted.
	LeadTime time.Duration
}

type AuthConfig struct {
	JWTSecret string
	QRSecret  string
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	AppConfig = &Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		Database:    GetDatabaseConfig(),
		Redis:       GetRedisConfig(),
		Gateway:     GetGatewayConfig(),
		Reservation: GetReservationConfig(),
		CheckIn: CheckInConfig{
			LeadTime: getEnvDuration("CHECKIN_LEAD_TIME", 2*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
			QRSecret:  getEnv("QR_SECRET", "dev-qr-secret"),
		},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":0"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433",
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6380",
			DB:   1,
		},
		Gateway: GatewayConfig{
			BaseURL:   "http://localhost:9090",
			ServerKey: "test-server-key",
			Timeout:   2 * time.Second,
		},
		Reservation: ReservationConfig{
			TTL:            time.Minute,
			SweepInterval:  time.Second,
			MaxPerPurchase: 10,
		},
		CheckIn: CheckInConfig{LeadTime: 2 * time.Hour},
		Auth:    AuthConfig{JWTSecret: "test-secret", QRSecret: "test-qr-secret"},
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

func GetGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BaseURL:   getEnv("GATEWAY_BASE_URL", "https://app.sandbox.midtrans.com"),
		ServerKey: getEnv("GATEWAY_SERVER_KEY", ""),
		Timeout:   getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
	}
}

func GetReservationConfig() ReservationConfig {
	maxPer, err := strconv.Atoi(getEnv("RESERVATION_MAX_PER_PURCHASE", "10"))
	if err != nil {
		panic(err)
	}

	return ReservationConfig{
		TTL:            getEnvDuration("RESERVATION_TTL", 15*time.Minute),
		SweepInterval:  getEnvDuration("RESERVATION_SWEEP_INTERVAL", 30*time.Second),
		MaxPerPurchase: maxPer,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}
