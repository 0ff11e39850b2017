package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port            string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	RedisHost       string
	RedisPort       string
	TokenSecret     string
	BcryptCost      int
	PriceSourceAddr string
	KafkaBrokers    []string
	LogLevel        string
	MigrationsPath  string
}

// NewConfigFromEnv reads configuration from the environment, with an
// optional .env file for local runs.
func NewConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		TokenSecret:     os.Getenv("TOKEN_SECRET"),
		BcryptCost:      bcrypt.DefaultCost,
		PriceSourceAddr: os.Getenv("PRICE_SOURCE_ADDRESS"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
	}

	if raw := os.Getenv("BCRYPT_COST"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %q", raw)
		}
		cfg.BcryptCost = cost
	}

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = strings.Split(raw, ",")
	}

	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required")
	}
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
