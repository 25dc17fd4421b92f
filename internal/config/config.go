package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser  string
	DBPass  string
	DBHost  string
	DBPort  string
	DBName  string
	SSLMode string

	RedisHost string
	RedisPort string

	NatsEnabled bool
	NatsHost    string
	NatsPort    string

	ApiEnabled bool
	ApiPort    string

	// StoreProvider selects the ledger store: "postgres" (default) or
	// "memory" for a standalone process without infrastructure.
	StoreProvider string

	// CoinRate is the linear PKR->coin conversion rate, parsed by
	// domain.NewConverter.
	CoinRate string

	// AllowNegativeBalance disables the funds check on withdrawal creation.
	AllowNegativeBalance bool
}

// New loads and validates configuration from environment variables.
// Postgres and Redis are only required when the postgres store is selected;
// NATS and the HTTP API are optional and simply not started when disabled.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:               os.Getenv("TREASURE_POSTGRES_USER"),
		DBPass:               os.Getenv("TREASURE_POSTGRES_PASSWORD"),
		DBHost:               os.Getenv("TREASURE_POSTGRES_HOST"),
		DBPort:               os.Getenv("TREASURE_POSTGRES_PORT"),
		DBName:               os.Getenv("TREASURE_POSTGRES_DB"),
		SSLMode:              os.Getenv("TREASURE_POSTGRES_SSLMODE"),
		RedisHost:            os.Getenv("TREASURE_REDIS_HOST"),
		RedisPort:            os.Getenv("TREASURE_REDIS_PORT"),
		NatsEnabled:          os.Getenv("TREASURE_NATS_ENABLED") == "true",
		NatsHost:             os.Getenv("TREASURE_NATS_HOST"),
		NatsPort:             os.Getenv("TREASURE_NATS_PORT"),
		ApiEnabled:           os.Getenv("TREASURE_API_ENABLED") == "true",
		ApiPort:              os.Getenv("TREASURE_API_PORT"),
		StoreProvider:        os.Getenv("TREASURE_STORE_PROVIDER"),
		CoinRate:             os.Getenv("TREASURE_COIN_RATE"),
		AllowNegativeBalance: os.Getenv("TREASURE_ALLOW_NEGATIVE_BALANCE") == "true",
	}

	if cfg.StoreProvider == "" {
		cfg.StoreProvider = "postgres"
	}
	if cfg.StoreProvider != "postgres" && cfg.StoreProvider != "memory" {
		return nil, fmt.Errorf("invalid store provider %q, must be 'postgres' or 'memory'", cfg.StoreProvider)
	}

	if cfg.CoinRate == "" {
		cfg.CoinRate = "1"
	}

	if cfg.StoreProvider == "postgres" {
		if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
			return nil, fmt.Errorf("missing required env for database: TREASURE_POSTGRES_USER/HOST/DB/SSLMODE")
		}
		if cfg.RedisHost == "" || cfg.RedisPort == "" {
			return nil, fmt.Errorf("missing required env for redis: TREASURE_REDIS_HOST/PORT")
		}
	}

	if cfg.NatsEnabled && (cfg.NatsHost == "" || cfg.NatsPort == "") {
		return nil, fmt.Errorf("missing required env for nats: TREASURE_NATS_HOST/PORT")
	}

	if cfg.ApiEnabled && cfg.ApiPort == "" {
		return nil, fmt.Errorf("TREASURE_API_PORT is required when TREASURE_API_ENABLED=true")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

// ApiAddr returns the HTTP listen address if the API is enabled. Callers
// should skip starting the HTTP server on error.
func (c *Config) ApiAddr() (string, error) {
	if !c.ApiEnabled {
		return "", fmt.Errorf("HTTP API is disabled (TREASURE_API_ENABLED != true)")
	}
	return ":" + c.ApiPort, nil
}
