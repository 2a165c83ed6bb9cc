package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Backend  BackendConfig
	Checkout CheckoutConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

// CheckoutConfig holds the pricing constants applied at checkout.
type CheckoutConfig struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

type LogConfig struct {
	Level       string
	Development bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
			URL:             getEnv("DATABASE_URL", "file:storefront.db?_pragma=busy_timeout(5000)"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:3000"), "/"),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
			Token:   getEnv("BACKEND_TOKEN", ""),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnv("LOG_DEVELOPMENT", "false") == "true",
		},
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	taxRate, err := getEnvDecimal("CHECKOUT_TAX_RATE", decimal.RequireFromString("0.10"))
	if err != nil {
		return nil, err
	}
	shippingFee, err := getEnvDecimal("CHECKOUT_SHIPPING_FEE", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}
	cfg.Checkout = CheckoutConfig{TaxRate: taxRate, ShippingFee: shippingFee}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		fmt.Printf("Warning: invalid duration for %s, using default\n", key)
	}
	return defaultValue
}

// Money settings are not silently defaulted: a typo would change what buyers pay.
func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
