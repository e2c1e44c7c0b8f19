package config

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Pricing     PricingConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

// DatabaseConfig stores MySQL connection parameters.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"DB_PORT" default:"3306"`
	User            string        `envconfig:"DB_USER" default:"supply"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Name            string        `envconfig:"DB_NAME" default:"supply"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	MigrationsUp    bool          `envconfig:"DB_MIGRATIONS_UP" default:"true"`
}

// PricingConfig holds the order-level VAT policy parameters.
type PricingConfig struct {
	// VatRateBasisPoints expresses the flat VAT rate in basis points; 1000 = 10%.
	VatRateBasisPoints int64 `envconfig:"VAT_RATE_BASIS_POINTS" default:"1000"`
}

// IdempotencyConfig controls the create-order idempotency cache.
type IdempotencyConfig struct {
	Header string        `envconfig:"IDEMPOTENCY_HEADER" default:"Idempotency-Key"`
	TTL    time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints not expressible as tag defaults.
func (c Config) Validate() error {
	if c.Pricing.VatRateBasisPoints < 0 {
		return fmt.Errorf("config: VAT rate must not be negative")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("config: database name is required")
	}
	return nil
}

// DSN renders the go-sql-driver DSN for the configured database.
func (c DatabaseConfig) DSN() string {
	dsn := mysql.NewConfig()
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.DBName = c.Name
	dsn.ParseTime = true
	dsn.MultiStatements = true
	dsn.Loc = time.UTC
	return dsn.FormatDSN()
}
