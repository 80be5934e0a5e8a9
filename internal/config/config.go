package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StoreConfig selects and bounds the record store
type StoreConfig struct {
	Backend          string
	OperationTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// SQLiteConfig holds the SQLite database location
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment      string
	LogLevel         string
	ValidationPolicy string
	ResolveTimeout   time.Duration
	IDStrategy       string
	IDRandomMax      int64
	IDMaxAttempts    int
	SeedFixtures     bool
	EnableMetrics    bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")

	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("STORE_OPERATION_TIMEOUT", "5s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "shorturl")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "shorturl")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_MIGRATE", true)

	v.SetDefault("SQLITE_PATH", "shorturl.db")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "1h")

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VALIDATION_POLICY", "syntactic")
	v.SetDefault("VALIDATION_RESOLVE_TIMEOUT", "2s")
	v.SetDefault("ID_STRATEGY", "sequence")
	v.SetDefault("ID_RANDOM_MAX", 99999)
	v.SetDefault("ID_MAX_ATTEMPTS", 5)
	v.SetDefault("SEED_FIXTURES", true)
	v.SetDefault("ENABLE_METRICS", true)
}

// Load reads configuration from defaults, an optional config file named by
// CONFIG_FILE, and the environment. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Store: StoreConfig{
			Backend:          v.GetString("STORE_BACKEND"),
			OperationTimeout: v.GetDuration("STORE_OPERATION_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			Migrate:         v.GetBool("DB_MIGRATE"),
		},
		SQLite: SQLiteConfig{
			Path: v.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("REDIS_CACHE_TTL"),
		},
		App: AppConfig{
			Environment:      v.GetString("APP_ENV"),
			LogLevel:         v.GetString("LOG_LEVEL"),
			ValidationPolicy: v.GetString("VALIDATION_POLICY"),
			ResolveTimeout:   v.GetDuration("VALIDATION_RESOLVE_TIMEOUT"),
			IDStrategy:       v.GetString("ID_STRATEGY"),
			IDRandomMax:      v.GetInt64("ID_RANDOM_MAX"),
			IDMaxAttempts:    v.GetInt("ID_MAX_ATTEMPTS"),
			SeedFixtures:     v.GetBool("SEED_FIXTURES"),
			EnableMetrics:    v.GetBool("ENABLE_METRICS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", c.Store.Backend))
	}

	switch c.App.ValidationPolicy {
	case "syntactic", "resolvable":
	default:
		errs = append(errs, fmt.Errorf("VALIDATION_POLICY: unknown policy %q", c.App.ValidationPolicy))
	}

	switch c.App.IDStrategy {
	case "sequence", "random":
	default:
		errs = append(errs, fmt.Errorf("ID_STRATEGY: unknown strategy %q", c.App.IDStrategy))
	}

	if c.App.IDRandomMax <= 0 {
		errs = append(errs, errors.New("ID_RANDOM_MAX must be positive"))
	}
	if c.App.IDMaxAttempts <= 0 {
		errs = append(errs, errors.New("ID_MAX_ATTEMPTS must be positive"))
	}
	if c.Store.OperationTimeout <= 0 {
		errs = append(errs, errors.New("STORE_OPERATION_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string in URL form,
// accepted by both pgxpool and the migration driver
func (c *DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisAddr returns the Redis address in host:port format
func (c *RedisConfig) RedisAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
