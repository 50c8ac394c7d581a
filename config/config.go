// Package config handles loading and validation of application configuration
// from environment variables and an optional YAML FX rate table.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY" yaml:"jwt_secret_key"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Driver         string `mapstructure:"DRIVER" yaml:"driver"`
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
	RunMigrations  bool   `mapstructure:"RUN_MIGRATIONS" yaml:"run_migrations"`
}

// URL returns a postgres:// connection URL suitable for pgxpool and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// EventServiceConfig holds configuration for the Redis-based domain event publisher.
type EventServiceConfig struct {
	// Timeout for publishing a single event to Redis (in seconds)
	PublishTimeoutSeconds int `mapstructure:"PUBLISH_TIMEOUT_SECONDS" yaml:"publish_timeout_seconds"`
}

// WorkerPoolConfig holds configuration for the background job worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	QueueSize              int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// FXConfig configures exchange rate lookup.
type FXConfig struct {
	// EODAPIURL is the end-of-day rates endpoint.
	EODAPIURL      string `mapstructure:"EOD_API_URL" yaml:"eod_api_url"`
	APIKey         string `mapstructure:"API_KEY" yaml:"api_key"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
	CacheEnabled   bool   `mapstructure:"CACHE_ENABLED" yaml:"cache_enabled"`
	// RatesFile is an optional YAML file of predefined rates used when an event has none.
	RatesFile string `mapstructure:"RATES_FILE" yaml:"rates_file"`
}

// PaymentConfig configures the payment gateway.
type PaymentConfig struct {
	DefaultProvider string `mapstructure:"DEFAULT_PROVIDER" yaml:"default_provider"`
	// CurrencyProviders maps currency codes to provider names, e.g. "JPY=paypay,KRW=toss".
	CurrencyProviders string `mapstructure:"CURRENCY_PROVIDERS" yaml:"currency_providers"`
	APIURL            string `mapstructure:"API_URL" yaml:"api_url"`
	APIKey            string `mapstructure:"API_KEY" yaml:"api_key"`
	TimeoutSeconds    int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
	ReturnURL         string `mapstructure:"RETURN_URL" yaml:"return_url"`
	// AllowNonProdRealGateway lets listed internal testers reach real gateways outside production.
	AllowNonProdRealGateway bool     `mapstructure:"ALLOW_NON_PROD_REAL_GATEWAY" yaml:"allow_non_prod_real_gateway"`
	InternalTesters         []string `mapstructure:"INTERNAL_TESTERS" yaml:"internal_testers"`
}

// ProviderForCurrency returns the configured provider for a currency, or the default.
func (c *PaymentConfig) ProviderForCurrency(currency string) string {
	for _, pair := range strings.Split(c.CurrencyProviders, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], currency) {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.DefaultProvider
}

// IsInternalTester reports whether userID may use real gateways outside production.
func (c *PaymentConfig) IsInternalTester(userID string) bool {
	for _, tester := range c.InternalTesters {
		if tester == userID {
			return true
		}
	}
	return false
}

// Config aggregates all application configuration sections.
type Config struct {
	Server       ServerConfig       `mapstructure:"SERVER" yaml:"server"`
	Database     DatabaseConfig     `mapstructure:"DATABASE" yaml:"database"`
	Redis        RedisConfig        `mapstructure:"REDIS" yaml:"redis"`
	EventService EventServiceConfig `mapstructure:"EVENT_SERVICE" yaml:"event_service"`
	WorkerPool   WorkerPoolConfig   `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
	FX           FXConfig           `mapstructure:"FX" yaml:"fx"`
	Payment      PaymentConfig      `mapstructure:"PAYMENT" yaml:"payment"`
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// applies defaults, unmarshals and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("DATABASE.DRIVER", DriverPostgres)
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "settlements_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 10)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("DATABASE.RUN_MIGRATIONS", true)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", 5)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 4)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 500)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 15)
	v.SetDefault("FX.EOD_API_URL", "")
	v.SetDefault("FX.TIMEOUT_SECONDS", 10)
	v.SetDefault("FX.CACHE_ENABLED", true)
	v.SetDefault("FX.RATES_FILE", "")
	v.SetDefault("PAYMENT.DEFAULT_PROVIDER", "stripe")
	v.SetDefault("PAYMENT.CURRENCY_PROVIDERS", "JPY=paypay")
	v.SetDefault("PAYMENT.TIMEOUT_SECONDS", 15)
	v.SetDefault("PAYMENT.ALLOW_NON_PROD_REAL_GATEWAY", false)
	v.SetDefault("PAYMENT.INTERNAL_TESTERS", []string{})

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.VERSION", "VERSION"},
		{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
		// Database config
		{"DATABASE.DRIVER", "DB_DRIVER"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"DATABASE.RUN_MIGRATIONS", "DB_RUN_MIGRATIONS"},
		// Redis config
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Event service config
		{"EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", "EVENT_SERVICE_PUBLISH_TIMEOUT_SECONDS"},
		// WorkerPool config
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
		// FX config
		{"FX.EOD_API_URL", "FX_EOD_API_URL"},
		{"FX.API_KEY", "FX_API_KEY"},
		{"FX.TIMEOUT_SECONDS", "FX_TIMEOUT_SECONDS"},
		{"FX.CACHE_ENABLED", "FX_CACHE_ENABLED"},
		{"FX.RATES_FILE", "FX_RATES_FILE"},
		// Payment config
		{"PAYMENT.DEFAULT_PROVIDER", "PAYMENT_DEFAULT_PROVIDER"},
		{"PAYMENT.CURRENCY_PROVIDERS", "PAYMENT_CURRENCY_PROVIDERS"},
		{"PAYMENT.API_URL", "PAYMENT_API_URL"},
		{"PAYMENT.API_KEY", "PAYMENT_API_KEY"},
		{"PAYMENT.TIMEOUT_SECONDS", "PAYMENT_TIMEOUT_SECONDS"},
		{"PAYMENT.RETURN_URL", "PAYMENT_RETURN_URL"},
		{"PAYMENT.ALLOW_NON_PROD_REAL_GATEWAY", "PAYMENT_ALLOW_NON_PROD_REAL_GATEWAY"},
		{"PAYMENT.INTERNAL_TESTERS", "PAYMENT_INTERNAL_TESTERS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"db_url", logger.MaskConnectionString(cfg.Database.URL()),
		"redis_address", cfg.Redis.Address,
		"fx_eod_configured", cfg.FX.EODAPIURL != "",
		"payment_default_provider", cfg.Payment.DefaultProvider,
		"payment_api_key", logger.MaskSensitiveString(cfg.Payment.APIKey, 4, 2),
	)
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	switch cfg.Server.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", cfg.Server.Environment)
	}
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.JwtSecretKey) < minJWTLength {
		return fmt.Errorf("JWT secret key must be at least %d characters long", minJWTLength)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	switch cfg.Database.Driver {
	case DriverMemory:
		if cfg.Server.Environment == EnvProduction {
			return fmt.Errorf("memory storage driver is not allowed in production")
		}
		log.Warn("Using in-memory storage; data is lost on restart")
	case DriverPostgres:
		if cfg.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if cfg.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if cfg.Database.Password == "" {
			log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
		}
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if cfg.EventService.PublishTimeoutSeconds <= 0 {
		return fmt.Errorf("event service publish timeout must be positive")
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	if cfg.FX.EODAPIURL != "" {
		if _, err := url.ParseRequestURI(cfg.FX.EODAPIURL); err != nil {
			return fmt.Errorf("invalid FX EOD API URL: %w", err)
		}
	}
	if cfg.FX.TimeoutSeconds <= 0 {
		return fmt.Errorf("fx timeout must be positive")
	}

	if cfg.Payment.DefaultProvider == "" {
		return fmt.Errorf("payment default provider is required")
	}
	if cfg.Payment.TimeoutSeconds <= 0 {
		return fmt.Errorf("payment timeout must be positive")
	}
	if cfg.Payment.APIURL != "" {
		if _, err := url.ParseRequestURI(cfg.Payment.APIURL); err != nil {
			return fmt.Errorf("invalid payment API URL: %w", err)
		}
	} else if cfg.Server.Environment == EnvProduction {
		log.Warn("Payment API URL not set; real gateway requests will fail with a provider error")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
