// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joeyportfolio/portfolio/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSupabase = "supabase"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Realtime drivers accepted by REALTIME_DRIVER. "store" uses the store's own
// change feed.
const (
	RealtimeDriverStore = "store"
	RealtimeDriverRedis = "redis"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// TrustedProxies is a list of CIDR ranges or IPs of trusted reverse proxies.
	// If empty, X-Forwarded-For headers are ignored entirely.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// StoreConfig selects and tunes the record store.
type StoreConfig struct {
	Driver     string `mapstructure:"DRIVER" yaml:"driver"`
	SQLitePath string `mapstructure:"SQLITE_PATH" yaml:"sqlite_path"`
	// OperationTimeout bounds each store call a feedback view makes.
	OperationTimeout time.Duration `mapstructure:"OPERATION_TIMEOUT" yaml:"operation_timeout"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	MinConnections int    `mapstructure:"MIN_CONNECTIONS" yaml:"min_connections"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for pgxpool, pq and
// golang-migrate.
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

// SupabaseConfig holds the hosted project's endpoint and public key.
type SupabaseConfig struct {
	URL     string `mapstructure:"URL" yaml:"url"`
	AnonKey string `mapstructure:"ANON_KEY" yaml:"anon_key"`
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

// RealtimeConfig selects where insert notifications come from.
type RealtimeConfig struct {
	Driver       string `mapstructure:"DRIVER" yaml:"driver"`
	RedisChannel string `mapstructure:"REDIS_CHANNEL" yaml:"redis_channel"`
	BufferSize   int    `mapstructure:"BUFFER_SIZE" yaml:"buffer_size"`
}

// ContactConfig configures the optional contact relay. An empty
// ResendAPIKey keeps the contact form log-only.
type ContactConfig struct {
	ResendAPIKey string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
	FromAddress  string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	ToAddress    string `mapstructure:"TO_ADDRESS" yaml:"to_address"`
}

// ContentConfig points at the portfolio copy.
type ContentConfig struct {
	Path string `mapstructure:"PATH" yaml:"path"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server   ServerConfig   `mapstructure:"SERVER" yaml:"server"`
	Store    StoreConfig    `mapstructure:"STORE" yaml:"store"`
	Database DatabaseConfig `mapstructure:"DATABASE" yaml:"database"`
	Supabase SupabaseConfig `mapstructure:"SUPABASE" yaml:"supabase"`
	Redis    RedisConfig    `mapstructure:"REDIS" yaml:"redis"`
	Realtime RealtimeConfig `mapstructure:"REALTIME" yaml:"realtime"`
	Contact  ContactConfig  `mapstructure:"CONTACT" yaml:"contact"`
	Content  ContentConfig  `mapstructure:"CONTENT" yaml:"content"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("STORE.DRIVER", StoreDriverMemory)
	v.SetDefault("STORE.SQLITE_PATH", "portfolio.db")
	v.SetDefault("STORE.OPERATION_TIMEOUT", 15*time.Second)
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "portfolio")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 5)
	v.SetDefault("DATABASE.MIN_CONNECTIONS", 1)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("SUPABASE.URL", "")
	v.SetDefault("SUPABASE.ANON_KEY", "")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("REALTIME.DRIVER", RealtimeDriverStore)
	v.SetDefault("REALTIME.REDIS_CHANNEL", "feedback:inserts")
	v.SetDefault("REALTIME.BUFFER_SIZE", 64)
	v.SetDefault("CONTACT.RESEND_API_KEY", "")
	v.SetDefault("CONTACT.FROM_ADDRESS", "")
	v.SetDefault("CONTACT.TO_ADDRESS", "")
	v.SetDefault("CONTENT.PATH", "")
	v.SetDefault("LOG_LEVEL", "info")
}

var envBindings = [][2]string{
	// Server config
	{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
	{"SERVER.PORT", "PORT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	{"SERVER.VERSION", "SERVER_VERSION"},
	// Store config
	{"STORE.DRIVER", "STORE_DRIVER"},
	{"STORE.SQLITE_PATH", "SQLITE_PATH"},
	{"STORE.OPERATION_TIMEOUT", "STORE_OPERATION_TIMEOUT"},
	// Database config
	{"DATABASE.HOST", "DB_HOST"},
	{"DATABASE.PORT", "DB_PORT"},
	{"DATABASE.USER", "DB_USER"},
	{"DATABASE.PASSWORD", "DB_PASSWORD"},
	{"DATABASE.NAME", "DB_NAME"},
	{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
	{"DATABASE.MAX_CONNECTIONS", "DB_MAX_CONNECTIONS"},
	// Supabase config
	{"SUPABASE.URL", "SUPABASE_URL"},
	{"SUPABASE.ANON_KEY", "SUPABASE_ANON_KEY"},
	// Redis config
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	// Realtime config
	{"REALTIME.DRIVER", "REALTIME_DRIVER"},
	{"REALTIME.REDIS_CHANNEL", "REALTIME_REDIS_CHANNEL"},
	// Contact config
	{"CONTACT.RESEND_API_KEY", "CONTACT_RESEND_API_KEY"},
	{"CONTACT.FROM_ADDRESS", "CONTACT_FROM_ADDRESS"},
	{"CONTACT.TO_ADDRESS", "CONTACT_TO_ADDRESS"},
	// Content
	{"CONTENT.PATH", "CONTENT_PATH"},
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"store_driver", v.GetString("STORE.DRIVER"),
		"realtime_driver", v.GetString("REALTIME.DRIVER"),
		"allowed_origins", v.GetStringSlice("SERVER.ALLOWED_ORIGINS"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	switch cfg.Server.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", cfg.Server.Environment)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	switch cfg.Store.Driver {
	case StoreDriverPostgres:
		if err := validateDatabase(&cfg.Database); err != nil {
			return err
		}
	case StoreDriverSupabase:
		if cfg.Supabase.URL == "" {
			return fmt.Errorf("supabase URL is required")
		}
		if _, err := url.ParseRequestURI(cfg.Supabase.URL); err != nil {
			return fmt.Errorf("invalid supabase URL: %w", err)
		}
		if cfg.Supabase.AnonKey == "" {
			return fmt.Errorf("supabase anon key is required")
		}
	case StoreDriverSQLite:
		if cfg.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case StoreDriverMemory:
		if cfg.IsProduction() {
			log.Warn("Memory store selected in production. Feedback will not survive a restart.")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.OperationTimeout < 0 {
		return fmt.Errorf("store operation timeout must not be negative")
	}

	switch cfg.Realtime.Driver {
	case RealtimeDriverStore:
	case RealtimeDriverRedis:
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}
		if cfg.Redis.Password == "" && cfg.Redis.UseTLS {
			log.Warn("Redis password is not set, but TLS is enabled. Ensure this is correct for your Redis provider.")
		}
	default:
		return fmt.Errorf("unknown realtime driver %q", cfg.Realtime.Driver)
	}
	if cfg.Realtime.BufferSize <= 0 {
		return fmt.Errorf("realtime buffer size must be positive")
	}

	if cfg.Contact.ResendAPIKey != "" {
		if cfg.Contact.FromAddress == "" || cfg.Contact.ToAddress == "" {
			return fmt.Errorf("contact from and to addresses are required when the resend relay is enabled")
		}
	}

	return nil
}

func validateDatabase(db *DatabaseConfig) error {
	if db.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if db.User == "" {
		return fmt.Errorf("database user is required")
	}
	if db.Password == "" {
		logger.GetLogger().Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}
	if db.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if db.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	if _, err := time.ParseDuration(db.ConnMaxLife); err != nil {
		return fmt.Errorf("invalid database connection max life: %w", err)
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
