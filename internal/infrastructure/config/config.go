// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback, .env honoured)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	mode := cfg.Marketplace.Mode
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Marketplace modes
const (
	ModeMock    = "mock"
	ModeSandbox = "sandbox"
	ModeProd    = "prod"
)

// DefaultScope is the read-only fulfillment scope requested when none is configured.
const DefaultScope = "https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly"

// Config represents the entire application configuration
type Config struct {
	Marketplace   MarketplaceConfig   `yaml:"marketplace"`
	Storage       StorageConfig       `yaml:"storage"`
	Redis         RedisConfig         `yaml:"redis"`
	Sync          SyncConfig          `yaml:"sync"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MarketplaceConfig selects and configures the marketplace client
type MarketplaceConfig struct {
	Mode              string        `yaml:"mode" envconfig:"MARKETPLACE_MODE" default:"mock"`
	ClientID          string        `yaml:"client_id" envconfig:"EBAY_CLIENT_ID"`
	ClientSecret      string        `yaml:"client_secret" envconfig:"EBAY_CLIENT_SECRET"`
	RuName            string        `yaml:"ru_name" envconfig:"EBAY_RU_NAME"`
	Scopes            []string      `yaml:"scopes" envconfig:"EBAY_SCOPES"`
	PageSize          int           `yaml:"page_size" envconfig:"EBAY_PAGE_SIZE" default:"50"`
	RetryDelay        time.Duration `yaml:"retry_delay" envconfig:"EBAY_RETRY_DELAY" default:"500ms"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"EBAY_REQUESTS_PER_SECOND" default:"5"`
	MockAuthorizeURL  string        `yaml:"mock_authorize_url" envconfig:"MOCK_AUTHORIZE_URL" default:"http://localhost:3000/mock/ebay/authorize"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"DB_PATH" default:"order_sync.db"`
}

// RedisConfig enables the redis-backed lease and OAuth state store
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB" default:"0"`
}

// SyncConfig holds sync engine defaults
type SyncConfig struct {
	DefaultWindowDays int           `yaml:"default_window_days" envconfig:"SYNC_WINDOW_DAYS" default:"90"`
	RefreshAhead      time.Duration `yaml:"refresh_ahead" envconfig:"SYNC_REFRESH_AHEAD" default:"60s"`
	StateTTL          time.Duration `yaml:"state_ttl" envconfig:"OAUTH_STATE_TTL" default:"10m"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port" envconfig:"PORT" default:"4000"`
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${EBAY_CLIENT_SECRET})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
// A .env file in the working directory is loaded first if present.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables.
// If both fail, the built-in defaults are returned.
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	if cfg, err := LoadFromEnv(); err == nil {
		return cfg
	}
	return Defaults()
}

// Defaults returns a config with every default filled in
func Defaults() *Config {
	cfg := &Config{
		Marketplace: MarketplaceConfig{
			Mode:              ModeMock,
			PageSize:          50,
			RetryDelay:        500 * time.Millisecond,
			RequestsPerSecond: 5,
			MockAuthorizeURL:  "http://localhost:3000/mock/ebay/authorize",
		},
		Storage: StorageConfig{DatabasePath: "order_sync.db"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Sync: SyncConfig{
			DefaultWindowDays: 90,
			RefreshAhead:      60 * time.Second,
			StateTTL:          10 * time.Minute,
		},
		Server: ServerConfig{
			Port:           4000,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Marketplace.Scopes) == 0 {
		c.Marketplace.Scopes = []string{DefaultScope}
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Marketplace.Mode {
	case ModeMock:
	case ModeSandbox, ModeProd:
		if c.Marketplace.ClientID == "" || c.Marketplace.ClientSecret == "" || c.Marketplace.RuName == "" {
			return fmt.Errorf("marketplace mode %q requires client_id, client_secret and ru_name", c.Marketplace.Mode)
		}
	default:
		return fmt.Errorf("unknown marketplace mode %q", c.Marketplace.Mode)
	}
	if c.Marketplace.PageSize <= 0 {
		return fmt.Errorf("marketplace.page_size must be positive, got %d", c.Marketplace.PageSize)
	}
	if c.Sync.DefaultWindowDays <= 0 {
		return fmt.Errorf("sync.default_window_days must be positive, got %d", c.Sync.DefaultWindowDays)
	}
	return nil
}

// IsLive reports whether the live marketplace client should be used
func (m MarketplaceConfig) IsLive() bool {
	return m.Mode == ModeSandbox || m.Mode == ModeProd
}
