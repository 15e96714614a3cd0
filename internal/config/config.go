package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	API      APIConfig      `mapstructure:"api"`
	Networks NetworksConfig `mapstructure:"networks"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Dao      DaoConfig      `mapstructure:"dao"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// APIConfig holds settings for calls to the chain indexing API.
type APIConfig struct {
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"`
	RateLimitRPS       float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	HealthCheckTimeout time.Duration `mapstructure:"health_check_timeout"`
}

// NetworksConfig overrides the API base URL per network. Empty keeps the public endpoint.
type NetworksConfig struct {
	MainnetURL string `mapstructure:"mainnet_url"`
	TestnetURL string `mapstructure:"testnet_url"`
}

// CacheConfig holds settings for the caching layer.
type CacheConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	BlockTTL          time.Duration `mapstructure:"block_ttl"`
	HistoryTTL        time.Duration `mapstructure:"history_ttl"`
}

// CatalogConfig points at an optional YAML file of known DAOs.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// WatcherConfig holds settings for the chain-tip event stream.
type WatcherConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Networks       []string      `mapstructure:"networks"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// DaoConfig holds settings for DAO reads.
type DaoConfig struct {
	MaxProposals       int    `mapstructure:"max_proposals"`
	HistoryPoints      int    `mapstructure:"history_points"`
	HistoryStepBlocks  uint64 `mapstructure:"history_step_blocks"`
	HistoryConcurrency int    `mapstructure:"history_concurrency"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Printf("Warning: Config file not found in %s or '.', using defaults/env vars\n", configPath)
	}

	v.SetEnvPrefix("DAO_READER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stacks-dao-reader")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("api.request_timeout", "15s")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_base_delay", "1s")
	v.SetDefault("api.rate_limit_rps", 0)
	v.SetDefault("api.rate_limit_burst", 1)
	v.SetDefault("api.health_check_timeout", "5s")
	v.SetDefault("networks.mainnet_url", "")
	v.SetDefault("networks.testnet_url", "")
	v.SetDefault("cache.default_expiration", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.block_ttl", "24h")
	v.SetDefault("cache.history_ttl", "10m")
	v.SetDefault("catalog.path", "")
	v.SetDefault("watcher.enabled", false)
	v.SetDefault("watcher.networks", []string{"mainnet"})
	v.SetDefault("watcher.stale_after", "2m")
	v.SetDefault("watcher.reconnect_delay", "5s")
	v.SetDefault("dao.max_proposals", 20)
	v.SetDefault("dao.history_points", 6)
	v.SetDefault("dao.history_step_blocks", 4320)
	v.SetDefault("dao.history_concurrency", 3)
}

func (c APIConfig) GetRequestTimeout() time.Duration {
	return c.RequestTimeout
}

func (c APIConfig) GetRetryBaseDelay() time.Duration {
	return c.RetryBaseDelay
}

func (c APIConfig) GetHealthCheckTimeout() time.Duration {
	return c.HealthCheckTimeout
}

func (c CacheConfig) GetDefaultExpiration() time.Duration {
	return c.DefaultExpiration
}

func (c CacheConfig) GetCleanupInterval() time.Duration {
	return c.CleanupInterval
}

func (c CacheConfig) GetBlockTTL() time.Duration {
	return c.BlockTTL
}

func (c CacheConfig) GetHistoryTTL() time.Duration {
	return c.HistoryTTL
}

func (c WatcherConfig) GetStaleAfter() time.Duration {
	return c.StaleAfter
}

func (c WatcherConfig) GetReconnectDelay() time.Duration {
	return c.ReconnectDelay
}
