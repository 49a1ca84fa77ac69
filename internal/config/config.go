package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	v    *viper.Viper
	path string
}

// ServerConfig holds media server configuration
type ServerConfig struct {
	Type     domain.ServerType `mapstructure:"type"`      // "plex" or "jellyfin"
	URL      string            `mapstructure:"url"`       // Server URL
	APIKey   string            `mapstructure:"api_key"`   // Plex token OR Jellyfin API key
	UserID   string            `mapstructure:"user_id"`   // Jellyfin only, discovered when empty
	ClientID string            `mapstructure:"client_id"` // Generated when empty
}

// CacheConfig selects the cache backend and TTL overrides
type CacheConfig struct {
	Backend   string                   `mapstructure:"backend"` // memory, bolt, redis
	Path      string                   `mapstructure:"path"`
	RedisAddr string                   `mapstructure:"redis_addr"`
	TTL       map[string]time.Duration `mapstructure:"ttl"` // keyed by cache kind
}

// TransportConfig tunes the HTTP client used by the adapters
type TransportConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	MaxRetries    uint          `mapstructure:"max_retries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// serverKeys are bound to the environment individually so IsSet reflects env presence
var serverKeys = []string{"server.type", "server.url", "server.api_key", "server.user_id", "server.client_id"}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: cache.BackendMemory,
			Path:    defaultCachePath(),
		},
		Transport: TransportConfig{
			Timeout:       30 * time.Second,
			RatePerSecond: 20,
			Burst:         10,
			MaxRetries:    2,
		},
		Logging: LoggingConfig{
			File:       defaultLogPath(),
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "mediarr", "mediarr.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "mediarr", "mediarr.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "mediarr")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "mediarr")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "mediarr", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "mediarr", "cache")
	}
}

// LoadConfig loads configuration from file and environment.
// An empty path searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("transport.timeout", cfg.Transport.Timeout)
	v.SetDefault("transport.rate_per_second", cfg.Transport.RatePerSecond)
	v.SetDefault("transport.burst", cfg.Transport.Burst)
	v.SetDefault("transport.max_retries", cfg.Transport.MaxRetries)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. MEDIARR_SERVER_URL
	v.SetEnvPrefix("MEDIARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range serverKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.v = v
	cfg.path = path
	return cfg, nil
}

// CacheOptions converts TTL overrides into cache options. Unknown kinds are returned as an error.
func (c *Config) CacheOptions() ([]cache.Option, error) {
	var opts []cache.Option
	for name, ttl := range c.Cache.TTL {
		kind := cache.Kind(name)
		if _, ok := cache.DefaultTTLs[kind]; !ok {
			return nil, fmt.Errorf("unknown cache kind %q in cache.ttl", name)
		}
		opts = append(opts, cache.WithTTL(kind, ttl))
	}
	return opts, nil
}

// SaveServer writes the server section to the config file
func (c *Config) SaveServer(server ServerConfig) error {
	c.v.Set("server.type", string(server.Type))
	c.v.Set("server.url", server.URL)
	c.v.Set("server.api_key", server.APIKey)
	c.v.Set("server.user_id", server.UserID)
	c.v.Set("server.client_id", server.ClientID)
	c.Server = server
	return c.write()
}

// ClearServerConfig removes all server-related configuration while preserving other settings
func (c *Config) ClearServerConfig() error {
	return c.SaveServer(ServerConfig{})
}

func (c *Config) write() error {
	configFile := c.path
	if configFile == "" {
		configPath := defaultConfigPath()
		if err := os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configFile = filepath.Join(configPath, "config.yaml")
	}

	if err := c.v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if the server URL and API key are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.APIKey != ""
}

// Settings returns a provider bound to this configuration
func (c *Config) Settings() *Settings {
	return &Settings{v: c.v}
}
