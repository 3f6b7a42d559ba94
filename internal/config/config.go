package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig holds Lemmy HTTP client settings.
type APIConfig struct {
	DefaultInstance string        `mapstructure:"default_instance"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryCount      int           `mapstructure:"retry_count"`
	RetryWait       time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait    time.Duration `mapstructure:"retry_max_wait"`
	UserAgent       string        `mapstructure:"user_agent"`
	QPS             float64       `mapstructure:"qps"`
	Burst           int           `mapstructure:"burst"`
}

// FeedConfig holds home feed defaults.
type FeedConfig struct {
	Sort        string `mapstructure:"sort"`
	Listing     string `mapstructure:"listing"`
	PageSize    int    `mapstructure:"page_size"`
	AutoRefresh string `mapstructure:"auto_refresh"`
}

// LogConfig holds log file settings.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and env. Env var overrides use prefix JERBOA_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("JERBOA_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "jerboa"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("JERBOA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "jerboa", "jerboa.db"))
	v.SetDefault("api.default_instance", "lemmy.ml")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.retry_count", 2)
	v.SetDefault("api.retry_wait", 300*time.Millisecond)
	v.SetDefault("api.retry_max_wait", 2*time.Second)
	v.SetDefault("api.user_agent", "jerboa-tui")
	v.SetDefault("api.qps", 5.0)
	v.SetDefault("api.burst", 10)
	v.SetDefault("feed.sort", "Active")
	v.SetDefault("feed.listing", "Local")
	v.SetDefault("feed.page_size", 20)
	v.SetDefault("feed.auto_refresh", "")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "jerboa", "jerboa.log"))
	v.SetDefault("log.level", "info")
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	// SetConfigFile with a missing path surfaces as a plain fs error.
	return os.IsNotExist(err)
}

// Save writes the provided config to disk, creating the config directory if needed.
// Session tokens never live here; they are kept sealed in the accounts table.
func Save(cfg Config) error {
	path := os.Getenv("JERBOA_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "jerboa", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("api.default_instance", cfg.API.DefaultInstance)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("api.retry_count", cfg.API.RetryCount)
	v.Set("api.retry_wait", cfg.API.RetryWait.String())
	v.Set("api.retry_max_wait", cfg.API.RetryMaxWait.String())
	v.Set("api.user_agent", cfg.API.UserAgent)
	v.Set("api.qps", cfg.API.QPS)
	v.Set("api.burst", cfg.API.Burst)
	v.Set("feed.sort", cfg.Feed.Sort)
	v.Set("feed.listing", cfg.Feed.Listing)
	v.Set("feed.page_size", cfg.Feed.PageSize)
	v.Set("feed.auto_refresh", cfg.Feed.AutoRefresh)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)

	tmp := path + ".tmp.toml"
	if err := v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
