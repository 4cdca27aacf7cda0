package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Data       DataConfig                `mapstructure:"data"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Log        LogConfig                 `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// BacktestConfig holds engine defaults used when a request does not override them.
type BacktestConfig struct {
	StartingCash float64       `mapstructure:"starting_cash"`
	WholeShares  bool          `mapstructure:"whole_shares"`
	Interval     string        `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DataConfig selects the history provider.
type DataConfig struct {
	Provider string        `mapstructure:"provider"` // yahoo, alpaca or parquet
	Alpaca   AlpacaConfig  `mapstructure:"alpaca"`
	Parquet  ParquetConfig `mapstructure:"parquet"`
	Cache    CacheConfig   `mapstructure:"cache"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Feed      string `mapstructure:"feed"`
}

type ParquetConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig controls caching of fetched history in archive storage.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"` // "localfs", "s3" or "sqlite"
	Path   string       `mapstructure:"path"` // For localfs
	S3     S3Config     `mapstructure:"s3"`   // For S3
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// StrategyConfig overrides the builtin defaults of a named strategy.
type StrategyConfig struct {
	Params map[string]any `mapstructure:"params"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from file over Defaults. An empty path loads
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Support environment variable overrides
	v.SetEnvPrefix("TRADELAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Defaults()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	if err := v.Unmarshal(cfg, decodeHook()); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// setDefaults registers scalar defaults so env overrides apply to keys
// absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.api_key", cfg.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", cfg.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", cfg.Server.MaxJobs)
	v.SetDefault("backtest.starting_cash", cfg.Backtest.StartingCash)
	v.SetDefault("backtest.whole_shares", cfg.Backtest.WholeShares)
	v.SetDefault("backtest.interval", cfg.Backtest.Interval)
	v.SetDefault("backtest.timeout", cfg.Backtest.Timeout.String())
	v.SetDefault("data.provider", cfg.Data.Provider)
	v.SetDefault("data.alpaca.api_key", "")
	v.SetDefault("data.alpaca.api_secret", "")
	v.SetDefault("data.alpaca.base_url", "")
	v.SetDefault("data.alpaca.feed", cfg.Data.Alpaca.Feed)
	v.SetDefault("data.parquet.dir", cfg.Data.Parquet.Dir)
	v.SetDefault("data.cache.enabled", cfg.Data.Cache.Enabled)
	v.SetDefault("data.cache.ttl", cfg.Data.Cache.TTL.String())
	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.sqlite.path", cfg.Storage.SQLite.Path)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.development", cfg.Log.Development)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Backtest: BacktestConfig{
			StartingCash: 10000,
			Interval:     "1d",
			Timeout:      2 * time.Minute,
		},
		Data: DataConfig{
			Provider: "yahoo",
			Alpaca:   AlpacaConfig{Feed: "iex"},
			Parquet:  ParquetConfig{Dir: "data/bars"},
			Cache: CacheConfig{
				Enabled: false,
				TTL:     24 * time.Hour,
			},
		},
		Storage: StorageConfig{
			Type:   "localfs",
			Path:   "data/cache",
			SQLite: SQLiteConfig{Path: "data/cache.db"},
		},
		Strategies: map[string]StrategyConfig{},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors. Every problem found is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs error

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.JobTTLHours < 0 {
		errs = multierr.Append(errs, fmt.Errorf("job_ttl_hours cannot be negative, got %d", c.Server.JobTTLHours))
	}
	if c.Server.MaxJobs < 0 {
		errs = multierr.Append(errs, fmt.Errorf("max_jobs cannot be negative, got %d", c.Server.MaxJobs))
	}

	// Backtest validation
	if math.IsNaN(c.Backtest.StartingCash) || math.IsInf(c.Backtest.StartingCash, 0) || c.Backtest.StartingCash < 0 {
		errs = multierr.Append(errs, fmt.Errorf("starting_cash must be a finite non-negative number, got %g", c.Backtest.StartingCash))
	}
	if c.Backtest.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("backtest timeout cannot be negative, got %s", c.Backtest.Timeout))
	}

	// Data validation
	switch c.Data.Provider {
	case "yahoo":
	case "alpaca":
		if c.Data.Alpaca.APIKey == "" || c.Data.Alpaca.APISecret == "" {
			errs = multierr.Append(errs, core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca api_key and api_secret required when provider is alpaca")))
		}
	case "parquet":
		if c.Data.Parquet.Dir == "" {
			errs = multierr.Append(errs, core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("parquet dir required when provider is parquet")))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown data provider %q", c.Data.Provider))
	}
	if c.Data.Cache.TTL < 0 {
		errs = multierr.Append(errs, fmt.Errorf("cache ttl cannot be negative, got %s", c.Data.Cache.TTL))
	}

	// Storage validation, only relevant when the cache is on
	if c.Data.Cache.Enabled {
		switch c.Storage.Type {
		case "localfs":
			if c.Storage.Path == "" {
				errs = multierr.Append(errs, fmt.Errorf("storage path required for localfs"))
			}
		case "s3":
			if c.Storage.S3.Bucket == "" {
				errs = multierr.Append(errs, fmt.Errorf("s3 bucket required for s3 storage"))
			}
		case "sqlite":
			if c.Storage.SQLite.Path == "" {
				errs = multierr.Append(errs, fmt.Errorf("sqlite path required for sqlite storage"))
			}
		default:
			errs = multierr.Append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = multierr.Append(errs, fmt.Errorf("metrics path must start with '/', got %q", c.Metrics.Path))
	}

	if errs != nil {
		return core.WrapError(core.ErrConfigInvalid, errs)
	}
	return nil
}

// StrategyParams returns the configured parameter overrides for name
func (c *Config) StrategyParams(name string) map[string]any {
	if sc, ok := c.Strategies[name]; ok {
		return sc.Params
	}
	return nil
}
