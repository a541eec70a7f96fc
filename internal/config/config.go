package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/strategy"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. REPLAY_SERVER_PORT
const EnvPrefix = "REPLAY"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Data     DataConfig     `mapstructure:"data"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Workers  int            `mapstructure:"workers"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// BacktestConfig holds the default run parameters. Command line flags
// override them per run.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Strategy       string  `mapstructure:"strategy"` // "crossover" or "threshold"

	// Crossover
	ShortWindow int `mapstructure:"short_window"`
	LongWindow  int `mapstructure:"long_window"`

	// Threshold
	Signal     string   `mapstructure:"signal"`
	EntryPrice *float64 `mapstructure:"entry_price"`
	ExitPrice  *float64 `mapstructure:"exit_price"`
}

// DataConfig locates historical prices.
type DataConfig struct {
	Source string `mapstructure:"source"` // "csv" or "parquet"
	Path   string `mapstructure:"path"`
}

// ArchiveConfig selects where finished results are kept.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "none", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	APIKey         string `mapstructure:"api_key"`
	MaxResults     int    `mapstructure:"max_results"`
	ResultTTLHours int    `mapstructure:"result_ttl_hours"`
	// MaxBodyBytes caps inline price series posted to the API
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. An empty path yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys the
// config file never mentions.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("backtest.initial_capital", d.Backtest.InitialCapital)
	v.SetDefault("backtest.strategy", d.Backtest.Strategy)
	v.SetDefault("backtest.short_window", d.Backtest.ShortWindow)
	v.SetDefault("backtest.long_window", d.Backtest.LongWindow)
	v.SetDefault("backtest.signal", d.Backtest.Signal)
	// No default: an unset price must stay nil
	_ = v.BindEnv("backtest.entry_price")
	_ = v.BindEnv("backtest.exit_price")

	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.path", d.Data.Path)

	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("archive.s3.bucket", d.Archive.S3.Bucket)
	v.SetDefault("archive.s3.endpoint", d.Archive.S3.Endpoint)
	v.SetDefault("archive.s3.region", d.Archive.S3.Region)
	v.SetDefault("archive.s3.access_key", d.Archive.S3.AccessKey)
	v.SetDefault("archive.s3.secret_key", d.Archive.S3.SecretKey)
	v.SetDefault("archive.s3.prefix", d.Archive.S3.Prefix)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.max_results", d.Server.MaxResults)
	v.SetDefault("server.result_ttl_hours", d.Server.ResultTTLHours)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("workers", d.Workers)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Backtest: BacktestConfig{
			InitialCapital: 10000,
			Strategy:       string(strategy.KindCrossover),
			ShortWindow:    10,
			LongWindow:     30,
			Signal:         string(core.ActionBuy),
		},
		Data: DataConfig{
			Source: "csv",
			Path:   "data",
		},
		Archive: ArchiveConfig{
			Type: "none",
			Path: "results",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			MaxResults:     100,
			ResultTTLHours: 24,
			MaxBodyBytes:   8 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Workers: 4,
	}
}

// StrategyConfig builds the configured strategy. Unset threshold prices stay
// nil so the engine can report them as missing inputs.
func (b BacktestConfig) StrategyConfig() (strategy.Config, error) {
	spec := strategy.Spec{Kind: strategy.Kind(strings.ToLower(b.Strategy))}
	switch spec.Kind {
	case strategy.KindCrossover:
		spec.Crossover = &strategy.Crossover{ShortWindow: b.ShortWindow, LongWindow: b.LongWindow}
	case strategy.KindThreshold:
		spec.Threshold = &strategy.Threshold{
			Signal:     core.Action(b.Signal),
			EntryPrice: b.EntryPrice,
			ExitPrice:  b.ExitPrice,
		}
	}
	return spec.Config()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxResults < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_results must be at least 1, got %d", c.Server.MaxResults))
	}
	if c.Server.ResultTTLHours < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("result_ttl_hours cannot be negative, got %d", c.Server.ResultTTLHours))
	}
	if c.Server.MaxBodyBytes < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_body_bytes cannot be negative, got %d", c.Server.MaxBodyBytes))
	}

	if c.Workers < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path))
	}

	switch c.Data.Source {
	case "csv", "parquet":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data source %q", c.Data.Source))
	}

	// Archive validation - if enabled, check the backend is located
	switch c.Archive.Type {
	case "none", "":
	case "localfs":
		if c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when type is localfs"))
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}

	if !(c.Backtest.InitialCapital > 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %v", c.Backtest.InitialCapital))
	}
	if c.Backtest.Strategy != "" {
		sc, err := c.Backtest.StrategyConfig()
		if err != nil {
			return err
		}
		if err := sc.Validate(); err != nil {
			return err
		}
	}

	return nil
}
