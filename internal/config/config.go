package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/newthinker/quantlab/internal/core"
)

type Config struct {
	Data       DataConfig                `mapstructure:"data"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Runner     RunnerConfig              `mapstructure:"runner"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Archive    ArchiveConfig             `mapstructure:"archive"`
}

// DataConfig locates the bar dataset on disk.
type DataConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // "csv" or "parquet"
}

// BacktestConfig holds the capital defaults applied to every run.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Commission     float64 `mapstructure:"commission"`
	Benchmark      string  `mapstructure:"benchmark"` // instrument code, optional
}

// StrategyConfig enables one strategy variant with its parameters.
type StrategyConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Params  map[string]float64 `mapstructure:"params"`
}

// RunnerConfig holds batch runner settings.
type RunnerConfig struct {
	Workers int `mapstructure:"workers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ArchiveConfig selects the result archive backend.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
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

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
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

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Data: DataConfig{
			Dir:    "./data",
			Format: "csv",
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			Commission:     0.0003,
		},
		Runner: RunnerConfig{
			Workers: 4,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}
	if c.Backtest.Commission < 0 || c.Backtest.Commission >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission must be in [0, 1), got %f", c.Backtest.Commission))
	}
	if c.Runner.Workers < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("runner workers must be at least 1, got %d", c.Runner.Workers))
	}

	switch c.Data.Format {
	case "", "csv", "parquet":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data format must be csv or parquet, got %q", c.Data.Format))
	}

	switch c.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive s3 bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
	}

	return nil
}
