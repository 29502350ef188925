// Package config provides configuration management for the tangleopt core.
package config

import (
	"bytes"
	"os"

	"github.com/spf13/viper"

	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
)

// Config holds all configuration for the solve pipeline.
type Config struct {
	Solve  SolveConfig  `mapstructure:"solve"`
	Solver SolverConfig `mapstructure:"solver"`
	Log    LogConfig    `mapstructure:"log"`
}

// SolveConfig holds the instance-construction parameters of spec §6's solve
// invocation record.
type SolveConfig struct {
	PaddingFraction float64 `mapstructure:"padding_fraction"`
	LeaderType      string  `mapstructure:"leader_type"` // "s" or "po"
	PoGap           float64 `mapstructure:"po_gap"`
	ConnectBy       string  `mapstructure:"connect_by"`
	DrawBoxSize     float64 `mapstructure:"draw_box_size"`
}

// SolverConfig holds MILP oracle tuning.
type SolverConfig struct {
	Backend        string `mapstructure:"backend"` // "branch_and_bound" or "enumerate"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path, falling back to
// defaults if the file is absent.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tangleopt")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to read config file", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from raw content, useful for testing.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to read config", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solve.padding_fraction", 0.1)
	v.SetDefault("solve.leader_type", "s")
	v.SetDefault("solve.po_gap", 0.0)
	v.SetDefault("solve.connect_by", "")
	v.SetDefault("solve.draw_box_size", 100.0)

	v.SetDefault("solver.backend", "branch_and_bound")
	v.SetDefault("solver.timeout_seconds", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.format", "text")
}

// Validate checks the configuration for spec §7 ConfigInvalid conditions:
// unknown leader type, padding out of range, negative po_gap.
func (c *Config) Validate() error {
	if c.Solve.LeaderType != "s" && c.Solve.LeaderType != "po" {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown leader type %q, must be \"s\" or \"po\"", c.Solve.LeaderType)
	}
	if c.Solve.PaddingFraction < 0 || c.Solve.PaddingFraction > 1 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "padding_fraction must be in [0,1], got %v", c.Solve.PaddingFraction)
	}
	if c.Solve.PoGap < 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "po_gap must be >= 0, got %v", c.Solve.PoGap)
	}
	if c.Solver.Backend != "branch_and_bound" && c.Solver.Backend != "enumerate" {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown solver backend %q", c.Solver.Backend)
	}
	if c.Solver.TimeoutSeconds < 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "timeout_seconds must be >= 0, got %d", c.Solver.TimeoutSeconds)
	}
	return nil
}
