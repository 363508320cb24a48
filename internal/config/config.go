// Package config handles configuration loading for teamflow.
// It supports XDG config paths, project-level overrides, and environment
// variables.
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

// Config holds application-level settings.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// DefaultsConfig holds default values for teams.
type DefaultsConfig struct {
	// Provider is the LLM backend used when a team file does not set one.
	Provider string `mapstructure:"provider"`
	// Model is the default model identifier.
	Model string `mapstructure:"model"`
	// MaxIterations is the default ReAct budget.
	MaxIterations int `mapstructure:"max_iterations"`
	// LogLevel is surfaced in the cleaned state.
	LogLevel string `mapstructure:"log_level"`
}

// TimeoutsConfig holds per-call deadlines.
type TimeoutsConfig struct {
	// LLMCall bounds each provider call.
	LLMCall time.Duration `mapstructure:"llm_call"`
	// ToolCall bounds each tool invocation.
	ToolCall time.Duration `mapstructure:"tool_call"`
}

// DebugConfig holds diagnostic logging settings.
type DebugConfig struct {
	// LogPath is the debug log file; empty disables debug logging.
	LogPath string `mapstructure:"log_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Provider:      "openai",
			Model:         "gpt-4o",
			MaxIterations: 10,
			LogLevel:      "info",
		},
		Timeouts: TimeoutsConfig{
			LLMCall:  2 * time.Minute,
			ToolCall: time.Minute,
		},
	}
}

// Load reads configuration from the XDG config directory and the current
// working directory, with TEAMFLOW_-prefixed environment overrides. Missing
// config files are not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "teamflow"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath(".teamflow")

	v.SetEnvPrefix("TEAMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("defaults.provider", cfg.Defaults.Provider)
	v.SetDefault("defaults.model", cfg.Defaults.Model)
	v.SetDefault("defaults.max_iterations", cfg.Defaults.MaxIterations)
	v.SetDefault("defaults.log_level", cfg.Defaults.LogLevel)
	v.SetDefault("timeouts.llm_call", cfg.Timeouts.LLMCall)
	v.SetDefault("timeouts.tool_call", cfg.Timeouts.ToolCall)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
