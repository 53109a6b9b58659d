// Package config handles configuration loading and management for relay.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for relay.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Paths     PathsConfig     `mapstructure:"paths"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// ExecutionConfig holds step-loop settings.
type ExecutionConfig struct {
	// MaxRetries is the hard ceiling on attempts per step.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the fixed pause between attempts.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// MaxSteps bounds the decomposition length.
	MaxSteps int `mapstructure:"max_steps"`
	// Workspace is the sandbox directory tools operate in.
	Workspace string `mapstructure:"workspace"`
}

// MemoryConfig holds confidence memory tuning.
type MemoryConfig struct {
	// MinConfidence is the recall floor for candidate memories.
	MinConfidence float64 `mapstructure:"min_confidence"`
	// RecallLimit caps how many memories a recall returns.
	RecallLimit int `mapstructure:"recall_limit"`
	// RecallThreshold is the assessment confidence below which memory is
	// consulted even without an explicit request.
	RecallThreshold float64 `mapstructure:"recall_threshold"`
}

// RoutingConfig holds router settings.
type RoutingConfig struct {
	// TablePath points at a YAML routing table overriding the built-in one.
	TablePath string `mapstructure:"table_path"`
	// WatchTable enables hot reload of the table file.
	WatchTable bool `mapstructure:"watch_table"`
}

// PathsConfig holds storage locations.
type PathsConfig struct {
	// StateDB is the task/step database path. Empty selects the project
	// default.
	StateDB string `mapstructure:"state_db"`
	// MemoryDB is the memory database path. Empty selects the project default.
	MemoryDB string `mapstructure:"memory_db"`
	// TracesDir is where terminal-task traces are exported.
	TracesDir string `mapstructure:"traces_dir"`
}

// TUIConfig holds progress display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.relay.yaml in current directory or parent)
// 3. User config (~/.config/relay/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "RELAY_MODEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("execution.max_retries", 3)
	v.SetDefault("execution.retry_backoff", "1s")
	v.SetDefault("execution.max_steps", 10)
	v.SetDefault("execution.workspace", "workspace")

	v.SetDefault("memory.min_confidence", 0.3)
	v.SetDefault("memory.recall_limit", 3)
	v.SetDefault("memory.recall_threshold", 0.7)

	v.SetDefault("routing.table_path", "")
	v.SetDefault("routing.watch_table", false)

	v.SetDefault("paths.state_db", "")
	v.SetDefault("paths.memory_db", "")
	v.SetDefault("paths.traces_dir", "traces")

	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for relay.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "relay")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "relay")
	}
	return filepath.Join(home, ".config", "relay")
}

// findProjectConfig searches for .relay.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".relay.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Execution: ExecutionConfig{
			MaxRetries:   3,
			RetryBackoff: time.Second,
			MaxSteps:     10,
			Workspace:    "workspace",
		},
		Memory: MemoryConfig{
			MinConfidence:   0.3,
			RecallLimit:     3,
			RecallThreshold: 0.7,
		},
		Paths: PathsConfig{
			TracesDir: "traces",
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
