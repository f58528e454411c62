// Package config handles configuration loading for ralphd.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for ralphd.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Loop        LoopConfig        `mapstructure:"loop"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Automations AutomationsConfig `mapstructure:"automations"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// QueueConfig holds run queue settings.
type QueueConfig struct {
	// MaxConcurrent caps how many runs execute at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// LoopConfig holds iteration loop settings.
type LoopConfig struct {
	// MaxIterations is the default iteration budget per run.
	MaxIterations int `mapstructure:"max_iterations"`
	// DelaySeconds is the pause between iterations.
	DelaySeconds int `mapstructure:"delay_seconds"`
	// FailureContextMaxChars caps the validation failure text carried into
	// the next prompt. Zero or less disables the cap.
	FailureContextMaxChars int `mapstructure:"failure_context_max_chars"`
	// GitCheckpoint enables commit-per-iteration and regression reverts.
	GitCheckpoint bool `mapstructure:"git_checkpoint"`
	// ProgressFile overrides the per-thread progress document name.
	ProgressFile string `mapstructure:"progress_file"`
	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration `mapstructure:"agent_timeout"`
	// ValidateTimeout bounds a single validation command. Zero means none.
	ValidateTimeout time.Duration `mapstructure:"validate_timeout"`
}

// AgentConfig holds agent adapter settings.
type AgentConfig struct {
	// Default is the adapter used when a thread doesn't name one.
	Default string `mapstructure:"default"`
	// Model is passed through to the agent CLI when set.
	Model string `mapstructure:"model"`
	// AdditionalFlags are appended verbatim to every agent invocation.
	AdditionalFlags []string `mapstructure:"additional_flags"`
}

// AutomationsConfig holds automation seeding settings.
type AutomationsConfig struct {
	// File is an optional YAML file of automations loaded at startup.
	File string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (RALPHD_*)
// 2. Project config (.ralphd.yaml in current directory or parent)
// 3. User config (~/.config/ralphd/config.yaml)
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

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Database.Path = os.ExpandEnv(cfg.Database.Path)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Database.Path = os.ExpandEnv(cfg.Database.Path)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 4242)

	v.SetDefault("database.path", filepath.Join(".ralph", "ralphd.db"))

	v.SetDefault("queue.max_concurrent", 2)

	v.SetDefault("loop.max_iterations", 10)
	v.SetDefault("loop.delay_seconds", 0)
	v.SetDefault("loop.failure_context_max_chars", 8000)
	v.SetDefault("loop.git_checkpoint", true)
	v.SetDefault("loop.progress_file", "")
	v.SetDefault("loop.agent_timeout", "5m")
	v.SetDefault("loop.validate_timeout", "0")

	v.SetDefault("agent.default", "claude")
	v.SetDefault("agent.model", "")
	v.SetDefault("agent.additional_flags", []string{})

	v.SetDefault("automations.file", "")
}

// bindEnv maps the RALPHD_* environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.BindEnv("database.path", "RALPHD_DB_PATH")
	v.BindEnv("server.host", "RALPHD_HOST")
	v.BindEnv("server.port", "RALPHD_PORT")
	v.BindEnv("queue.max_concurrent", "RALPHD_MAX_CONCURRENT")
}

// getUserConfigDir returns the XDG config directory for ralphd.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ralphd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ralphd")
	}
	return filepath.Join(home, ".config", "ralphd")
}

// findProjectConfig searches for .ralphd.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ralphd.yaml")
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
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4242,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(".ralph", "ralphd.db"),
		},
		Queue: QueueConfig{
			MaxConcurrent: 2,
		},
		Loop: LoopConfig{
			MaxIterations:          10,
			DelaySeconds:           0,
			FailureContextMaxChars: 8000,
			GitCheckpoint:          true,
			AgentTimeout:           5 * time.Minute,
		},
		Agent: AgentConfig{
			Default: "claude",
		},
	}
}
