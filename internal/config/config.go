// Package config loads supervisor configuration from flags, environment
// variables, and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of supervisor-tunable knobs named in SPEC_FULL.md
// §4.A/§4.B.
type Config struct {
	Workspace string `mapstructure:"workspace"`

	AnthropicAPIKey  string        `mapstructure:"anthropic_api_key"`
	AnthropicBaseURL string        `mapstructure:"anthropic_base_url"`
	DefaultModel     string        `mapstructure:"default_model"`
	ReflectionModel  string        `mapstructure:"reflection_model"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`

	MaxToolIterations     int `mapstructure:"max_tool_iterations"`
	ErrorRepeatThreshold  int `mapstructure:"error_repeat_threshold"`
	SandboxMemoryLimitMB  int `mapstructure:"sandbox_memory_limit_mb"`
	ProcessCleanupSeconds int `mapstructure:"process_cleanup_seconds"`
	ForegroundTimeoutSecs int `mapstructure:"foreground_timeout_seconds"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	AgentBinaryPath string `mapstructure:"agent_binary_path"`
}

// Defaults mirror the constants named throughout SPEC_FULL.md, themselves
// taken from original_source's bat-gateway constants where it sets them.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Workspace:             filepath.Join(home, ".nest", "workspace"),
		AnthropicBaseURL:      "https://api.anthropic.com",
		DefaultModel:          "claude-sonnet-4-5",
		ReflectionModel:       "claude-haiku-4-5-latest",
		RequestTimeout:        120 * time.Second,
		MaxToolIterations:     20,
		ErrorRepeatThreshold:  3,
		SandboxMemoryLimitMB:  512,
		ProcessCleanupSeconds: 1800,
		ForegroundTimeoutSecs: 60,
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, a config file discovered via v, and environment variables
// prefixed NEST_. v may already carry flag bindings from cobra.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	defaults := Defaults()
	v.SetDefault("workspace", defaults.Workspace)
	v.SetDefault("anthropic_base_url", defaults.AnthropicBaseURL)
	v.SetDefault("default_model", defaults.DefaultModel)
	v.SetDefault("reflection_model", defaults.ReflectionModel)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("max_tool_iterations", defaults.MaxToolIterations)
	v.SetDefault("error_repeat_threshold", defaults.ErrorRepeatThreshold)
	v.SetDefault("sandbox_memory_limit_mb", defaults.SandboxMemoryLimitMB)
	v.SetDefault("process_cleanup_seconds", defaults.ProcessCleanupSeconds)
	v.SetDefault("foreground_timeout_seconds", defaults.ForegroundTimeoutSecs)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	v.SetEnvPrefix("NEST")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".nest"))
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return cfg, nil
}
