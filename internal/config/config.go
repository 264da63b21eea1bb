// Package config loads and validates the application configuration from a
// YAML file, VERACITY_* environment variables, and CLI flag bindings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	AI        AIConfig        `mapstructure:"ai" yaml:"ai"`
	Testing   TestingConfig   `mapstructure:"testing" yaml:"testing"`
	Reporting ReportingConfig `mapstructure:"reporting" yaml:"reporting"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NetworkIdleWait   time.Duration `mapstructure:"network_idle_wait" yaml:"network_idle_wait"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// AIProvider identifies a supported LLM backend.
type AIProvider string

const (
	ProviderOpenAI    AIProvider = "openai"
	ProviderAnthropic AIProvider = "anthropic"
	ProviderGemini    AIProvider = "gemini"
	ProviderCustom    AIProvider = "custom"
)

// AIConfig configures the verification model and its transport.
type AIConfig struct {
	Provider          AIProvider    `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxHTMLBytes      int           `mapstructure:"max_html_bytes" yaml:"max_html_bytes"`
	VerifyConcurrency int           `mapstructure:"verify_concurrency" yaml:"verify_concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Cache             CacheConfig   `mapstructure:"cache" yaml:"cache"`
}

// CacheConfig tunes the in-memory verification response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxSize int           `mapstructure:"max_size" yaml:"max_size"`
}

// TestingConfig governs suite execution behavior.
type TestingConfig struct {
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	StopOnFailure bool   `mapstructure:"stop_on_failure" yaml:"stop_on_failure"`
}

// ReportingConfig controls report rendering.
type ReportingConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	Formats   []string `mapstructure:"formats" yaml:"formats"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "veracity-cli")
	v.SetDefault("logger.log_file", "veracity.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.network_idle_wait", "2s")
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)

	// -- AI --
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.api_timeout", "60s")
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.max_html_bytes", 50000)
	v.SetDefault("ai.verify_concurrency", 1)
	v.SetDefault("ai.requests_per_second", 0)
	v.SetDefault("ai.cache.enabled", true)
	v.SetDefault("ai.cache.ttl", "1h")
	v.SetDefault("ai.cache.max_size", 100)

	// -- Testing --
	v.SetDefault("testing.base_url", "")
	v.SetDefault("testing.stop_on_failure", false)

	// -- Reporting --
	v.SetDefault("reporting.output_dir", "reports")
	v.SetDefault("reporting.formats", []string{"markdown"})
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance that has already read its sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Sensitive values come from the environment, never the config file.
	v.BindEnv("ai.api_key", "VERACITY_AI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("VERACITY_AI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderCustom:
	default:
		return fmt.Errorf("ai.provider %q is not one of openai, anthropic, gemini, custom", c.AI.Provider)
	}
	if c.AI.Provider == ProviderCustom && c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint is required when ai.provider is custom")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model must not be empty")
	}
	if c.AI.VerifyConcurrency <= 0 {
		return fmt.Errorf("ai.verify_concurrency must be a positive integer")
	}
	if c.AI.MaxHTMLBytes <= 0 {
		return fmt.Errorf("ai.max_html_bytes must be a positive integer")
	}
	if c.AI.RequestsPerSecond < 0 {
		return fmt.Errorf("ai.requests_per_second must not be negative")
	}
	if c.AI.Cache.Enabled && c.AI.Cache.MaxSize <= 0 {
		return fmt.Errorf("ai.cache.max_size must be positive when the cache is enabled")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	return nil
}
