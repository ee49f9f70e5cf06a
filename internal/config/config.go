// Package config provides configuration for the agent engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ModeMock selects the canned mock provider instead of real backends.
const ModeMock = "MOCK"

// ProviderConfig holds credentials and endpoint for one backend provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Configured reports whether credentials are present.
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// Config holds the engine configuration.
type Config struct {
	// Server settings
	HTTPPort int
	RPCPort  int

	// Database
	DatabaseURL string

	// Ingress settings; empty disables push notifications
	IngressURL string

	// Backend providers
	Anthropic ProviderConfig
	OpenAI    ProviderConfig

	// ProviderPolicy is rego source for provider routing; empty uses the default.
	ProviderPolicy string

	// Timeouts
	BackendTimeout time.Duration

	// StaleRunAfter is how long a run may stay queued or running before the
	// reaper fails it.
	StaleRunAfter time.Duration

	// DedupeInflight coalesces identical concurrent requests in-process.
	DedupeInflight bool

	// Mode is "MOCK" for the canned provider.
	Mode string

	// Logging
	LogLevel string
}

// fileConfig is the optional YAML overlay.
type fileConfig struct {
	DatabaseURL    string `yaml:"database_url"`
	IngressURL     string `yaml:"ingress_url"`
	BackendTimeout string `yaml:"backend_timeout"`
	ProviderPolicy string `yaml:"provider_policy"`
	Providers      struct {
		Anthropic ProviderConfig `yaml:"anthropic"`
		OpenAI    ProviderConfig `yaml:"openai"`
	} `yaml:"providers"`
}

// Load loads configuration from environment variables, then applies the
// YAML file named by AGENTENGINE_CONFIG if set. Environment values win over
// file values for credentials.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:    getEnvInt("HTTP_PORT", 8080),
		RPCPort:     getEnvInt("RPC_PORT", 8082),
		DatabaseURL: getEnv("DATABASE_URL", "file:agentengine.db?cache=shared&mode=rwc"),
		IngressURL:  getEnv("INGRESS_URL", ""),
		Anthropic: ProviderConfig{
			APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			Model:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		},
		OpenAI: ProviderConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		BackendTimeout: time.Duration(getEnvInt("BACKEND_TIMEOUT_MS", 120000)) * time.Millisecond,
		DedupeInflight: getEnvBool("DEDUPE_INFLIGHT", true),
		Mode:           strings.ToUpper(getEnv("AGENTENGINE_MODE", "")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("AGENTENGINE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.StaleRunAfter = time.Duration(getEnvInt("STALE_RUN_AFTER_MS", 0)) * time.Millisecond
	if cfg.StaleRunAfter <= 0 {
		cfg.StaleRunAfter = 2*cfg.BackendTimeout + time.Minute
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.DatabaseURL != "" && os.Getenv("DATABASE_URL") == "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.IngressURL != "" && os.Getenv("INGRESS_URL") == "" {
		c.IngressURL = fc.IngressURL
	}
	if fc.BackendTimeout != "" && os.Getenv("BACKEND_TIMEOUT_MS") == "" {
		d, err := time.ParseDuration(fc.BackendTimeout)
		if err != nil {
			return fmt.Errorf("parse %s: backend_timeout: %w", path, err)
		}
		c.BackendTimeout = d
	}
	c.ProviderPolicy = fc.ProviderPolicy
	mergeProvider(&c.Anthropic, fc.Providers.Anthropic, "ANTHROPIC")
	mergeProvider(&c.OpenAI, fc.Providers.OpenAI, "OPENAI")
	return nil
}

func mergeProvider(dst *ProviderConfig, src ProviderConfig, envPrefix string) {
	if src.APIKey != "" && os.Getenv(envPrefix+"_API_KEY") == "" {
		dst.APIKey = src.APIKey
	}
	if src.BaseURL != "" && os.Getenv(envPrefix+"_BASE_URL") == "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Model != "" && os.Getenv(envPrefix+"_MODEL") == "" {
		dst.Model = src.Model
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
