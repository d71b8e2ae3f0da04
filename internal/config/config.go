package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 11435
	defaultOllamaURL      = "http://127.0.0.1:11434"
	defaultModel          = "deepseek-r1:7b"
	defaultTimeoutSeconds = 300
	defaultChunkSize      = 16384
)

// Config represents the application configuration parsed from YAML.
// It is constructed once at startup and never mutated afterwards.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Ollama OllamaConfig `yaml:"ollama"`
	Retry  RetryConfig  `yaml:"retry"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// OllamaConfig captures how the gateway reaches the backend daemon.
type OllamaConfig struct {
	URL            string `yaml:"url"`
	DefaultModel   string `yaml:"default_model"`
	TimeoutSeconds int    `yaml:"request_timeout_seconds"`
	ChunkSize      int    `yaml:"chunk_size"`
	StartIfDown    bool   `yaml:"start_if_down"`
}

// RetryConfig is accepted for compatibility with existing config files.
// No retry loop consults these values anywhere in the pipeline.
type RetryConfig struct {
	Count               int `yaml:"count"`
	DelayMillis         int `yaml:"delay_ms"`
	ExtraTimeoutRetries int `yaml:"extra_timeout_retries"`
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: defaultPort},
		Ollama: OllamaConfig{
			URL:            defaultOllamaURL,
			DefaultModel:   defaultModel,
			TimeoutSeconds: defaultTimeoutSeconds,
			ChunkSize:      defaultChunkSize,
		},
		Retry: RetryConfig{Count: 3, DelayMillis: 500, ExtraTimeoutRetries: 2},
	}
}

// Load reads YAML configuration from disk, merged over the defaults,
// and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Ollama.URL) == "" {
		return fmt.Errorf("ollama.url must be provided")
	}
	parsed, err := url.Parse(c.Ollama.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("ollama.url %q is not a valid absolute URL", c.Ollama.URL)
	}

	if strings.TrimSpace(c.Ollama.DefaultModel) == "" {
		return fmt.Errorf("ollama.default_model must be provided")
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		return fmt.Errorf("ollama.request_timeout_seconds must be positive, got %d", c.Ollama.TimeoutSeconds)
	}
	if c.Ollama.ChunkSize <= 0 {
		return fmt.Errorf("ollama.chunk_size must be positive, got %d", c.Ollama.ChunkSize)
	}

	return nil
}

// RequestTimeout returns the backend call timeout as a duration.
func (c OllamaConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
