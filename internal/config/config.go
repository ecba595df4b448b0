package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	nsishttp "github.com/ligustah/nsisdl/internal/http"
	"github.com/ligustah/nsisdl/internal/progress"
)

// MaxChunkSize caps the copy buffer.
const MaxChunkSize = 16 * 1024 * 1024

// Config defines configuration for the nsisdl CLI.
type Config struct {
	URL       string     `yaml:"url"`
	Output    string     `yaml:"output"`
	ChunkSize int64      `yaml:"chunk_size"`
	Progress  bool       `yaml:"progress"`
	LogLevel  string     `yaml:"log_level"`
	HTTP      HTTPConfig `yaml:"http"`
}

// HTTPConfig defines how the source is fetched.
type HTTPConfig struct {
	Timeout           time.Duration     `yaml:"timeout"`
	ConnectTimeout    time.Duration     `yaml:"connect_timeout"`
	InactivityTimeout time.Duration     `yaml:"inactivity_timeout"`
	MaxRedirects      int               `yaml:"max_redirects"`
	UserAgent         string            `yaml:"user_agent"`
	Headers           map[string]string `yaml:"headers"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	httpDefaults := nsishttp.DefaultOptions()
	return Config{
		ChunkSize: 32 * 1024, // 32KiB
		LogLevel:  "warning",
		HTTP: HTTPConfig{
			Timeout:           httpDefaults.Timeout,
			ConnectTimeout:    httpDefaults.ConnectTimeout,
			InactivityTimeout: httpDefaults.InactivityTimeout,
			MaxRedirects:      httpDefaults.MaxRedirects,
			UserAgent:         httpDefaults.UserAgent,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	URL       string         `yaml:"url"`
	Output    string         `yaml:"output"`
	ChunkSize string         `yaml:"chunk_size"`
	Progress  bool           `yaml:"progress"`
	LogLevel  string         `yaml:"log_level"`
	HTTP      yamlHTTPConfig `yaml:"http"`
}

type yamlHTTPConfig struct {
	Timeout           string            `yaml:"timeout"`
	ConnectTimeout    string            `yaml:"connect_timeout"`
	InactivityTimeout string            `yaml:"inactivity_timeout"`
	MaxRedirects      *int              `yaml:"max_redirects"`
	UserAgent         string            `yaml:"user_agent"`
	Headers           map[string]string `yaml:"headers"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	cfg.Progress = yc.Progress
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"http.timeout", yc.HTTP.Timeout, &cfg.HTTP.Timeout},
		{"http.connect_timeout", yc.HTTP.ConnectTimeout, &cfg.HTTP.ConnectTimeout},
		{"http.inactivity_timeout", yc.HTTP.InactivityTimeout, &cfg.HTTP.InactivityTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if yc.HTTP.MaxRedirects != nil {
		cfg.HTTP.MaxRedirects = *yc.HTTP.MaxRedirects
	}
	if yc.HTTP.UserAgent != "" {
		cfg.HTTP.UserAgent = yc.HTTP.UserAgent
	}
	if len(yc.HTTP.Headers) > 0 {
		cfg.HTTP.Headers = yc.HTTP.Headers
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the NSISDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("NSISDL_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("NSISDL_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("NSISDL_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse NSISDL_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("NSISDL_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("NSISDL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("NSISDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse NSISDL_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if v := os.Getenv("NSISDL_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse NSISDL_CONNECT_TIMEOUT: %w", err)
		}
		c.HTTP.ConnectTimeout = d
	}
	if v := os.Getenv("NSISDL_INACTIVITY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse NSISDL_INACTIVITY_TIMEOUT: %w", err)
		}
		c.HTTP.InactivityTimeout = d
	}
	if v := os.Getenv("NSISDL_MAX_REDIRECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse NSISDL_MAX_REDIRECTS: %w", err)
		}
		c.HTTP.MaxRedirects = n
	}
	if v := os.Getenv("NSISDL_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("config: chunk_size must not exceed %s", progress.FormatBytes(MaxChunkSize))
	}
	if c.HTTP.Timeout < 0 || c.HTTP.ConnectTimeout < 0 || c.HTTP.InactivityTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.HTTP.Timeout != 0 {
		c.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.ConnectTimeout != 0 {
		c.HTTP.ConnectTimeout = override.HTTP.ConnectTimeout
	}
	if override.HTTP.InactivityTimeout != 0 {
		c.HTTP.InactivityTimeout = override.HTTP.InactivityTimeout
	}
	if override.HTTP.MaxRedirects != 0 {
		c.HTTP.MaxRedirects = override.HTTP.MaxRedirects
	}
	if override.HTTP.UserAgent != "" {
		c.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if len(override.HTTP.Headers) > 0 {
		merged := make(map[string]string, len(c.HTTP.Headers)+len(override.HTTP.Headers))
		for k, v := range c.HTTP.Headers {
			merged[k] = v
		}
		for k, v := range override.HTTP.Headers {
			merged[k] = v
		}
		c.HTTP.Headers = merged
	}
	return c
}

// HTTPOptions converts the HTTP section into client options.
func (c Config) HTTPOptions() nsishttp.Options {
	return nsishttp.Options{
		Timeout:           c.HTTP.Timeout,
		ConnectTimeout:    c.HTTP.ConnectTimeout,
		InactivityTimeout: c.HTTP.InactivityTimeout,
		MaxRedirects:      c.HTTP.MaxRedirects,
		UserAgent:         c.HTTP.UserAgent,
		Headers:           c.HTTP.Headers,
	}
}
