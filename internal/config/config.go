// Package config loads qcbank settings from defaults, an optional YAML
// file and QCBANK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/qcbank/internal/analyzer"
	"github.com/abhisek/qcbank/internal/llm"
)

// Config is the full application configuration.
type Config struct {
	// DB is the SQLite file path. Empty resolves to the XDG data dir.
	DB       string         `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	LLM      llm.Config     `yaml:"llm"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RequestTimeout bounds a whole submission, analyzers included.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AnalyzerConfig configures the review analyzers.
type AnalyzerConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// Timeouts overrides Timeout per analyzer name.
	Timeouts      map[string]time.Duration `yaml:"timeouts"`
	MaxInputChars int                      `yaml:"max_input_chars"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  90 * time.Second,
		},
		Analyzer: AnalyzerConfig{
			Timeout:       30 * time.Second,
			MaxInputChars: 8000,
		},
		LLM: llm.DefaultConfig(),
		Log: LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays QCBANK_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("QCBANK_DB"); v != "" {
		cfg.DB = v
	}
	if v := os.Getenv("QCBANK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("QCBANK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QCBANK_LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QCBANK_LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = b
	}
	if v := os.Getenv("QCBANK_ANALYZER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QCBANK_ANALYZER_TIMEOUT: %w", err)
		}
		cfg.Analyzer.Timeout = d
	}
	llm.ApplyEnv(&cfg.LLM)
	return nil
}

// Validate checks values that would otherwise fail late. Provider keys are
// checked when the provider is built.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Analyzer.Timeout <= 0 {
		errs = append(errs, errors.New("analyzer.timeout must be positive"))
	}
	for name, d := range c.Analyzer.Timeouts {
		if !slices.Contains(analyzer.Names, analyzer.Name(name)) {
			errs = append(errs, fmt.Errorf("analyzer.timeouts: unknown analyzer %q", name))
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("analyzer.timeouts.%s must be positive", name))
		}
	}
	if c.LLM.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("llm.rate_limit.requests_per_second must not be negative"))
	}
	return errors.Join(errs...)
}

// AnalyzerTimeouts returns the per-analyzer overrides keyed by name.
func (c AnalyzerConfig) AnalyzerTimeouts() map[analyzer.Name]time.Duration {
	out := make(map[analyzer.Name]time.Duration, len(c.Timeouts))
	for name, d := range c.Timeouts {
		out[analyzer.Name(name)] = d
	}
	return out
}
