// Package daemon manages the TaskEval service lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all service configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	Payments  PaymentsConfig  `toml:"payments"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StoreConfig controls persistent storage.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// EvaluatorConfig controls the AI evaluation engine.
type EvaluatorConfig struct {
	Mock           bool   `toml:"mock"`
	MockDelayMS    int    `toml:"mock_delay_ms"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PaymentsConfig controls the external payment processor.
type PaymentsConfig struct {
	SecretKey      string `toml:"secret_key"`
	WebhookSecret  string `toml:"webhook_secret"`
	Currency       string `toml:"currency"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TelemetryConfig controls observability.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	home := taskevalHome()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Store: StoreConfig{
			Dir: home,
		},
		Evaluator: EvaluatorConfig{
			Mock:           true,
			MockDelayMS:    1500,
			BaseURL:        "http://127.0.0.1:11434/v1",
			Model:          "llama3",
			TimeoutSeconds: 120,
		},
		Payments: PaymentsConfig{
			Currency:       "usd",
			TimeoutSeconds: 15,
		},
		Telemetry: TelemetryConfig{
			Prometheus: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads config from ~/.taskeval/config.toml, falling back to
// defaults. Secrets may also arrive via environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(taskevalHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnv(&cfg)
		return cfg, nil // no config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// SaveConfig writes the config to ~/.taskeval/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(taskevalHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// applyEnv lets secrets override the file so they stay out of it.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKEVAL_STRIPE_SECRET_KEY"); v != "" {
		cfg.Payments.SecretKey = v
	}
	if v := os.Getenv("TASKEVAL_STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Payments.WebhookSecret = v
	}
	if v := os.Getenv("TASKEVAL_EVALUATOR_API_KEY"); v != "" {
		cfg.Evaluator.APIKey = v
	}
}

// taskevalHome returns the TaskEval data directory.
func taskevalHome() string {
	if env := os.Getenv("TASKEVAL_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskeval")
}
