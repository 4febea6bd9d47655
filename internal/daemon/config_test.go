package daemon

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("TASKEVAL_HOME", t.TempDir())
	cfg := DefaultConfig()

	if cfg.API.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.API.Port)
	}
	if !cfg.Evaluator.Mock {
		t.Error("Mock = false, want the mock engine by default")
	}
	if cfg.Payments.Currency != "usd" {
		t.Errorf("Currency = %q, want usd", cfg.Payments.Currency)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("TASKEVAL_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("Port = %d, want default", cfg.API.Port)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	t.Setenv("TASKEVAL_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9900
	cfg.Evaluator.Mock = false
	cfg.Evaluator.Model = "qwen2.5-coder"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.API.Port != 9900 {
		t.Errorf("Port = %d, want 9900", loaded.API.Port)
	}
	if loaded.Evaluator.Mock {
		t.Error("Mock = true, want persisted false")
	}
	if loaded.Evaluator.Model != "qwen2.5-coder" {
		t.Errorf("Model = %q", loaded.Evaluator.Model)
	}
}

func TestLoadConfig_EnvSecrets(t *testing.T) {
	t.Setenv("TASKEVAL_HOME", t.TempDir())
	t.Setenv("TASKEVAL_STRIPE_SECRET_KEY", "sk_test_abc")
	t.Setenv("TASKEVAL_STRIPE_WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("TASKEVAL_EVALUATOR_API_KEY", "key_abc")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Payments.SecretKey != "sk_test_abc" {
		t.Errorf("SecretKey = %q", cfg.Payments.SecretKey)
	}
	if cfg.Payments.WebhookSecret != "whsec_abc" {
		t.Errorf("WebhookSecret = %q", cfg.Payments.WebhookSecret)
	}
	if cfg.Evaluator.APIKey != "key_abc" {
		t.Errorf("APIKey = %q", cfg.Evaluator.APIKey)
	}
}
