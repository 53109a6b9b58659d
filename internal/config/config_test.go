package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Execution.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Execution.MaxRetries)
	}
	if cfg.Execution.RetryBackoff != time.Second {
		t.Errorf("RetryBackoff = %v, want 1s", cfg.Execution.RetryBackoff)
	}
	if cfg.Execution.MaxSteps != 10 {
		t.Errorf("MaxSteps = %d, want 10", cfg.Execution.MaxSteps)
	}
	if cfg.Memory.MinConfidence != 0.3 || cfg.Memory.RecallLimit != 3 {
		t.Errorf("memory defaults = %+v", cfg.Memory)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `anthropic:
  model: claude-test-model
execution:
  max_retries: 2
  retry_backoff: 500ms
memory:
  recall_limit: 5
routing:
  table_path: custom/routing.yaml
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.Model != "claude-test-model" {
		t.Errorf("Model = %q", cfg.Anthropic.Model)
	}
	if cfg.Execution.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Execution.MaxRetries)
	}
	if cfg.Execution.RetryBackoff != 500*time.Millisecond {
		t.Errorf("RetryBackoff = %v, want 500ms", cfg.Execution.RetryBackoff)
	}
	if cfg.Memory.RecallLimit != 5 {
		t.Errorf("RecallLimit = %d, want 5", cfg.Memory.RecallLimit)
	}
	if cfg.Routing.TablePath != "custom/routing.yaml" {
		t.Errorf("TablePath = %q", cfg.Routing.TablePath)
	}

	// Unset keys keep their defaults.
	if cfg.Execution.MaxSteps != 10 {
		t.Errorf("MaxSteps = %d, want default 10", cfg.Execution.MaxSteps)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("RELAY_TEST_KEY", "sk-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${RELAY_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-secret" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
