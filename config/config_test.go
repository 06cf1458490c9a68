package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("TODOAGENT_LLM_MODEL", "gpt-override")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"general":{"debug":true},"server":{"address":":9999"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadConfig(path)

	if !cfg.General.Debug {
		t.Error("file value general.debug not applied")
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("file value server.address not applied, got %q", cfg.Server.Address)
	}
	if cfg.LLM.Model != "gpt-override" {
		t.Errorf("env override llm.model not applied, got %q", cfg.LLM.Model)
	}
	if cfg.TodoSource.BaseURL != "https://jsonplaceholder.typicode.com/todos" {
		t.Errorf("default todo_source.base_url missing, got %q", cfg.TodoSource.BaseURL)
	}
	if cfg.TodoSource.ContextLimit != 50 {
		t.Errorf("default context limit missing, got %d", cfg.TodoSource.ContextLimit)
	}
	if cfg.LLM.MaxToolSteps != 8 {
		t.Errorf("default max tool steps missing, got %d", cfg.LLM.MaxToolSteps)
	}
	if cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("default llm timeout missing, got %s", cfg.LLM.Timeout)
	}
	if cfg.Telemetry.ServiceName != "todo-agent" {
		t.Errorf("default service name missing, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestResolveAPIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	c := LLMConfig{}
	if got := c.ResolveAPIKey(); got != "env-key" {
		t.Errorf("expected env fallback, got %q", got)
	}

	c.APIKey = "explicit"
	if got := c.ResolveAPIKey(); got != "explicit" {
		t.Errorf("explicit key must win, got %q", got)
	}
}
