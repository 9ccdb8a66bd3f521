package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "rlm" {
		t.Errorf("expected Name=rlm, got %s", cfg.Name)
	}
	if cfg.Gates.MaxIterations != 8 {
		t.Errorf("expected MaxIterations=8, got %d", cfg.Gates.MaxIterations)
	}
	if cfg.Gates.MinCodeExecutions != 2 {
		t.Errorf("expected MinCodeExecutions=2, got %d", cfg.Gates.MinCodeExecutions)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("RLM_LLM_API_KEY", "")
	t.Setenv("RLM_LLM_BASE_URL", "")
	t.Setenv("RLM_LLM_MODEL", "")
	t.Setenv("RLM_LLM_SUB_MODEL", "")
	t.Setenv("RLM_STORE_PATH", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "glm-4.6"
	cfg.LLM.APIKey = "sk-test"
	cfg.Store.Path = filepath.Join(tmpDir, "rlm.db")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.Model != "glm-4.6" {
		t.Errorf("expected Model=glm-4.6, got %s", loaded.LLM.Model)
	}
	if loaded.LLM.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.LLM.APIKey)
	}
	if loaded.Store.Path != cfg.Store.Path {
		t.Errorf("expected Store.Path=%s, got %s", cfg.Store.Path, loaded.Store.Path)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("RLM_LLM_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != DefaultConfig().LLM.Model {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RLM_LLM_API_KEY", "env-api-key")
	t.Setenv("RLM_LLM_BASE_URL", "http://example:1234/v1")
	t.Setenv("RLM_LLM_MODEL", "env-model")
	t.Setenv("RLM_LLM_SUB_MODEL", "env-sub-model")
	t.Setenv("RLM_STORE_PATH", "/tmp/env-store.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.LLM.APIKey != "env-api-key" {
		t.Errorf("expected APIKey=env-api-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "http://example:1234/v1" {
		t.Errorf("expected BaseURL override, got %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("expected Model=env-model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.SubModel != "env-sub-model" {
		t.Errorf("expected SubModel=env-sub-model, got %s", cfg.LLM.SubModel)
	}
	if cfg.Store.Path != "/tmp/env-store.db" {
		t.Errorf("expected Store.Path override, got %s", cfg.Store.Path)
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetLLMTimeout() == 0 {
		t.Error("GetLLMTimeout should return non-zero duration")
	}

	cfg.LLM.Timeout = "not-a-duration"
	if cfg.GetLLMTimeout().Seconds() != 120 {
		t.Errorf("expected fallback to 120s on malformed timeout, got %v", cfg.GetLLMTimeout())
	}

	cfg.LLM.SubModel = ""
	if cfg.LLM.SubModelOrDefault() != cfg.LLM.Model {
		t.Error("SubModelOrDefault should fall back to Model when unset")
	}
	cfg.LLM.SubModel = "small-model"
	if cfg.LLM.SubModelOrDefault() != "small-model" {
		t.Error("SubModelOrDefault should return SubModel when set")
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := &LoggingConfig{DebugMode: false}
	if lc.IsCategoryEnabled("store") {
		t.Error("expected disabled when DebugMode is false")
	}

	lc = &LoggingConfig{DebugMode: true}
	if !lc.IsCategoryEnabled("store") {
		t.Error("expected enabled by default in debug mode with no category map")
	}

	lc = &LoggingConfig{DebugMode: true, Categories: map[string]bool{"store": false}}
	if lc.IsCategoryEnabled("store") {
		t.Error("expected disabled when explicitly set false")
	}
	if !lc.IsCategoryEnabled("citation") {
		t.Error("expected enabled when not present in category map")
	}
}
