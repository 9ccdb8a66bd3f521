// Package config provides YAML-driven configuration for the rlm engine,
// adapted from codeNERD's config loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"rlm/internal/logging"
)

// Config holds all rlm engine configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Store   StoreConfig   `yaml:"store"`
	LLM     LLMConfig     `yaml:"llm"`
	Gates   GatesConfig   `yaml:"gates"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the document store's backing SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// GatesConfig holds default acceptance-gate and loop parameters, overridable
// per orchestrator.Query call.
type GatesConfig struct {
	MaxIterations      int `yaml:"max_iterations"`
	MinCodeExecutions  int `yaml:"min_code_executions"`
	MinAnswerLen       int `yaml:"min_answer_len"`
	ParallelLoops      int `yaml:"parallel_loops"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "rlm",
		Version: "0.1.0",

		Store: StoreConfig{
			Path: "data/rlm.db",
		},

		LLM: LLMConfig{
			BaseURL:  "http://localhost:1234/v1",
			Model:    "qwen/qwen3-8b",
			SubModel: "",
			Timeout:  "120s",
		},

		Gates: GatesConfig{
			MaxIterations:     8,
			MinCodeExecutions: 2,
			MinAnswerLen:      150,
			ParallelLoops:     3,
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults if
// the file does not exist, then applying environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.Get(logging.CategoryBoot).Debug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryBoot).Info("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies RLM_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RLM_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("RLM_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("RLM_LLM_SUB_MODEL"); v != "" {
		c.LLM.SubModel = v
	}
	if v := os.Getenv("RLM_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("RLM_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// GetLLMTimeout returns the LLM timeout as a duration, defaulting to 120s on
// a malformed value.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// SubModelOrDefault returns the sub-LLM model name, falling back to the main model
// when unset.
func (c *LLMConfig) SubModelOrDefault() string {
	if c.SubModel != "" {
		return c.SubModel
	}
	return c.Model
}

// FindWorkspaceRoot walks up from the current directory looking for a
// `.rlm` directory or a `go.mod`, returning the first directory found.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".rlm")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .rlm or go.mod found above %s", dir)
		}
		dir = parent
	}
}

// DefaultConfigPath returns the default config.yaml path under the
// workspace root's .rlm directory.
func DefaultConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		root = "."
	}
	return filepath.Join(root, ".rlm", "config.yaml")
}
