package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gptkit/internal/config"
	"gptkit/internal/testsupport"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	testsupport.ClearOpenAIEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.OpenAI.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.DefaultModel != "gpt-3.5-turbo" {
		t.Fatalf("unexpected default model: %q", cfg.OpenAI.DefaultModel)
	}
	if cfg.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base url: %q", cfg.OpenAI.BaseURL)
	}
	if cfg.OpenAI.TimeoutSeconds != 30 || cfg.OpenAI.MaxRetries != 3 || cfg.OpenAI.RetryDelaySeconds != 1 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.OpenAI)
	}
	wantUsage := filepath.Join(tempHome, ".local", "share", "gptkit", "usage.db")
	if cfg.Usage.Path != wantUsage {
		t.Fatalf("unexpected usage path: got %q want %q", cfg.Usage.Path, wantUsage)
	}
	if cfg.Usage.Enabled {
		t.Fatal("expected usage ledger disabled by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	testsupport.ClearOpenAIEnv(t)
	configPath := filepath.Join(t.TempDir(), "gptkit.toml")

	type payload struct {
		OpenAI struct {
			APIKey       string `toml:"api_key"`
			DefaultModel string `toml:"default_model"`
			BaseURL      string `toml:"base_url"`
			Organization string `toml:"organization"`
			MaxRetries   int    `toml:"max_retries"`
			RetryDelay   int    `toml:"retry_delay_seconds"`
		} `toml:"openai"`
	}
	custom := payload{}
	custom.OpenAI.APIKey = "file-key"
	custom.OpenAI.DefaultModel = "gpt-4o"
	custom.OpenAI.BaseURL = "https://proxy.example.com/v1/"
	custom.OpenAI.Organization = "org-123"
	custom.OpenAI.MaxRetries = 5
	custom.OpenAI.RetryDelay = 2
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}

	openai := cfg.GetOpenAI()
	if openai.APIKey != "file-key" || openai.DefaultModel != "gpt-4o" || openai.Organization != "org-123" {
		t.Fatalf("unexpected openai settings: %+v", openai)
	}
	if openai.BaseURL != "https://proxy.example.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", openai.BaseURL)
	}
	if openai.MaxRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", openai.MaxRetries)
	}
	if openai.RetryDelay != 2*time.Second {
		t.Fatalf("expected 2s retry delay, got %s", openai.RetryDelay)
	}
	if openai.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", openai.Timeout)
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	testsupport.ClearOpenAIEnv(t)
	configPath := filepath.Join(t.TempDir(), "gptkit.toml")
	contents := "[openai]\napi_key = \"file-key\"\nmax_retries = 2\ntimeout_seconds = 10\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_MAX_RETRIES", "7")
	t.Setenv("OPENAI_TIMEOUT", "45")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("expected API key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.MaxRetries != 7 {
		t.Errorf("expected max retries from env, got %d", cfg.OpenAI.MaxRetries)
	}
	if cfg.OpenAI.TimeoutSeconds != 45 {
		t.Errorf("expected timeout from env, got %d", cfg.OpenAI.TimeoutSeconds)
	}
}

func TestLoadRejectsNonNumericEnv(t *testing.T) {
	testsupport.ClearOpenAIEnv(t)
	t.Setenv("OPENAI_RETRY_DELAY", "soon")

	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "OPENAI_RETRY_DELAY") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_openai_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.OpenAI.MaxRetries != 3 {
		t.Fatalf("expected sample max_retries 3, got %d", cfg.OpenAI.MaxRetries)
	}
	if cfg.Scaffold.Package != "chattools" {
		t.Fatalf("expected sample scaffold package, got %q", cfg.Scaffold.Package)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero retries", func(c *config.Config) { c.OpenAI.MaxRetries = 0 }},
		{"negative delay", func(c *config.Config) { c.OpenAI.RetryDelaySeconds = -1 }},
		{"negative timeout", func(c *config.Config) { c.OpenAI.TimeoutSeconds = -5 }},
		{"relative base url", func(c *config.Config) { c.OpenAI.BaseURL = "api.openai.com" }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"bad scaffold package", func(c *config.Config) { c.Scaffold.Package = "Chat-Tools" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestWrittenTestConfigRoundTrips(t *testing.T) {
	testsupport.ClearOpenAIEnv(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL("http://127.0.0.1:9/v1"), testsupport.WithUsageLedger())
	path := filepath.Join(testsupport.BaseDir(cfg), "gptkit.toml")
	testsupport.WriteConfig(t, path, cfg)

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if loaded.OpenAI.BaseURL != "http://127.0.0.1:9/v1" || loaded.OpenAI.MaxRetries != 1 || !loaded.Usage.Enabled {
		t.Fatalf("unexpected loaded config %+v", loaded)
	}
	if loaded.Usage.Path != cfg.Usage.Path {
		t.Fatalf("expected usage path %q, got %q", cfg.Usage.Path, loaded.Usage.Path)
	}
}
