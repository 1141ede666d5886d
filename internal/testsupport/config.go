package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"gptkit/internal/config"
)

// OpenAIEnvKeys lists every environment variable config.Load consults.
var OpenAIEnvKeys = []string{
	"OPENAI_API_KEY",
	"OPENAI_DEFAULT_MODEL",
	"OPENAI_BASE_URL",
	"OPENAI_ORGANIZATION",
	"OPENAI_TIMEOUT",
	"OPENAI_MAX_RETRIES",
	"OPENAI_RETRY_DELAY",
}

// ClearOpenAIEnv blanks the OPENAI_* variables for the duration of the test.
func ClearOpenAIEnv(t testing.TB) {
	t.Helper()
	for _, key := range OpenAIEnvKeys {
		t.Setenv(key, "")
	}
}

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test. It
// sets a test API key, a single attempt without delay, and quiet logging.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.OpenAI.APIKey = "test-key"
	cfgVal.OpenAI.DefaultModel = "gpt-test"
	cfgVal.OpenAI.MaxRetries = 1
	cfgVal.OpenAI.RetryDelaySeconds = 0
	cfgVal.Logging.Level = "error"
	cfgVal.Usage.Path = filepath.Join(base, "usage.db")
	cfgVal.Scaffold.Dir = filepath.Join(base, "chattools")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseURL points the config at a fake provider.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.BaseURL = url
	}
}

// WithAPIKey overrides the API key; an empty key exercises the missing-key path.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.APIKey = key
	}
}

// WithUsageLedger enables the usage ledger inside the test temp dir.
func WithUsageLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Usage.Enabled = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Usage.Path)
}

// WriteConfig encodes cfg as TOML at path.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config %s: %v", path, err)
	}
}
