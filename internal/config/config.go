package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// OpenAI contains the chat completion provider settings.
type OpenAI struct {
	APIKey            string `toml:"api_key"`
	DefaultModel      string `toml:"default_model"`
	BaseURL           string `toml:"base_url"`
	Organization      string `toml:"organization"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxRetries        int    `toml:"max_retries"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Usage contains configuration for the token usage ledger.
type Usage struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Scaffold contains defaults for `gptkit make-tool`.
type Scaffold struct {
	Dir     string `toml:"dir"`
	Package string `toml:"package"`
}

// Config encapsulates all configuration values for gptkit.
type Config struct {
	OpenAI   OpenAI   `toml:"openai"`
	Logging  Logging  `toml:"logging"`
	Usage    Usage    `toml:"usage"`
	Scaffold Scaffold `toml:"scaffold"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gptkit/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error; defaults and environment values are used instead.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gptkit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// OpenAIConfig holds provider settings converted to runtime units.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string
	BaseURL      string
	Organization string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// GetOpenAI returns the provider connection settings.
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:       strings.TrimSpace(c.OpenAI.APIKey),
		DefaultModel: strings.TrimSpace(c.OpenAI.DefaultModel),
		BaseURL:      strings.TrimSpace(c.OpenAI.BaseURL),
		Organization: strings.TrimSpace(c.OpenAI.Organization),
		Timeout:      time.Duration(c.OpenAI.TimeoutSeconds) * time.Second,
		MaxRetries:   c.OpenAI.MaxRetries,
		RetryDelay:   time.Duration(c.OpenAI.RetryDelaySeconds) * time.Second,
	}
}
