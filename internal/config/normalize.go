package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeOpenAI(); err != nil {
		return err
	}
	c.normalizeLogging()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeOpenAI() error {
	if value, ok := lookupEnv("OPENAI_API_KEY"); ok {
		c.OpenAI.APIKey = value
	}
	if value, ok := lookupEnv("OPENAI_DEFAULT_MODEL"); ok {
		c.OpenAI.DefaultModel = value
	}
	if value, ok := lookupEnv("OPENAI_BASE_URL"); ok {
		c.OpenAI.BaseURL = value
	}
	if value, ok := lookupEnv("OPENAI_ORGANIZATION"); ok {
		c.OpenAI.Organization = value
	}
	for _, override := range []struct {
		env    string
		target *int
	}{
		{"OPENAI_TIMEOUT", &c.OpenAI.TimeoutSeconds},
		{"OPENAI_MAX_RETRIES", &c.OpenAI.MaxRetries},
		{"OPENAI_RETRY_DELAY", &c.OpenAI.RetryDelaySeconds},
	} {
		value, ok := lookupEnv(override.env)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: expected integer, got %q", override.env, value)
		}
		*override.target = parsed
	}

	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	c.OpenAI.Organization = strings.TrimSpace(c.OpenAI.Organization)
	c.OpenAI.DefaultModel = strings.TrimSpace(c.OpenAI.DefaultModel)
	if c.OpenAI.DefaultModel == "" {
		c.OpenAI.DefaultModel = defaultModel
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultBaseURL
	}
	if c.OpenAI.TimeoutSeconds == 0 {
		c.OpenAI.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Usage.Path) == "" {
		c.Usage.Path = defaultUsagePath
	}
	if c.Usage.Path, err = expandPath(strings.TrimSpace(c.Usage.Path)); err != nil {
		return fmt.Errorf("usage.path: %w", err)
	}
	c.Scaffold.Dir = strings.TrimSpace(c.Scaffold.Dir)
	if c.Scaffold.Dir == "" {
		c.Scaffold.Dir = defaultScaffoldDir
	}
	c.Scaffold.Package = strings.TrimSpace(c.Scaffold.Package)
	if c.Scaffold.Package == "" {
		c.Scaffold.Package = defaultScaffoldPackage
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
