package config

import (
	"errors"
	"fmt"
	"go/token"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. The API key is not required
// here; commands that talk to the provider enforce it when the client is built.
func (c *Config) Validate() error {
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateScaffold(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	parsed, err := url.Parse(c.OpenAI.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("openai.base_url must be an absolute URL, got %q", c.OpenAI.BaseURL)
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return errors.New("openai.timeout_seconds must be positive")
	}
	// The transport treats zero attempts as a terminal failure; refuse it up front.
	if c.OpenAI.MaxRetries < 1 {
		return errors.New("openai.max_retries must be at least 1")
	}
	if c.OpenAI.RetryDelaySeconds < 0 {
		return errors.New("openai.retry_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateScaffold() error {
	pkg := strings.TrimSpace(c.Scaffold.Package)
	if pkg == "" {
		return nil
	}
	if !token.IsIdentifier(pkg) || strings.ToLower(pkg) != pkg {
		return fmt.Errorf("scaffold.package must be a lowercase Go identifier, got %q", pkg)
	}
	return nil
}
