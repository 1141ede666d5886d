package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gptkit/internal/chattools"
	"gptkit/internal/config"
	"gptkit/internal/logging"
	"gptkit/internal/usage"
	"gptkit/pkg/provider"
	"gptkit/pkg/tools"
)

const defaultEnvFile = ".env"

type commandContext struct {
	configFlag  *string
	envFileFlag *string
	verboseFlag *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, envFileFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadEnvFile(flagValue(c.envFileFlag)); err != nil {
			c.configErr = err
			return
		}
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) providerClient() (*provider.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	openai := cfg.GetOpenAI()
	return provider.NewClient(provider.Config{
		APIKey:       openai.APIKey,
		BaseURL:      openai.BaseURL,
		Organization: openai.Organization,
		Timeout:      openai.Timeout,
		MaxRetries:   openai.MaxRetries,
		RetryDelay:   openai.RetryDelay,
	}, provider.WithLogger(logger))
}

func (c *commandContext) toolRegistry() (*tools.Registry, error) {
	return chattools.NewRegistry()
}

// openUsage returns nil when the ledger is disabled.
func (c *commandContext) openUsage() (*usage.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Usage.Enabled {
		return nil, nil
	}
	return usage.Open(cfg.Usage.Path)
}

func loadEnvFile(path string) error {
	if path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return fmt.Errorf("resolve env file: %w", err)
		}
		if err := godotenv.Load(expanded); err != nil {
			return fmt.Errorf("load env file %s: %w", expanded, err)
		}
		return nil
	}
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", defaultEnvFile, err)
	}
	if err := godotenv.Load(defaultEnvFile); err != nil {
		return fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}
	return nil
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
