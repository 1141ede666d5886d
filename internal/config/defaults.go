package config

const (
	defaultModel             = "gpt-3.5-turbo"
	defaultBaseURL           = "https://api.openai.com/v1"
	defaultTimeoutSeconds    = 30
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 1
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultUsagePath         = "~/.local/share/gptkit/usage.db"
	defaultScaffoldDir       = "internal/chattools"
	defaultScaffoldPackage   = "chattools"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		OpenAI: OpenAI{
			DefaultModel:      defaultModel,
			BaseURL:           defaultBaseURL,
			TimeoutSeconds:    defaultTimeoutSeconds,
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Usage: Usage{
			Enabled: false,
			Path:    defaultUsagePath,
		},
		Scaffold: Scaffold{
			Dir:     defaultScaffoldDir,
			Package: defaultScaffoldPackage,
		},
	}
}
