package domain

// Config mirrors ~/.triage/config.yaml (or config.toml).
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version" toml:"config_format_version"`
	API                 APISettings     `yaml:"api" toml:"api"`
	Retry               RetrySettings   `yaml:"retry" toml:"retry"`
	Messages            MessageCatalog  `yaml:"messages,omitempty" toml:"messages,omitempty"`
	History             HistorySettings `yaml:"history" toml:"history"`
	Logging             LoggingSettings `yaml:"logging" toml:"logging"`
}

// APISettings describes the chat-completion endpoint and generation
// parameters.
type APISettings struct {
	Endpoint      string  `yaml:"endpoint" toml:"endpoint"`
	UsageEndpoint string  `yaml:"usage_endpoint,omitempty" toml:"usage_endpoint,omitempty"`
	Model         string  `yaml:"model" toml:"model"`
	APIKey        string  `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	APIKeyEnv     string  `yaml:"api_key_env" toml:"api_key_env"`
	Referer       string  `yaml:"referer,omitempty" toml:"referer,omitempty"`
	Title         string  `yaml:"title,omitempty" toml:"title,omitempty"`
	TimeoutMS     int     `yaml:"timeout_ms" toml:"timeout_ms"`
	MaxTokens     int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature   float64 `yaml:"temperature" toml:"temperature"`
}

// RetrySettings controls the bounded exponential backoff.
type RetrySettings struct {
	MaxRetries  int `yaml:"max_retries" toml:"max_retries"`
	BaseDelayMS int `yaml:"base_delay_ms" toml:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms" toml:"max_delay_ms"`
	// SkipOnAuth stops retrying once the upstream rejects the credential.
	SkipOnAuth bool `yaml:"skip_on_auth" toml:"skip_on_auth"`
}

// HistorySettings configures local persistence of analysis results.
type HistorySettings struct {
	Enabled       *bool  `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Path          string `yaml:"path" toml:"path"`
	RetentionDays int    `yaml:"retention_days" toml:"retention_days"`
}

// LoggingSettings selects the log level and encoder.
type LoggingSettings struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}
