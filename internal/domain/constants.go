package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Upstream defaults
const (
	DefaultEndpoint      = "https://openrouter.ai/api/v1/chat/completions"
	DefaultUsageEndpoint = "https://openrouter.ai/api/v1/auth/key"
	DefaultModel         = "openai/gpt-3.5-turbo"
	DefaultAPIKeyEnv     = "OPENROUTER_API_KEY"
	DefaultTitle         = "Telemedicine AI Assistant"
	DefaultMaxTokens     = 500
	DefaultTemperature   = 0.3
)

// Timeout and retry constants
const (
	// DefaultRequestTimeout bounds a single upstream attempt
	DefaultRequestTimeout = 30 * time.Second
	// DefaultMaxRetries is the total number of attempts per analysis
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is the wait after the first failed attempt
	DefaultRetryBaseDelay = time.Second
	// DefaultRetryMaxDelay caps every backoff wait
	DefaultRetryMaxDelay = 5 * time.Second
	// DefaultHealthCheckTimeout bounds doctor probes
	DefaultHealthCheckTimeout = 15 * time.Second
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 90
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
