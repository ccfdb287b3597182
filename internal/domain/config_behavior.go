package domain

import (
	"context"
	"errors"
	"time"
)

// Timeout returns the per-attempt request timeout.
func (a APISettings) Timeout() time.Duration {
	if a.TimeoutMS <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

// Attempts returns the total number of attempts, never less than one.
func (r RetrySettings) Attempts() int {
	if r.MaxRetries < 1 {
		return 1
	}
	return r.MaxRetries
}

// BaseDelay returns the wait before the second attempt.
func (r RetrySettings) BaseDelay() time.Duration {
	if r.BaseDelayMS < 0 {
		return 0
	}
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the cap applied to every backoff wait.
func (r RetrySettings) MaxDelay() time.Duration {
	if r.MaxDelayMS <= 0 {
		return DefaultRetryMaxDelay
	}
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// HistoryEnabled reports whether results should be persisted (default true).
func (h HistorySettings) HistoryEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// Retention returns the configured retention window, zero meaning forever.
func (h HistorySettings) Retention() time.Duration {
	if h.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// MessageCatalog maps an error kind name to the user-visible message.
type MessageCatalog map[string]string

var defaultMessages = MessageCatalog{
	string(ErrValidation):          "Please provide more detailed symptoms (at least 10 characters).",
	string(ErrConfig):              "API key is not configured. Please add your API key to the config file.",
	string(ErrTimeout):             "Request timeout. Please try again.",
	string(ErrNetwork):             "Network error. Please check your internet connection and try again.",
	string(ErrAuth):                "Invalid API key. Please check your configuration.",
	string(ErrRateLimit):           "API rate limit exceeded. Please wait a moment and try again.",
	string(ErrUpstream):            "API service error. Please try again later.",
	string(ErrUpstreamUnavailable): "API service temporarily unavailable. Please try again later.",
	string(ErrParse):               "Invalid response from API. Please try again.",
}

// DefaultMessages returns a copy of the built-in catalog.
func DefaultMessages() MessageCatalog {
	out := make(MessageCatalog, len(defaultMessages))
	for k, v := range defaultMessages {
		out[k] = v
	}
	return out
}

// Message returns the user-visible message for err. Overrides in c win over
// the defaults; failures outside the taxonomy fall back to err.Error().
func (c MessageCatalog) Message(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	if kind == "" {
		if errors.Is(err, context.Canceled) {
			return "Request cancelled."
		}
		return err.Error()
	}
	if msg, ok := c[string(kind)]; ok && msg != "" {
		return msg
	}
	return defaultMessages[string(kind)]
}
