package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/doeshing/triage-go/internal/domain"
)

const opValidate = "validate config"

// Validate ensures config structure is consistent. Every problem found is
// reported, joined into a single ErrConfig failure.
func Validate(cfg domain.Config) error {
	var problems []error
	problems = append(problems, validateAPI(cfg.API)...)
	problems = append(problems, validateRetry(cfg.Retry)...)
	problems = append(problems, validateHistory(cfg.History)...)
	problems = append(problems, validateLogging(cfg.Logging)...)
	if len(problems) == 0 {
		return nil
	}
	return &domain.Error{Kind: domain.ErrConfig, Op: opValidate, Err: errors.Join(problems...)}
}

func validateAPI(api domain.APISettings) []error {
	var problems []error
	if err := validateURL("api.endpoint", api.Endpoint); err != nil {
		problems = append(problems, err)
	}
	if api.UsageEndpoint != "" {
		if err := validateURL("api.usage_endpoint", api.UsageEndpoint); err != nil {
			problems = append(problems, err)
		}
	}
	if strings.TrimSpace(api.Model) == "" {
		problems = append(problems, errors.New("api.model must be set"))
	}
	if strings.TrimSpace(api.APIKey) == "" && strings.TrimSpace(api.APIKeyEnv) == "" {
		problems = append(problems, errors.New("api.api_key or api.api_key_env must be set"))
	}
	if api.TimeoutMS <= 0 {
		problems = append(problems, fmt.Errorf("api.timeout_ms must be > 0, got %d", api.TimeoutMS))
	}
	if api.MaxTokens <= 0 {
		problems = append(problems, fmt.Errorf("api.max_tokens must be > 0, got %d", api.MaxTokens))
	}
	// Zero is dropped from the request body, so it cannot be requested.
	if api.Temperature <= 0 || api.Temperature > 2 {
		problems = append(problems, fmt.Errorf("api.temperature must be in (0, 2], got %g", api.Temperature))
	}
	return problems
}

func validateRetry(retry domain.RetrySettings) []error {
	var problems []error
	// 0 is a single attempt with no retries.
	if retry.MaxRetries < 0 {
		problems = append(problems, fmt.Errorf("retry.max_retries must be >= 0, got %d", retry.MaxRetries))
	}
	if retry.BaseDelayMS < 0 {
		problems = append(problems, fmt.Errorf("retry.base_delay_ms must be >= 0, got %d", retry.BaseDelayMS))
	}
	if retry.MaxDelayMS < retry.BaseDelayMS {
		problems = append(problems, fmt.Errorf("retry.max_delay_ms (%d) must be >= retry.base_delay_ms (%d)", retry.MaxDelayMS, retry.BaseDelayMS))
	}
	return problems
}

func validateHistory(history domain.HistorySettings) []error {
	var problems []error
	if history.RetentionDays < 0 {
		problems = append(problems, fmt.Errorf("history.retention_days must be >= 0"))
	}
	if history.HistoryEnabled() && strings.TrimSpace(history.Path) == "" {
		problems = append(problems, errors.New("history.path must be set when history is enabled"))
	}
	return problems
}

func validateLogging(logging domain.LoggingSettings) []error {
	var problems []error
	switch strings.ToLower(logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Errorf("logging.level must be debug|info|warn|error, got %s", logging.Level))
	}
	switch strings.ToLower(logging.Format) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Errorf("logging.format must be console|json, got %s", logging.Format))
	}
	return problems
}

func validateURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
