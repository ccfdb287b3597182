package config

import (
	"regexp"
	"strings"

	"github.com/doeshing/triage-go/internal/domain"
)

const opCredential = "check credential"

// Credential is the resolved upstream API key and where it came from.
type Credential struct {
	Value  string
	Source string
}

// Present reports whether a usable key was found.
func (c Credential) Present() bool {
	return c.Value != ""
}

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^your[-_ ].*[-_ ]here$`),
	regexp.MustCompile(`(?i)^<.*>$`),
	regexp.MustCompile(`(?i)^(changeme|replace[-_]?me|todo|xxx+|sk-\.\.\.)$`),
}

// IsPlaceholder reports whether value is a template value rather than a
// real key, e.g. "your-openrouter-api-key-here".
func IsPlaceholder(value string) bool {
	trimmed := strings.TrimSpace(value)
	for _, pattern := range placeholderPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// ResolveCredential applies the key precedence: an inline api_key that is
// not a placeholder, then the environment variable named by api_key_env.
func ResolveCredential(api domain.APISettings, getenv func(string) string) Credential {
	if inline := strings.TrimSpace(api.APIKey); inline != "" && !IsPlaceholder(inline) {
		return Credential{Value: inline, Source: "config"}
	}
	envName := strings.TrimSpace(api.APIKeyEnv)
	if envName == "" {
		envName = domain.DefaultAPIKeyEnv
	}
	if getenv != nil {
		if value := strings.TrimSpace(getenv(envName)); value != "" && !IsPlaceholder(value) {
			return Credential{Value: value, Source: "env:" + envName}
		}
	}
	return Credential{}
}

// CheckCredential fails with ErrConfig when value is empty or a placeholder.
func CheckCredential(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return &domain.Error{Kind: domain.ErrConfig, Op: opCredential, Detail: "API key is not configured"}
	}
	if IsPlaceholder(trimmed) {
		return &domain.Error{Kind: domain.ErrConfig, Op: opCredential, Detail: "API key is a placeholder value"}
	}
	return nil
}
