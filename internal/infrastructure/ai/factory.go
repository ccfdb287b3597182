package ai

import (
	"net/http"
	"strings"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

// Factory assembles the pipeline adapters around one shared HTTP client.
type Factory struct {
	httpClient *http.Client
	logger     ports.Logger
	clock      ports.Clock
	retryOpts  []RetryOption
}

// FactoryOption customizes the factory.
type FactoryOption func(*Factory)

// WithFactoryHTTPClient overrides the shared client.
func WithFactoryHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithRetryOptions forwards options to every retrier built by the factory.
func WithRetryOptions(opts ...RetryOption) FactoryOption {
	return func(f *Factory) {
		f.retryOpts = append(f.retryOpts, opts...)
	}
}

func NewFactory(logger ports.Logger, clock ports.Clock, opts ...FactoryOption) *Factory {
	factory := &Factory{
		httpClient: NewHTTPClient(),
		logger:     logger,
		clock:      clock,
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// Transport returns a retrying transport for the given configuration.
func (f *Factory) Transport(cfg domain.Config, credential string) *Retrier {
	base := NewHTTPTransport(cfg.API, credential, WithHTTPClient(f.httpClient))
	return NewRetrier(base, cfg.Retry, f.logger, f.retryOpts...)
}

// Normalizer returns the response normalizer.
func (f *Factory) Normalizer() *Normalizer {
	return NewNormalizer(f.clock, f.logger)
}

// HealthChecker returns a checker for the configured provider. Usage stats
// are only queried for providers known to expose them.
func (f *Factory) HealthChecker(cfg domain.Config, credential string) *HealthChecker {
	settings := cfg.API
	if settings.UsageEndpoint == "" && InferProviderKind(settings.Endpoint) == ProviderOpenRouter {
		settings.UsageEndpoint = domain.DefaultUsageEndpoint
	}
	return NewHealthChecker(settings, credential, WithHTTPClient(f.httpClient))
}

// ProviderKind names the chat-completion host family.
type ProviderKind string

const (
	ProviderOpenRouter ProviderKind = "openrouter"
	ProviderOpenAI     ProviderKind = "openai"
	ProviderLocal      ProviderKind = "local"
	ProviderUnknown    ProviderKind = "unknown"
)

// InferProviderKind guesses the host family from the endpoint URL.
func InferProviderKind(endpoint string) ProviderKind {
	lower := strings.ToLower(endpoint)
	switch {
	case strings.Contains(lower, "openrouter.ai"):
		return ProviderOpenRouter
	case strings.Contains(lower, "openai.com"):
		return ProviderOpenAI
	case strings.Contains(lower, "localhost"), strings.Contains(lower, "127.0.0.1"), strings.Contains(lower, "11434"):
		return ProviderLocal
	default:
		return ProviderUnknown
	}
}
