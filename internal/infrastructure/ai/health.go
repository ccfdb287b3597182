package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

const (
	opPing  = "connection test"
	opUsage = "usage stats"

	pingMaxTokens = 5
	pingMessage   = "Hello"
)

// HealthChecker probes the configured provider for the doctor command.
type HealthChecker struct {
	settings   domain.APISettings
	credential string
	httpClient *http.Client
}

// NewHealthChecker builds a checker sharing the transport options.
func NewHealthChecker(settings domain.APISettings, credential string, opts ...TransportOption) *HealthChecker {
	transport := NewHTTPTransport(settings, credential, opts...)
	return &HealthChecker{
		settings:   settings,
		credential: credential,
		httpClient: transport.httpClient,
	}
}

// Ping sends a minimal chat request and reports whether it was accepted.
func (h *HealthChecker) Ping(ctx context.Context) error {
	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:     h.settings.Model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: pingMessage}},
		MaxTokens: pingMaxTokens,
	})
	if err != nil {
		return err
	}
	_, err = h.do(ctx, opPing, http.MethodPost, h.settings.Endpoint, body)
	return err
}

type usageEnvelope struct {
	Data struct {
		Label      string   `json:"label"`
		Usage      float64  `json:"usage"`
		Limit      *float64 `json:"limit"`
		IsFreeTier bool     `json:"is_free_tier"`
	} `json:"data"`
}

// Usage fetches credential usage. Providers without a usage endpoint yield
// stats with Available unset and no error.
func (h *HealthChecker) Usage(ctx context.Context) (domain.UsageStats, error) {
	endpoint := h.settings.UsageEndpoint
	if endpoint == "" {
		return domain.UsageStats{}, nil
	}
	payload, err := h.do(ctx, opUsage, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.UsageStats{}, err
	}
	var envelope usageEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return domain.UsageStats{}, &domain.Error{Kind: domain.ErrParse, Op: opUsage, Detail: summarizePayloadSnippet(string(payload)), Err: err}
	}
	return domain.UsageStats{
		Label:     envelope.Data.Label,
		Usage:     envelope.Data.Usage,
		Limit:     envelope.Data.Limit,
		FreeTier:  envelope.Data.IsFreeTier,
		Available: true,
	}, nil
}

func (h *HealthChecker) do(ctx context.Context, op, method, endpoint string, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, h.settings.Timeout())
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrConfig, Op: op, Detail: "invalid endpoint", Err: err}
	}
	req.Header = BuildHeaders(h.settings, h.credential)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, relabel(classifyTransportError(ctx, attemptCtx, err), op)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, relabel(classifyTransportError(ctx, attemptCtx, err), op)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		failure := classifyStatus(resp.StatusCode, payload)
		failure.Op = op
		return nil, failure
	}
	return payload, nil
}

func relabel(err error, op string) error {
	if failure, ok := err.(*domain.Error); ok {
		failure.Op = op
	}
	return err
}

var _ ports.HealthChecker = (*HealthChecker)(nil)
