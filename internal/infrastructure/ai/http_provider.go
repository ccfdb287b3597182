package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

const (
	opSend           = "send analysis request"
	maxResponseBytes = 4 << 20
)

// HTTPTransport posts a single chat-completion request per Send call.
type HTTPTransport struct {
	settings   domain.APISettings
	credential string
	httpClient *http.Client
}

// TransportOption customizes the transport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// NewHTTPTransport builds a transport for the given settings and credential.
// The per-attempt timeout is enforced through the request context, so the
// default client carries no timeout of its own.
func NewHTTPTransport(settings domain.APISettings, credential string, opts ...TransportOption) *HTTPTransport {
	transport := &HTTPTransport{
		settings:   settings,
		credential: credential,
		httpClient: NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(transport)
	}
	return transport
}

// Send performs exactly one upstream call. It never retries.
func (t *HTTPTransport) Send(ctx context.Context, prompt string) (domain.RawResponse, error) {
	body, err := buildRequestBody(t.settings, prompt)
	if err != nil {
		return domain.RawResponse{}, fmt.Errorf("%s: encode body: %w", opSend, err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, t.settings.Timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, t.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.RawResponse{}, &domain.Error{Kind: domain.ErrConfig, Op: opSend, Detail: "invalid endpoint", Err: err}
	}
	httpReq.Header = BuildHeaders(t.settings, t.credential)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return domain.RawResponse{}, classifyTransportError(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.RawResponse{}, classifyTransportError(ctx, attemptCtx, err)
	}

	raw := domain.RawResponse{StatusCode: resp.StatusCode, Body: payload}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return raw, classifyStatus(resp.StatusCode, payload)
	}
	return raw, nil
}

// classifyStatus maps a non-2xx status to its failure kind.
func classifyStatus(status int, body []byte) *domain.Error {
	failure := &domain.Error{Op: opSend, Status: status, Detail: upstreamMessage(body)}
	switch status {
	case http.StatusUnauthorized:
		failure.Kind = domain.ErrAuth
		if failure.Detail == "" {
			failure.Detail = "invalid credentials"
		}
	case http.StatusTooManyRequests:
		failure.Kind = domain.ErrRateLimit
	case http.StatusInternalServerError:
		failure.Kind = domain.ErrUpstream
	case http.StatusServiceUnavailable:
		failure.Kind = domain.ErrUpstreamUnavailable
	default:
		failure.Kind = domain.ErrUpstream
		if failure.Detail == "" {
			failure.Detail = "unknown error"
		}
	}
	return failure
}

// classifyTransportError separates caller cancellation, attempt timeouts and
// network failures.
func classifyTransportError(parent, attempt context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		if errors.Is(parentErr, context.DeadlineExceeded) {
			return &domain.Error{Kind: domain.ErrTimeout, Op: opSend, Detail: "deadline exceeded", Err: parentErr}
		}
		return fmt.Errorf("%s: %w", opSend, parentErr)
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return &domain.Error{Kind: domain.ErrTimeout, Op: opSend, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.Error{Kind: domain.ErrTimeout, Op: opSend, Err: err}
	}
	return &domain.Error{Kind: domain.ErrNetwork, Op: opSend, Err: err}
}

var _ ports.Transport = (*HTTPTransport)(nil)
