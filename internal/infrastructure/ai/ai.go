// Package ai implements the symptom-analysis request pipeline adapters.
//
// The package is organized leaves first:
//   - Prompt: BuildPrompt renders the embedded analysis template
//   - Transport: HTTPTransport performs one chat-completion POST per call
//   - Retry: Retrier wraps any ports.Transport with bounded exponential backoff
//   - Normalizer: Normalizer turns a provider envelope into a domain.AnalysisResult
//   - Health: HealthChecker backs the doctor command (connection test, usage)
//
// All failures are *domain.Error values so callers can match them with
// errors.Is against the domain.ErrorKind constants.
package ai

import (
	"net"
	"net/http"
	"time"
)

const (
	dialTimeout         = 10 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	idleConnTimeout     = 90 * time.Second
)

// NewHTTPClient returns the client shared by the transport and health
// checker. Request deadlines come from contexts, not from the client.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: dialTimeout}).DialContext,
			TLSHandshakeTimeout: tlsHandshakeTimeout,
			IdleConnTimeout:     idleConnTimeout,
			MaxIdleConns:        10,
		},
	}
}
