// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The analysis pipeline depends only on these
// abstractions, so the upstream transport, the persistence layer and the
// logging backend can be swapped or stubbed independently.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/triage-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.triage/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Transport performs exactly one upstream chat-completion call for a prompt.
// Failures are *domain.Error values classified by kind.
type Transport interface {
	Send(ctx context.Context, prompt string) (domain.RawResponse, error)
}

// ResponseNormalizer turns a raw provider envelope into a fully shaped result.
type ResponseNormalizer interface {
	Normalize(raw domain.RawResponse, symptoms string) (domain.AnalysisResult, error)
}

// HealthChecker probes the upstream provider for the doctor command.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Usage(ctx context.Context) (domain.UsageStats, error)
}

// HistoryRepository persists analysis results between runs.
type HistoryRepository interface {
	Save(ctx context.Context, record domain.HistoryRecord) error
	Get(ctx context.Context, id string) (domain.HistoryRecord, error)
	Latest(ctx context.Context) (domain.HistoryRecord, error)
	Records(ctx context.Context, limit int, search string) ([]domain.HistoryRecord, error)
	Delete(ctx context.Context, id string) error
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Clear(ctx context.Context) error
	ExportJSON(ctx context.Context, dest string) error
	Path() string
}

// Clock abstracts time so normalization timestamps are testable.
type Clock interface {
	Now() time.Time
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
