package domain

import (
	"errors"
	"time"
)

// HistoryRecord is a persisted analysis result.
type HistoryRecord struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Model     string         `json:"model"`
	Result    AnalysisResult `json:"result"`
}

// ErrHistoryNotFound is returned when a history lookup matches no record.
var ErrHistoryNotFound = errors.New("history record not found")
