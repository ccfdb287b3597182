package history

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/triage-go/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(id string, created time.Time, symptoms string, risk domain.RiskLevel) domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:        id,
		CreatedAt: created,
		Model:     domain.DefaultModel,
		Result: domain.AnalysisResult{
			RiskLevel:      risk,
			ProbableCauses: []domain.Item{{Title: "Tension headache", Description: "Stress related"}},
			Precautions:    []domain.Item{},
			HomeRemedies:   []domain.Item{{Title: "Rest"}},
			Urgency:        domain.UrgencyRoutine,
			Timestamp:      created.UTC(),
			Symptoms:       symptoms,
		},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := sampleRecord("rec-1", created, "headache for two days", domain.RiskLow)

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := sampleRecord("", time.Time{}, "persistent cough at night", domain.RiskModerate)
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if latest.ID == "" || latest.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", latest)
	}
}

func TestRecordsOrderLimitAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inputs := []domain.HistoryRecord{
		sampleRecord("a", base, "headache and nausea", domain.RiskLow),
		sampleRecord("b", base.Add(time.Hour), "chest pain when climbing stairs", domain.RiskHigh),
		sampleRecord("c", base.Add(2*time.Hour), "itchy rash on both arms", domain.RiskLow),
	}
	for _, rec := range inputs {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	all, err := store.Records(ctx, 0, "")
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	var ids []string
	for _, rec := range all {
		ids = append(ids, rec.ID)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	limited, _ := store.Records(ctx, 2, "")
	if len(limited) != 2 || limited[0].ID != "c" {
		t.Fatalf("unexpected limited records: %+v", limited)
	}

	matches, _ := store.Records(ctx, 0, "chest")
	if len(matches) != 1 || matches[0].ID != "b" {
		t.Fatalf("unexpected search result: %+v", matches)
	}

	byResult, _ := store.Records(ctx, 0, "Tension headache")
	if len(byResult) != 3 {
		t.Fatalf("search should cover stored results, got %d", len(byResult))
	}
}

func TestGetAndDeleteMissingRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("Get error = %v, want not found", err)
	}
	if _, err := store.Latest(ctx); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("Latest error = %v, want not found", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("Delete error = %v, want not found", err)
	}
}

func TestDeletePruneClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, age := range []time.Duration{100 * 24 * time.Hour, 95 * 24 * time.Hour, time.Hour, 0} {
		rec := sampleRecord(string(rune('a'+i)), now.Add(-age), "symptom description", domain.RiskLow)
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	if err := store.Delete(ctx, "d"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	removed, err := store.Prune(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Prune removed %d, want 2", removed)
	}
	remaining, _ := store.Records(ctx, 0, "")
	if len(remaining) != 1 || remaining[0].ID != "c" {
		t.Fatalf("unexpected remaining records: %+v", remaining)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if remaining, _ := store.Records(ctx, 0, ""); len(remaining) != 0 {
		t.Fatalf("expected empty history, got %d", len(remaining))
	}
}

func TestExportJSONFormats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	_ = store.Save(ctx, sampleRecord("one", base, "sore throat and fever", domain.RiskModerate))
	_ = store.Save(ctx, sampleRecord("two", base.Add(time.Minute), "sprained ankle while running", domain.RiskLow))

	dir := t.TempDir()
	arrayPath := filepath.Join(dir, "history.json")
	if err := store.ExportJSON(ctx, arrayPath); err != nil {
		t.Fatalf("ExportJSON error: %v", err)
	}
	raw, err := os.ReadFile(arrayPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var exported []domain.HistoryRecord
	if err := json.Unmarshal(raw, &exported); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(exported) != 2 || exported[0].ID != "two" {
		t.Fatalf("unexpected export: %+v", exported)
	}

	linesPath := filepath.Join(dir, "history.jsonl")
	if err := store.ExportJSON(ctx, linesPath); err != nil {
		t.Fatalf("ExportJSON jsonl error: %v", err)
	}
	raw, _ = os.ReadFile(linesPath)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", len(lines))
	}
}

func TestWriteLockReleased(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if store.lock.Locked() {
		t.Fatal("lock file still held after write")
	}
	if !strings.HasSuffix(store.lock.Path(), "history.db.lock") {
		t.Fatalf("unexpected lock path %s", store.lock.Path())
	}
}
