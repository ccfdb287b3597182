package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/pkg/filesystem"
	"github.com/doeshing/triage-go/internal/ports"
)

// storedTimeFormat keeps a fixed width so created_at sorts lexically.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const lockRetryDelay = 50 * time.Millisecond

const selectColumns = "SELECT id, created_at, model, result FROM analyses"

// SQLiteStore persists analysis results in a SQLite database. Writes are
// serialized across processes through a lock file next to the database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = filesystem.ExpandPath(path)
	if path == "" {
		path = filepath.Join(filesystem.AppDir(), "history.db")
	}
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path, lock: flock.New(path + ".lock")}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		model TEXT,
		risk_level TEXT,
		symptoms TEXT,
		result TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`,
}

func (s *SQLiteStore) init() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init history schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts a new record. An empty ID is replaced by a UUID and a zero
// CreatedAt by the current time.
func (s *SQLiteStore) Save(ctx context.Context, record domain.HistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return s.withWriteLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO analyses
			(id, created_at, model, risk_level, symptoms, result)
			VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID,
			formatTime(record.CreatedAt),
			record.Model,
			string(record.Result.RiskLevel),
			record.Result.Symptoms,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert history record: %w", err)
		}
		return nil
	})
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", strings.TrimSpace(id))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryRecord{}, fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, id)
	}
	return rec, err
}

// Latest returns the most recent record.
func (s *SQLiteStore) Latest(ctx context.Context) (domain.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" ORDER BY created_at DESC LIMIT 1")
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryRecord{}, domain.ErrHistoryNotFound
	}
	return rec, err
}

// Records returns history entries newest first. A limit <= 0 returns every
// match; search filters on symptoms and the stored result.
func (s *SQLiteStore) Records(ctx context.Context, limit int, search string) ([]domain.HistoryRecord, error) {
	builder := strings.Builder{}
	builder.WriteString(selectColumns)
	var args []interface{}
	if search = strings.TrimSpace(search); search != "" {
		builder.WriteString(" WHERE symptoms LIKE ? OR result LIKE ?")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	builder.WriteString(" ORDER BY created_at DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a single record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", strings.TrimSpace(id))
		if err != nil {
			return fmt.Errorf("delete history record: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, id)
		}
		return nil
	})
}

// Prune deletes records created before olderThan and reports how many were
// removed.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	var removed int64
	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE created_at < ?", formatTime(olderThan))
		if err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.withWriteLock(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM analyses"); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		return nil
	})
}

// ExportJSON writes every record to dest. A .jsonl destination gets one
// record per line, anything else an indented JSON array.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dest string) error {
	records, err := s.Records(ctx, 0, "")
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(dest), ".jsonl") {
		for _, rec := range records {
			line, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			data = append(data, line...)
			data = append(data, '\n')
		}
	} else {
		if data, err = json.MarshalIndent(records, "", "  "); err != nil {
			return err
		}
		data = append(data, '\n')
	}

	dest = filesystem.ExpandPath(dest)
	if err := filesystem.EnsureParentDir(dest, domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return os.WriteFile(dest, data, domain.SecureFilePermissions)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) withWriteLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock history: %s is busy", s.lock.Path())
	}
	defer func() {
		_ = s.lock.Unlock()
	}()
	return fn()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (domain.HistoryRecord, error) {
	var (
		rec     domain.HistoryRecord
		created string
		model   sql.NullString
		payload string
	)
	if err := row.Scan(&rec.ID, &created, &model, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HistoryRecord{}, err
		}
		return domain.HistoryRecord{}, fmt.Errorf("scan history record: %w", err)
	}
	rec.Model = model.String
	if t, err := time.Parse(storedTimeFormat, created); err == nil {
		rec.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(payload), &rec.Result); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("decode history record %s: %w", rec.ID, err)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
