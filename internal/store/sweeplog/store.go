package sweeplog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Store keeps an append-only log of sweep reports so operators can answer
// "what did the last N reconciliation cycles do" without scraping logs.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Record is one persisted sweep summary.
type Record struct {
	ID            string   `json:"id"`
	StartedAt     int64    `json:"started_at"`
	FinishedAt    int64    `json:"finished_at"`
	Status        string   `json:"status"`
	TotalAccounts int      `json:"total_accounts"`
	SuccessCount  int      `json:"success_count"`
	FailureCount  int      `json:"failure_count"`
	SkippedCount  int      `json:"skipped_count"`
	BreachCount   int      `json:"breach_count"`
	AvgLatencyMs  int64    `json:"avg_latency_ms"`
	MaxLatencyMs  int64    `json:"max_latency_ms"`
	Errors        []string `json:"errors,omitempty"`
}

// NewStore opens (creating if needed) the sweep log database.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sweep log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sweep_reports (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	status TEXT NOT NULL,
	total_accounts INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	failure_count INTEGER NOT NULL,
	skipped_count INTEGER NOT NULL,
	breach_count INTEGER NOT NULL,
	avg_latency_ms INTEGER NOT NULL,
	max_latency_ms INTEGER NOT NULL,
	errors_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_sweep_reports_started ON sweep_reports(started_at);`
	_, err := s.db.Exec(ddl)
	return err
}

// Insert appends one sweep report.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("sweep record requires id")
	}
	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sweep_reports (
	id, started_at, finished_at, status,
	total_accounts, success_count, failure_count, skipped_count, breach_count,
	avg_latency_ms, max_latency_ms, errors_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt, rec.FinishedAt, rec.Status,
		rec.TotalAccounts, rec.SuccessCount, rec.FailureCount, rec.SkippedCount, rec.BreachCount,
		rec.AvgLatencyMs, rec.MaxLatencyMs, string(errorsJSON))
	return err
}

// ListRecent returns the newest reports first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, status,
	total_accounts, success_count, failure_count, skipped_count, breach_count,
	avg_latency_ms, max_latency_ms, errors_json
FROM sweep_reports ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var errorsJSON sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Status,
			&rec.TotalAccounts, &rec.SuccessCount, &rec.FailureCount, &rec.SkippedCount, &rec.BreachCount,
			&rec.AvgLatencyMs, &rec.MaxLatencyMs, &errorsJSON,
		); err != nil {
			return nil, err
		}
		if errorsJSON.Valid && errorsJSON.String != "" {
			_ = json.Unmarshal([]byte(errorsJSON.String), &rec.Errors)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
