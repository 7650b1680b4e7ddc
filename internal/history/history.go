// Package history records paste activity in a local SQLite database so the
// user can see which snippets earn their keep.
//
// Only metadata is stored: prompt name, character count, session type, and
// outcome. The pasted text itself is never written to disk here.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the paste-history store.
const schema = `
CREATE TABLE IF NOT EXISTS pastes (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ns INTEGER NOT NULL,
    prompt_name  TEXT NOT NULL,
    chars        INTEGER NOT NULL,
    session_type TEXT NOT NULL,
    outcome      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pastes_timestamp ON pastes(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_pastes_prompt ON pastes(prompt_name, timestamp_ns);
`

// Outcome labels for a paste attempt.
const (
	OutcomeSuccess      = "success"
	OutcomeToolFailure  = "tool_failure"
	OutcomeNoCapability = "no_capability"
)

// Record is one paste attempt.
type Record struct {
	ID          int64
	Timestamp   time.Time
	PromptName  string
	Chars       int
	SessionType string
	Outcome     string
}

// DayCount is a per-day aggregate.
type DayCount struct {
	Day    string // YYYY-MM-DD, local time
	Pastes int
	Chars  int
}

// Totals summarizes all recorded activity. Pastes and Chars count
// successful attempts only; Failures counts the rest.
type Totals struct {
	Pastes    int
	Chars     int
	Failures  int
	FirstUsed time.Time
	LastUsed  time.Time
}

// PromptCount aggregates usage per prompt.
type PromptCount struct {
	PromptName string
	Pastes     int
}

// Store is the SQLite history store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordPaste inserts one paste attempt.
func (s *Store) RecordPaste(r Record) (int64, error) {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO pastes (timestamp_ns, prompt_name, chars, session_type, outcome)
		VALUES (?, ?, ?, ?, ?)`,
		ts.UnixNano(), r.PromptName, r.Chars, r.SessionType, r.Outcome,
	)
	if err != nil {
		return 0, fmt.Errorf("insert paste: %w", err)
	}
	return res.LastInsertId()
}

// Totals returns the all-time summary.
func (s *Store) Totals() (Totals, error) {
	var t Totals
	var firstNs, lastNs sql.NullInt64

	err := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN chars ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome != ? THEN 1 ELSE 0 END), 0),
			MIN(timestamp_ns),
			MAX(timestamp_ns)
		FROM pastes`,
		OutcomeSuccess, OutcomeSuccess, OutcomeSuccess,
	).Scan(&t.Pastes, &t.Chars, &t.Failures, &firstNs, &lastNs)
	if err != nil {
		return Totals{}, fmt.Errorf("query totals: %w", err)
	}

	if firstNs.Valid {
		t.FirstUsed = time.Unix(0, firstNs.Int64)
	}
	if lastNs.Valid {
		t.LastUsed = time.Unix(0, lastNs.Int64)
	}
	return t, nil
}

// RecentDays returns per-day aggregates for the last n days, newest first.
func (s *Store) RecentDays(n int) ([]DayCount, error) {
	since := time.Now().AddDate(0, 0, -n)

	rows, err := s.db.Query(`
		SELECT
			date(timestamp_ns / 1000000000, 'unixepoch', 'localtime') AS day,
			COUNT(*),
			COALESCE(SUM(chars), 0)
		FROM pastes
		WHERE timestamp_ns >= ?
		GROUP BY day
		ORDER BY day DESC`,
		since.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query recent days: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Pastes, &d.Chars); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopPrompts returns the most-pasted prompts, up to limit.
func (s *Store) TopPrompts(limit int) ([]PromptCount, error) {
	rows, err := s.db.Query(`
		SELECT prompt_name, COUNT(*) AS n
		FROM pastes
		WHERE outcome = ?
		GROUP BY prompt_name
		ORDER BY n DESC, prompt_name ASC
		LIMIT ?`,
		OutcomeSuccess, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top prompts: %w", err)
	}
	defer rows.Close()

	var out []PromptCount
	for rows.Next() {
		var p PromptCount
		if err := rows.Scan(&p.PromptName, &p.Pastes); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Clear deletes all history rows.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM pastes`)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
