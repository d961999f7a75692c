package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/imishinist/expctl/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  experiment  TEXT NOT NULL,
  model       TEXT,
  trainer     TEXT,
  enhancer    TEXT,
  loss        TEXT,
  trial       INTEGER,
  basepath    TEXT,
  command     TEXT,
  exit_code   INTEGER,
  error       TEXT,
  test_value  TEXT,
  test_error  TEXT,
  epoch       TEXT,
  speed       TEXT,
  seconds     TEXT,
  started_at  TEXT,
  finished_at TEXT
);
CREATE INDEX IF NOT EXISTS runs_experiment ON runs (experiment);`

// Entry is one trainer invocation.
type Entry struct {
	ID         int64
	Experiment string
	Key        models.RunKey
	BasePath   string
	Command    string
	ExitCode   int
	Error      string
	Record     models.LogRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ledger records trainer invocations in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores e and returns its row id.
func (l *Ledger) Record(e Entry) (int64, error) {
	res, err := l.db.Exec(
		`INSERT INTO runs (experiment, model, trainer, enhancer, loss, trial, basepath, command, exit_code, error,
		 test_value, test_error, epoch, speed, seconds, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Experiment, e.Key.Model, e.Key.Trainer, e.Key.Enhancer, e.Key.Loss, int(e.Key.Trial),
		e.BasePath, e.Command, e.ExitCode, e.Error,
		e.Record.TestValue, e.Record.TestError, e.Record.Epoch, e.Record.Speed, e.Record.Duration,
		formatTime(e.StartedAt), formatTime(e.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// List returns the recorded runs in insertion order, restricted to one
// experiment unless experiment is empty.
func (l *Ledger) List(experiment string) ([]Entry, error) {
	query := `SELECT id, experiment, model, trainer, enhancer, loss, trial, basepath, command, exit_code, error,
		test_value, test_error, epoch, speed, seconds, started_at, finished_at FROM runs`
	var args []any
	if experiment != "" {
		query += ` WHERE experiment = ?`
		args = append(args, experiment)
	}
	query += ` ORDER BY id`

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var trial int
		var started, finished sql.NullString
		if err := rows.Scan(&e.ID, &e.Experiment, &e.Key.Model, &e.Key.Trainer, &e.Key.Enhancer, &e.Key.Loss, &trial,
			&e.BasePath, &e.Command, &e.ExitCode, &e.Error,
			&e.Record.TestValue, &e.Record.TestError, &e.Record.Epoch, &e.Record.Speed, &e.Record.Duration,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		e.Key.Trial = models.Trial(trial)
		e.StartedAt = parseTime(started)
		e.FinishedAt = parseTime(finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
