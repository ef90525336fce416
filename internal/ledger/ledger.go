// Package ledger records per-document batch outcomes in a local sqlite database.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Entry is one document outcome of one run.
type Entry struct {
	RunID     string
	Document  string
	Status    constants.DocumentStatus
	Stage     constants.Stage
	Reason    string
	Rows      int
	CreatedAt time.Time
}

type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS document_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT    NOT NULL,
	document   TEXT    NOT NULL,
	status     TEXT    NOT NULL,
	stage      TEXT    NOT NULL,
	reason     TEXT    NOT NULL DEFAULT '',
	row_count  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS document_events_run ON document_events(run_id);
`

// Open opens (creating if needed) the ledger database and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	dsn := "file:" + cfg.Path + "?" + q.Encode()

	logger.Info("ledger.open", "path", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("ledger.open.failed", "error", err)
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		logger.Error("ledger.migrate.failed", "error", err)
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

// HealthCheck pings the database.
func (l *Ledger) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return l.db.PingContext(ctx)
}

// Record appends one entry. A zero CreatedAt is stamped with the current time.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO document_events (run_id, document, status, stage, reason, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Document, string(e.Status), string(e.Stage), e.Reason, e.Rows,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		l.logger.Error("ledger.record.failed", "run_id", e.RunID, "document", e.Document, "error", err)
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListRun returns the entries of one run in insertion order.
func (l *Ledger) ListRun(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, document, status, stage, reason, row_count, created_at
		 FROM document_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			status  string
			stage   string
			created string
		)
		if err := rows.Scan(&e.RunID, &e.Document, &status, &stage, &e.Reason, &e.Rows, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Status = constants.DocumentStatus(status)
		e.Stage = constants.Stage(stage)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *Ledger) Close() error {
	l.logger.Debug("ledger.close")
	return l.db.Close()
}
