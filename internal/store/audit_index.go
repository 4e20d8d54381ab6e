package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Frankh1982/projectos/internal/project"
)

// auditIndex is a derived, rebuildable SQLite mirror of audit_log.jsonl.
// It exists only to answer !ledger queries (by trace_id, by intent, by
// time range) without scanning every JSONL file; audit_log.jsonl stays
// the source of truth (spec.md §6).
type auditIndex struct {
	db *sql.DB
}

func openAuditIndex(path string) (*auditIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	idx := &auditIndex{db: db}
	if err := idx.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (a *auditIndex) close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *auditIndex) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT NOT NULL,
			project_full TEXT NOT NULL,
			intent TEXT NOT NULL,
			scope TEXT NOT NULL,
			lookup_mode INTEGER NOT NULL,
			answer_len INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			ts TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_trace_id ON audit_events(trace_id);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_intent ON audit_events(intent);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *auditIndex) insert(ev project.AuditEvent) error {
	lookupMode := 0
	if ev.LookupMode {
		lookupMode = 1
	}
	_, err := a.db.ExecContext(context.Background(),
		`INSERT INTO audit_events (trace_id, project_full, intent, scope, lookup_mode, answer_len, elapsed_ms, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TraceID, ev.ProjectFull, ev.Intent, ev.Scope, lookupMode, ev.AnswerLen, ev.ElapsedMS, ev.Timestamp.Format(time.RFC3339Nano),
	)
	return err
}

// byTraceID returns every row matching trace_id, oldest-first.
func (a *auditIndex) byTraceID(traceID string) ([]LedgerRow, error) {
	return a.query(`SELECT trace_id, project_full, intent, scope, lookup_mode, answer_len, elapsed_ms, ts
		FROM audit_events WHERE trace_id = ? ORDER BY id ASC`, traceID)
}

// byIntent returns the most recent n rows matching intent.
func (a *auditIndex) byIntent(intent string, n int) ([]LedgerRow, error) {
	return a.query(`SELECT trace_id, project_full, intent, scope, lookup_mode, answer_len, elapsed_ms, ts
		FROM audit_events WHERE intent = ? ORDER BY id DESC LIMIT ?`, intent, n)
}

// sinceTime returns rows with ts >= since, oldest-first.
func (a *auditIndex) sinceTime(since time.Time) ([]LedgerRow, error) {
	return a.query(`SELECT trace_id, project_full, intent, scope, lookup_mode, answer_len, elapsed_ms, ts
		FROM audit_events WHERE ts >= ? ORDER BY id ASC`, since.Format(time.RFC3339Nano))
}

func (a *auditIndex) query(q string, args ...any) ([]LedgerRow, error) {
	rows, err := a.db.QueryContext(context.Background(), q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var r LedgerRow
		var lookupMode int
		var ts string
		if err := rows.Scan(&r.TraceID, &r.ProjectFull, &r.Intent, &r.Scope, &lookupMode, &r.AnswerLen, &r.ElapsedMS, &ts); err != nil {
			return nil, err
		}
		r.LookupMode = lookupMode != 0
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LedgerRow is one !ledger query result row.
type LedgerRow struct {
	TraceID     string
	ProjectFull string
	Intent      string
	Scope       string
	LookupMode  bool
	AnswerLen   int
	ElapsedMS   int64
	Timestamp   time.Time
}

// LedgerByTraceID answers "!ledger trace <id>".
func (s *Store) LedgerByTraceID(traceID string) ([]LedgerRow, error) {
	if s.auditIndex == nil {
		return nil, nil
	}
	return s.auditIndex.byTraceID(traceID)
}

// LedgerByIntent answers "!ledger intent <name>".
func (s *Store) LedgerByIntent(intent string, limit int) ([]LedgerRow, error) {
	if s.auditIndex == nil {
		return nil, nil
	}
	return s.auditIndex.byIntent(intent, limit)
}

// LedgerSince answers "!ledger since <time>".
func (s *Store) LedgerSince(since time.Time) ([]LedgerRow, error) {
	if s.auditIndex == nil {
		return nil, nil
	}
	return s.auditIndex.sinceTime(since)
}
