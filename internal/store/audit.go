package store

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) auditLogPath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "audit_log.jsonl")
}

// NewTraceID mints a per-turn trace identifier. The Python original threaded
// this through contextvars; here it is an explicit value the caller carries
// in pipeline.Context instead (spec.md §9 REDESIGN FLAG).
func NewTraceID() string {
	return uuid.NewString()
}

// AppendAuditEvent writes one per-turn trace record to the authoritative
// JSONL log, then best-effort mirrors it into the derived SQLite index so
// !ledger queries don't have to scan the log. A mirror failure never fails
// the turn — the JSONL file stays authoritative.
func (s *Store) AppendAuditEvent(user, proj string, ev project.AuditEvent) error {
	if ev.Schema == "" {
		ev.Schema = project.AuditSchemaV1
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.auditLogPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	if err := appendJSONL(path, ev); err != nil {
		lock.Unlock()
		return err
	}
	lock.Unlock()

	if s.auditIndex != nil {
		if err := s.auditIndex.insert(ev); err != nil {
			s.log.Warnw("audit sqlite mirror insert failed", "err", err, "trace_id", ev.TraceID)
		}
	}
	return nil
}

// ReadAuditLog returns every trace record for (user, project), oldest-first,
// straight from the JSONL log. The !ledger queries do not use it; they read
// only the derived index.
func (s *Store) ReadAuditLog(user, proj string) ([]project.AuditEvent, error) {
	path := s.auditLogPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var out []project.AuditEvent
	err := readJSONLInto(path, func(line []byte) error {
		var ev project.AuditEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return err
		}
		out = append(out, ev)
		return nil
	})
	return out, err
}
