// Package audit implements AuditTrace (spec.md §4.17): the per-turn
// record every pipeline run produces, built from the explicit decision
// context the pipeline threads through its stages (see internal/pipeline
// for the contextvars-to-value-type redesign spec.md §9 calls for).
package audit

import (
	"time"

	"github.com/Frankh1982/projectos/internal/project"
)

// Backend is the narrow persistence surface this package needs.
type Backend interface {
	AppendAuditEvent(user, proj string, ev project.AuditEvent) error
	ReadAuditLog(user, proj string) ([]project.AuditEvent, error)
}

// Timer measures one turn's wall-clock elapsed time without relying on
// any process-global clock state.
type Timer struct {
	start time.Time
}

// StartTimer begins timing a turn.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// ElapsedMS returns the milliseconds since StartTimer was called.
func (t Timer) ElapsedMS() int64 {
	return time.Since(t.start).Milliseconds()
}

// TurnRecord is every field one completed turn contributes to its
// audit event, gathered by the pipeline as it runs rather than read
// back out of ambient/global state.
type TurnRecord struct {
	TraceID      string
	User         string
	Proj         string
	CleanUserMsg string
	DoSearch     bool
	SearchLen    int
	ActiveExpert string
	Intent       string
	Scope        string
	LookupMode   bool
	AnswerLen    int
	ElapsedMS    int64
	DecisionCtx  map[string]any
}

// Record renders one TurnRecord into a project.AuditEvent and appends it.
func Record(backend Backend, r TurnRecord) error {
	ev := project.AuditEvent{
		Schema:       project.AuditSchemaV1,
		TraceID:      r.TraceID,
		ProjectFull:  r.User + "/" + r.Proj,
		CleanUserMsg: r.CleanUserMsg,
		DoSearch:     r.DoSearch,
		SearchLen:    r.SearchLen,
		ActiveExpert: r.ActiveExpert,
		Intent:       r.Intent,
		Scope:        r.Scope,
		LookupMode:   r.LookupMode,
		AnswerLen:    r.AnswerLen,
		ElapsedMS:    r.ElapsedMS,
		DecisionCtx:  r.DecisionCtx,
		Timestamp:    time.Now(),
	}
	return backend.AppendAuditEvent(r.User, r.Proj, ev)
}
