package audit

import (
	"testing"
	"time"

	"github.com/Frankh1982/projectos/internal/project"
)

type fakeBackend struct {
	events []project.AuditEvent
}

func (b *fakeBackend) AppendAuditEvent(user, proj string, ev project.AuditEvent) error {
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBackend) ReadAuditLog(user, proj string) ([]project.AuditEvent, error) {
	return b.events, nil
}

func TestTimer_ElapsedMSIsNonNegative(t *testing.T) {
	timer := StartTimer()
	time.Sleep(time.Millisecond)
	if timer.ElapsedMS() < 0 {
		t.Errorf("expected non-negative elapsed ms, got %d", timer.ElapsedMS())
	}
}

func TestRecord_AppendsCompleteEvent(t *testing.T) {
	backend := &fakeBackend{}
	err := Record(backend, TurnRecord{
		TraceID:      "trace-1",
		User:         "alex",
		Proj:         "kitchen-remodel",
		CleanUserMsg: "what's the status",
		Intent:       "status",
		Scope:        "current_project",
		AnswerLen:    42,
		ElapsedMS:    15,
		DecisionCtx:  map[string]any{"mode": "grounded"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.events) != 1 {
		t.Fatalf("expected one event, got %d", len(backend.events))
	}
	ev := backend.events[0]
	if ev.Schema != project.AuditSchemaV1 {
		t.Errorf("expected schema %q, got %q", project.AuditSchemaV1, ev.Schema)
	}
	if ev.ProjectFull != "alex/kitchen-remodel" {
		t.Errorf("expected project_full composed from user/proj, got %q", ev.ProjectFull)
	}
	if ev.DecisionCtx["mode"] != "grounded" {
		t.Errorf("expected decision context to carry through, got %+v", ev.DecisionCtx)
	}
}
