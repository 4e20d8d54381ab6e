package timeaware

import (
	"strings"
	"testing"
	"time"

	"github.com/Frankh1982/projectos/internal/project"
)

func TestResolveLocation_DefaultsToChicago(t *testing.T) {
	loc := ResolveLocation("")
	if loc.String() != DefaultZone {
		t.Errorf("loc = %q, want %q", loc.String(), DefaultZone)
	}
}

func TestResolveLocation_InvalidFallsBackToDefault(t *testing.T) {
	loc := ResolveLocation("Not/AZone")
	if loc.String() != DefaultZone {
		t.Errorf("loc = %q, want fallback %q", loc.String(), DefaultZone)
	}
}

func TestBlock_BirthdayFlag(t *testing.T) {
	loc := ResolveLocation(DefaultZone)
	now := time.Date(2026, 4, 12, 9, 0, 0, 0, loc)
	block := Block(now, loc, "1990-04-12")
	if !strings.Contains(block, "TIME_FLAG: birthday_today=true") {
		t.Errorf("expected birthday flag in block:\n%s", block)
	}
	if !strings.Contains(block, "daypart=morning") {
		t.Errorf("expected morning daypart in block:\n%s", block)
	}
}

func TestBlock_NoBirthdayFlagOnOtherDays(t *testing.T) {
	loc := ResolveLocation(DefaultZone)
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, loc)
	block := Block(now, loc, "1990-04-12")
	if strings.Contains(block, "TIME_FLAG") {
		t.Errorf("expected no birthday flag, got:\n%s", block)
	}
}

func TestAppendAnchor_DedupeWithinWindow(t *testing.T) {
	now := time.Now()
	existing := []project.TimeAnchor{{Label: "put the lasagna in the oven", TS: now, TZ: "America/Chicago"}}
	next := project.TimeAnchor{Label: "put the lasagna in the oven", TS: now.Add(30 * time.Second), TZ: "America/Chicago"}

	out := AppendAnchor(existing, next)
	if len(out) != 1 {
		t.Fatalf("expected dedupe within 120s, got %d anchors", len(out))
	}
}

func TestAppendAnchor_CapsAtMax(t *testing.T) {
	var existing []project.TimeAnchor
	now := time.Now()
	for i := 0; i < project.MaxTimeAnchors+3; i++ {
		existing = AppendAnchor(existing, project.TimeAnchor{
			Label: "event", TS: now.Add(time.Duration(i) * time.Hour), TZ: "UTC",
		})
	}
	if len(existing) != project.MaxTimeAnchors {
		t.Fatalf("len = %d, want %d", len(existing), project.MaxTimeAnchors)
	}
}

func TestDetectAnchor_ConservativeMatch(t *testing.T) {
	a, ok := DetectAnchor("I just put the lasagna in the oven", time.Now(), "America/Chicago")
	if !ok {
		t.Fatal("expected a start-event match")
	}
	if a.Label == "" {
		t.Error("expected a non-empty label")
	}
}

func TestDetectAnchor_NoMatchOnUnrelatedText(t *testing.T) {
	_, ok := DetectAnchor("what's for dinner tonight?", time.Now(), "America/Chicago")
	if ok {
		t.Error("expected no anchor match for unrelated text")
	}
}
