package facts

import (
	"strings"
	"testing"
	"time"

	"github.com/Frankh1982/projectos/internal/project"
)

func TestDistill_IdentityAndLocationRecall(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, nil)
	now := time.Now().UTC()

	_ = backend.AppendRawFact("frank", "memory_smoke", project.RawFact{
		Claim: "My preferred name is Frank.", Slot: project.SlotIdentity, Subject: project.SubjectUser,
		EntityKey: "user", Timestamp: now,
	})
	_ = backend.AppendRawFact("frank", "memory_smoke", project.RawFact{
		Claim: "I live in Austin, Texas.", Slot: project.SlotContext, Subject: project.SubjectUser,
		EntityKey: "location", Timestamp: now.Add(time.Second),
	})
	_ = backend.AppendRawFact("frank", "memory_smoke", project.RawFact{
		Claim: "My favorite color is green.", Slot: project.SlotPreference, Subject: project.SubjectUser,
		EntityKey: "color", Timestamp: now.Add(2 * time.Second),
	})

	if err := s.Distill("frank", "memory_smoke"); err != nil {
		t.Fatalf("Distill: %v", err)
	}

	md := strings.ToLower(backend.factsMap["frank/memory_smoke"])
	for _, want := range []string{"frank", "austin", "green"} {
		if !strings.Contains(md, want) {
			t.Errorf("facts_map missing expected fact %q; got:\n%s", want, md)
		}
	}
}

func TestDistill_IdentityPinnedFirst(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, nil)
	now := time.Now().UTC()

	_ = backend.AppendRawFact("frank", "p", project.RawFact{
		Claim: "Coffee helps me focus in the morning.", Slot: project.SlotPreference, Subject: project.SubjectUser,
		EntityKey: "coffee", Timestamp: now,
	})
	_ = backend.AppendRawFact("frank", "p", project.RawFact{
		Claim: "My preferred name is Frank.", Slot: project.SlotIdentity, Subject: project.SubjectUser,
		EntityKey: "user", Timestamp: now.Add(time.Second),
	})

	if err := s.Distill("frank", "p"); err != nil {
		t.Fatalf("Distill: %v", err)
	}
	md := backend.factsMap["frank/p"]
	identityIdx := strings.Index(md, "## Identity")
	preferenceIdx := strings.Index(md, "## Preference")
	if identityIdx == -1 || preferenceIdx == -1 {
		t.Fatalf("expected both sections present, got:\n%s", md)
	}
	if identityIdx > preferenceIdx {
		t.Errorf("expected Identity section before Preference section")
	}
}

func TestShouldDistill(t *testing.T) {
	if !ShouldDistill(true, 1, 3, false, false) {
		t.Error("expected immediate distill when Tier-1 was written this turn")
	}
	if !ShouldDistill(false, 3, 3, true, false) {
		t.Error("expected cadence distill on the Nth dirty turn")
	}
	if ShouldDistill(false, 2, 3, true, false) {
		t.Error("expected no distill off-cadence")
	}
	if !ShouldDistill(false, 2, 3, false, true) {
		t.Error("expected distill on a recall-shaped query regardless of cadence")
	}
}
