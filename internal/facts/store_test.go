package facts

import (
	"testing"

	"github.com/Frankh1982/projectos/internal/project"
)

// fakeBackend is a minimal in-memory stand-in for internal/store.Store,
// written by hand rather than generated — this mirrors how the
// reference server's tests stub collaborators with small fake structs.
type fakeBackend struct {
	raw        map[string][]project.RawFact
	userRaw    map[string][]project.RawFact
	factsMap   map[string]string
	profiles   map[string]*project.UserProfile
	globalMaps map[string][]project.GlobalFact
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		raw:        make(map[string][]project.RawFact),
		userRaw:    make(map[string][]project.RawFact),
		factsMap:   make(map[string]string),
		profiles:   make(map[string]*project.UserProfile),
		globalMaps: make(map[string][]project.GlobalFact),
	}
}

func (f *fakeBackend) key(user, proj string) string { return user + "/" + proj }

func (f *fakeBackend) AppendRawFact(user, proj string, fact project.RawFact) error {
	k := f.key(user, proj)
	f.raw[k] = append(f.raw[k], fact)
	return nil
}

func (f *fakeBackend) AppendUserRawFact(user string, fact project.RawFact) error {
	f.userRaw[user] = append(f.userRaw[user], fact)
	return nil
}

func (f *fakeBackend) ReadRawFacts(user, proj string) ([]project.RawFact, error) {
	return f.raw[f.key(user, proj)], nil
}

func (f *fakeBackend) ReadUserRawFacts(user string) ([]project.RawFact, error) {
	return f.userRaw[user], nil
}

func (f *fakeBackend) RewriteRawFacts(user, proj string, facts []project.RawFact) error {
	f.raw[f.key(user, proj)] = facts
	return nil
}

func (f *fakeBackend) WriteFactsMap(user, proj string, markdown string) error {
	f.factsMap[f.key(user, proj)] = markdown
	return nil
}

func (f *fakeBackend) ReadFactsMap(user, proj string) (string, error) {
	return f.factsMap[f.key(user, proj)], nil
}

func (f *fakeBackend) LoadUserProfile(user string) (*project.UserProfile, error) {
	if p, ok := f.profiles[user]; ok {
		return p, nil
	}
	return &project.UserProfile{Schema: project.UserProfileSchema}, nil
}

func (f *fakeBackend) SaveUserProfile(user string, p *project.UserProfile) error {
	f.profiles[user] = p
	return nil
}

func (f *fakeBackend) LoadUserGlobalFactsMap(user string) ([]project.GlobalFact, error) {
	return f.globalMaps[user], nil
}

func (f *fakeBackend) SaveUserGlobalFactsMap(user string, facts []project.GlobalFact) error {
	f.globalMaps[user] = facts
	return nil
}

// fakePolicy lets tests force a do_not_store match for one entity_key.
type fakePolicy struct {
	denyEntityKey string
}

func (p fakePolicy) CheckWrite(user string, candidate project.RawFact) (project.PolicyAction, bool) {
	if p.denyEntityKey != "" && candidate.EntityKey == p.denyEntityKey {
		return project.PolicyDoNotStore, true
	}
	return "", false
}

func TestAppendFactRawCandidate_GuardRejectsReflectiveClaims(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, nil)

	res, err := s.AppendFactRawCandidate("frank", "memory_smoke", project.RawFact{
		Claim: "I'm worried this will never get better.",
		Slot:  project.SlotOther,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Written {
		t.Fatal("expected reflective claim to be rejected")
	}
	if res.Reason != "guard_rejected" {
		t.Errorf("reason = %q, want guard_rejected", res.Reason)
	}
	if got := len(backend.raw["frank/memory_smoke"]); got != 0 {
		t.Fatalf("expected no rows written, got %d", got)
	}
}

func TestAppendFactRawCandidate_PolicyDenied(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, nil)

	res, err := s.AppendFactRawCandidate("frank", "memory_smoke", project.RawFact{
		Claim:     "My ex's name is Taylor.",
		Slot:      project.SlotRelationship,
		Subject:   project.SubjectOther,
		EntityKey: "ex",
	}, fakePolicy{denyEntityKey: "ex"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Written {
		t.Fatal("expected policy-denied claim to be rejected")
	}
	if res.Reason != "policy_denied" {
		t.Errorf("reason = %q, want policy_denied", res.Reason)
	}
}

func TestAppendFactRawCandidate_WritesEligibleClaim(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, nil)

	res, err := s.AppendFactRawCandidate("frank", "memory_smoke", project.RawFact{
		Claim:   "My preferred name is Frank.",
		Slot:    project.SlotIdentity,
		Subject: project.SubjectUser,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Written {
		t.Fatal("expected eligible claim to be written")
	}
	if got := len(backend.raw["frank/memory_smoke"]); got != 1 {
		t.Fatalf("expected 1 row written, got %d", got)
	}
}
