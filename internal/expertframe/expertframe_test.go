package expertframe

import (
	"testing"

	"github.com/Frankh1982/projectos/internal/project"
)

func TestInfer_MatchesKeyword(t *testing.T) {
	label, directive, reason, ok := Infer("I need help fixing a bug in my api handler")
	if !ok {
		t.Fatal("expected a match")
	}
	if label != "Software Engineer" || directive == "" || reason == "" {
		t.Errorf("got label=%q directive=%q reason=%q", label, directive, reason)
	}
}

func TestInfer_NoMatch(t *testing.T) {
	if _, _, _, ok := Infer("let's talk about the weather today"); ok {
		t.Error("expected no match")
	}
}

func TestDetectExplicitSet(t *testing.T) {
	label, ok := DetectExplicitSet("expert frame: Legal Advisor")
	if !ok || label != "Legal Advisor" {
		t.Errorf("got label=%q ok=%v", label, ok)
	}
}

func TestDetectExplicitSet_NoMatch(t *testing.T) {
	if _, ok := DetectExplicitSet("what is an expert frame"); ok {
		t.Error("expected no match")
	}
}

func TestDirectiveFor_KnownLabel(t *testing.T) {
	if d := DirectiveFor("software engineer"); d == "" {
		t.Error("expected a non-empty directive for a known label")
	}
}

func TestDirectiveFor_UnknownLabelFallsBackToGeneric(t *testing.T) {
	d := DirectiveFor("Astrologer")
	if d == "" {
		t.Error("expected a generic fallback directive")
	}
}

func TestSuppressed_WhenDecisionsExist(t *testing.T) {
	if !Suppressed(&project.State{}, true) {
		t.Error("expected suppression when decisions already exist")
	}
}

func TestSuppressed_WhenKeyFilesExist(t *testing.T) {
	if !Suppressed(&project.State{KeyFiles: []string{"plan.md"}}, false) {
		t.Error("expected suppression when key files already exist")
	}
}

func TestSuppressed_FalseForFreshProject(t *testing.T) {
	if Suppressed(&project.State{}, false) {
		t.Error("expected no suppression for a fresh project")
	}
}
