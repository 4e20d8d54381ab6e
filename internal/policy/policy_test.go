package policy

import (
	"testing"

	"github.com/Frankh1982/projectos/internal/project"
)

func TestCheckWrite_DoNotStoreBlocks(t *testing.T) {
	e := New()
	e.SetRules("frank", []project.PolicyRule{
		{Action: project.PolicyDoNotStore, MatchType: project.MatchEntityKey, MatchValue: "ex"},
	})

	action, matched := e.CheckWrite("frank", project.RawFact{EntityKey: "ex", Claim: "My ex moved to Denver."})
	if !matched || action != project.PolicyDoNotStore {
		t.Fatalf("expected do_not_store match, got action=%q matched=%v", action, matched)
	}

	_, matched = e.CheckWrite("frank", project.RawFact{EntityKey: "logan", Claim: "Logan is 7."})
	if matched {
		t.Fatal("expected no match for unrelated entity_key")
	}
}

func TestPolicyDecisionForTier1Claim_ProjectOnly(t *testing.T) {
	e := New()
	e.SetRules("frank", []project.PolicyRule{
		{Action: project.PolicyProjectOnly, MatchType: project.MatchSubstring, MatchValue: "visa"},
	})

	d := e.PolicyDecisionForTier1Claim("frank", "", "I'm on an E-2 visa.")
	if !d.Store || d.MirrorGlobal || !d.AllowResurface {
		t.Errorf("decision = %+v, want store=true mirror_global=false allow_resurface=true", d)
	}
}

func TestPolicyDecisionForTier1Claim_DoNotResurface(t *testing.T) {
	e := New()
	e.SetRules("frank", []project.PolicyRule{
		{Action: project.PolicyDoNotResurface, MatchType: project.MatchSubstring, MatchValue: "divorce"},
	})

	d := e.PolicyDecisionForTier1Claim("frank", "", "I'm getting married after the divorce is finalized.")
	if !d.Store || !d.MirrorGlobal || d.AllowResurface {
		t.Errorf("decision = %+v, want allow_resurface=false only", d)
	}
}

func TestFilterResurfaceable(t *testing.T) {
	e := New()
	e.SetRules("frank", []project.PolicyRule{
		{Action: project.PolicyDoNotResurface, MatchType: project.MatchEntityKey, MatchValue: "ex"},
	})

	facts := []project.CompactFact{
		{EntityKey: "ex", Claim: "ex lives in Denver"},
		{EntityKey: "logan", Claim: "Logan is 7"},
	}
	out := e.FilterResurfaceable("frank", facts)
	if len(out) != 1 || out[0].EntityKey != "logan" {
		t.Fatalf("expected only logan's fact to survive, got %+v", out)
	}
}

func TestParseNLPolicyCommand(t *testing.T) {
	cases := []struct {
		msg        string
		wantOK     bool
		wantAction project.PolicyAction
	}{
		{"Don't store my ex's name.", true, project.PolicyDoNotStore},
		{"Keep my visa status in this project only.", true, project.PolicyProjectOnly},
		{"Never bring up the divorce again.", true, project.PolicyDoNotResurface},
		{"What's my preferred name?", false, ""},
	}
	for _, c := range cases {
		rule, ok := ParseNLPolicyCommand(c.msg)
		if ok != c.wantOK {
			t.Errorf("ParseNLPolicyCommand(%q) ok = %v, want %v", c.msg, ok, c.wantOK)
			continue
		}
		if ok && rule.Action != c.wantAction {
			t.Errorf("ParseNLPolicyCommand(%q) action = %q, want %q", c.msg, rule.Action, c.wantAction)
		}
	}
}
