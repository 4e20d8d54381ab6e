package safety

import (
	"strings"
	"testing"

	"github.com/Frankh1982/projectos/internal/intent"
	"github.com/Frankh1982/projectos/internal/retrieval"
)

func TestEvaluate_StatusAlwaysDeterministic(t *testing.T) {
	in := Input{Intent: intent.IntentStatus, ModelAnswer: "whatever the model said", TruthBoundPulse: "Project Pulse\n============="}
	res := Evaluate(in)
	if !res.Overridden || res.Reason != ReasonStatusNonDeterministic {
		t.Fatalf("got %+v", res)
	}
	if res.Answer != in.TruthBoundPulse {
		t.Errorf("expected pulse text verbatim, got %q", res.Answer)
	}
}

func TestEvaluate_RecallWithoutGroundingFallsBack(t *testing.T) {
	in := Input{Intent: intent.IntentRecall, ModelAnswer: "your birthday is in April", Snippets: nil}
	res := Evaluate(in)
	if !res.Overridden || res.Reason != ReasonRecallUngrounded {
		t.Fatalf("got %+v", res)
	}
}

func TestEvaluate_RecallWithGroundingPassesThrough(t *testing.T) {
	in := Input{
		Intent:      intent.IntentRecall,
		ModelAnswer: "your birthday is April 12th",
		Snippets:    []retrieval.Snippet{{Label: "GLOBAL_MEMORY", Text: "birthdate: 1990-04-12"}},
	}
	res := Evaluate(in)
	if res.Overridden {
		t.Fatalf("expected no override, got %+v", res)
	}
}

func TestEvaluate_InventedPulseTokenRejected(t *testing.T) {
	in := Input{
		Intent:          intent.IntentMisc,
		ModelAnswer:     "Project Pulse\nGoal: launch the thing\nBootstrap: active",
		HasPulseSnippet: false,
	}
	res := Evaluate(in)
	if !res.Overridden || res.Reason != ReasonInventedPulseToken {
		t.Fatalf("got %+v", res)
	}
}

func TestEvaluate_PulseTokensAllowedWithSnippet(t *testing.T) {
	in := Input{
		Intent:          intent.IntentMisc,
		ModelAnswer:     "Goal: launch the thing",
		HasPulseSnippet: true,
	}
	res := Evaluate(in)
	if res.Overridden {
		t.Fatalf("expected no override when pulse snippet backs it, got %+v", res)
	}
}

func TestEvaluate_AttributionLeakNeutralized(t *testing.T) {
	in := Input{
		Intent:                 intent.IntentMisc,
		ModelAnswer:             "Your partner said they feel ignored.",
		PartnerContextInjected: true,
	}
	res := Evaluate(in)
	if !res.Overridden || res.Reason != ReasonAttributionLeak {
		t.Fatalf("got %+v", res)
	}
	if strings.Contains(strings.ToLower(res.Answer), "your partner said") {
		t.Errorf("expected attribution phrase to be neutralized, got %q", res.Answer)
	}
}

func TestEvaluate_NoPartnerContextNoLeakCheck(t *testing.T) {
	in := Input{
		Intent:                 intent.IntentMisc,
		ModelAnswer:             "Your partner said they feel ignored.",
		PartnerContextInjected: false,
	}
	res := Evaluate(in)
	if res.Overridden {
		t.Fatalf("expected no override when no partner context was injected, got %+v", res)
	}
}

func TestAOFAwareFallback_WithAndWithoutExcerpt(t *testing.T) {
	if got := AOFAwareFallback(""); got != FallbackNotRecorded {
		t.Errorf("got %q, want bare fallback", got)
	}
	got := AOFAwareFallback("budget.xlsx: Q3 totals")
	if !strings.Contains(got, "budget.xlsx") {
		t.Errorf("expected AOF excerpt cited, got %q", got)
	}
}
