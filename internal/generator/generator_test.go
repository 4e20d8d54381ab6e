package generator

import (
	"strings"
	"testing"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/intent"
	"github.com/Frankh1982/projectos/internal/project"
	"github.com/Frankh1982/projectos/internal/retrieval"
)

func TestSelectSystemPrompt_RecallHybrid(t *testing.T) {
	in := Input{Intent: intent.IntentRecall, ProjectMode: project.ModeHybrid}
	if got := SelectSystemPrompt(in); got != hybridGroundedSystemPrompt {
		t.Errorf("got %q, want hybrid-grounded prompt", got)
	}
}

func TestSelectSystemPrompt_StatusClosedWorld(t *testing.T) {
	in := Input{Intent: intent.IntentStatus, ProjectMode: project.ModeClosedWorld}
	if got := SelectSystemPrompt(in); got != groundedSystemPrompt {
		t.Errorf("got %q, want grounded prompt", got)
	}
}

func TestSelectSystemPrompt_ActiveExpertFrame(t *testing.T) {
	in := Input{Intent: intent.IntentPlan, Expert: project.ExpertFrame{Status: project.ExpertFrameActive}}
	if got := SelectSystemPrompt(in); got != conversationalExpertSystemPrompt {
		t.Errorf("got %q, want conversational-expert prompt", got)
	}
}

func TestSelectSystemPrompt_DefaultExpert(t *testing.T) {
	in := Input{Intent: intent.IntentMisc}
	if got := SelectSystemPrompt(in); got != defaultExpertSystemPrompt {
		t.Errorf("got %q, want default-expert prompt", got)
	}
}

func TestSelectSystemPrompt_LookupWinsOutright(t *testing.T) {
	in := Input{Intent: intent.IntentRecall, ProjectMode: project.ModeHybrid, LookupMode: true}
	if got := SelectSystemPrompt(in); got != lookupSystemPrompt {
		t.Errorf("got %q, want lookup prompt", got)
	}
}

func TestLookupEvidenceDirective_AffirmativeBlocksRefusal(t *testing.T) {
	ev := &adapters.SearchEvidence{Results: []adapters.SearchResult{{Snippet: "officially confirmed today"}}}
	note := LookupEvidenceDirective(ev)
	if note == "" {
		t.Fatal("expected a non-empty directive")
	}
	if !strings.Contains(note, "Do not open with") {
		t.Errorf("expected refusal-blocking language, got %q", note)
	}
}

func TestLookupEvidenceDirective_UnconfirmedRequiresEnumeration(t *testing.T) {
	ev := &adapters.SearchEvidence{Results: []adapters.SearchResult{{Snippet: "some rumor"}}}
	note := LookupEvidenceDirective(ev)
	if !strings.Contains(note, "Enumerate exactly what IS confirmed") {
		t.Errorf("expected enumeration requirement, got %q", note)
	}
}

func TestLookupEvidenceDirective_NilEvidence(t *testing.T) {
	if note := LookupEvidenceDirective(nil); note != "" {
		t.Errorf("expected empty directive for nil evidence, got %q", note)
	}
}

func TestBuildMessages_HardOrdering(t *testing.T) {
	in := Input{
		Intent:             intent.IntentStatus,
		ProjectMode:        project.ModeClosedWorld,
		CKCLNote:           "CKCL",
		OnrampNote:         "ONRAMP",
		TimeBlock:          "TIME",
		BringupNote:        "BRINGUP",
		Expert:             project.ExpertFrame{Status: project.ExpertFrameActive, Label: "coach", Directive: "be blunt"},
		RecentTurns:        []adapters.Message{{Role: adapters.RoleUser, Content: "earlier turn"}},
		ContinuityNote:     "CONTINUITY",
		YesNoNote:          "YESNO",
		CCGNote:            "CCG",
		ConsensusFirstNote: "CONSENSUS",
		AnalysisHatNote:    "ANALYSIS",
		CanonicalSnippets:  []retrieval.Snippet{{Label: "PROJECT_STATE_JSON", Text: "{}"}},
		UserMessage:        "what's the status",
	}
	msgs := BuildMessages(in)

	wantOrder := []string{
		groundedSystemPrompt, "CKCL", "ONRAMP", "TIME", "BRINGUP",
	}
	for i, want := range wantOrder {
		if msgs[i].Content != want {
			t.Fatalf("msgs[%d] = %q, want %q", i, msgs[i].Content, want)
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role != adapters.RoleUser || last.Content != "what's the status" {
		t.Errorf("expected user message last, got %+v", last)
	}
	if msgs[len(msgs)-2].Content == "" || !strings.Contains(msgs[len(msgs)-2].Content, "CANONICAL_SNIPPETS") {
		t.Errorf("expected canonical snippets blob second-to-last, got %+v", msgs[len(msgs)-2])
	}
}

func TestBuildMessages_LastAssistantOutputOnlyWhenRequested(t *testing.T) {
	in := Input{
		Intent:                     intent.IntentMisc,
		IncludeLastAssistantOutput: false,
		LastAssistantOutput:        "previous reply",
		UserMessage:                "continue",
	}
	msgs := BuildMessages(in)
	for _, m := range msgs {
		if m.Role == adapters.RoleAssistant {
			t.Fatalf("did not expect an assistant message when not requested, got %+v", msgs)
		}
	}

	in.IncludeLastAssistantOutput = true
	msgs = BuildMessages(in)
	found := false
	for _, m := range msgs {
		if m.Role == adapters.RoleAssistant && m.Content == "previous reply" {
			found = true
		}
	}
	if !found {
		t.Error("expected last assistant output to be present when requested")
	}
}

