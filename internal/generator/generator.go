// Package generator implements GroundedGenerator (spec.md §4.14): strict,
// ordered assembly of the messages[] sent to the model, with mode
// selection and lookup-mode evidence enforcement.
package generator

import (
	"strings"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/intent"
	"github.com/Frankh1982/projectos/internal/project"
	"github.com/Frankh1982/projectos/internal/retrieval"
)

const groundedSystemPrompt = "You are the project's grounded assistant. Answer only from the injected project memory and retrieval snippets below; if something is not recorded there, say so plainly instead of guessing."

const hybridGroundedSystemPrompt = "You are the project's assistant in hybrid mode. Prefer the injected project memory and retrieval snippets, but you may draw on general knowledge to fill gaps — say explicitly when you are doing so."

const conversationalExpertSystemPrompt = "You are operating under an active expert frame for this project. Stay in that voice and apply its stated directive to every answer, grounding claims in project memory where it exists."

const defaultExpertSystemPrompt = "You are the project's general-purpose assistant. Be direct, avoid hedging you cannot support, and ground factual claims in the injected project memory where it exists."

const lookupSystemPrompt = "You are answering a lookup question using external search evidence. Use the evidence below as your primary source; never claim a blanket lack of access when evidence was actually retrieved."

// SelectSystemPrompt implements the GroundedGenerator mode-selection rule:
// lookup mode wins outright, then recall/status (hybrid-aware), then the
// active expert frame, else the default expert voice.
func SelectSystemPrompt(in Input) string {
	if in.LookupMode {
		return lookupSystemPrompt
	}
	switch in.Intent {
	case intent.IntentRecall, intent.IntentStatus:
		if in.ProjectMode == project.ModeHybrid {
			return hybridGroundedSystemPrompt
		}
		return groundedSystemPrompt
	default:
		if in.Expert.Status == project.ExpertFrameActive {
			return conversationalExpertSystemPrompt
		}
		return defaultExpertSystemPrompt
	}
}

var affirmativeEvidenceMarkers = []string{"confirmed", "official", "according to", "verified"}

func hasAffirmativeMarkers(ev *adapters.SearchEvidence) bool {
	for _, r := range ev.Results {
		text := strings.ToLower(r.Title + " " + r.Snippet + " " + r.Description)
		for _, m := range affirmativeEvidenceMarkers {
			if strings.Contains(text, m) {
				return true
			}
		}
	}
	return false
}

// LookupEvidenceDirective implements the §4.14 evidence-enforcement rule:
// when evidence affirmatively confirms the answer, block dodge/refusal
// openings outright; otherwise require enumerating what IS confirmed
// before any hedging.
func LookupEvidenceDirective(ev *adapters.SearchEvidence) string {
	if ev == nil {
		return ""
	}
	if hasAffirmativeMarkers(ev) || ev.Authority == adapters.AuthorityPrimaryConfirmed {
		return "LOOKUP_DIRECTIVE: the evidence below confirms this. Do not open with \"I lack access\" or any refusal; state the confirmed answer directly, then cite the evidence."
	}
	return "LOOKUP_DIRECTIVE: the evidence below is not fully confirmed. Enumerate exactly what IS confirmed before any hedging; never claim a blanket lack of access when partial evidence exists."
}

// DefaultOnrampNote returns the onramp system note when the project has
// not yet adopted a goal, empty otherwise.
func DefaultOnrampNote(boot project.BootstrapStatus) string {
	if boot == project.BootstrapNeedsGoal {
		return "ONRAMP: no goal is set for this project yet. Before answering unrelated specifics, ask one concise question to establish the goal."
	}
	return ""
}

// ExpertBehavioralNote renders the active expert frame's directive as a
// system note, empty when no frame is active.
func ExpertBehavioralNote(expert project.ExpertFrame) string {
	if expert.Status != project.ExpertFrameActive {
		return ""
	}
	return "EXPERT_FRAME: " + expert.Label + " — " + expert.Directive
}

// RenderCanonicalSnippetsBlob renders the retrieval snippets into the
// single CANONICAL_SNIPPETS system message, empty when there are none.
func RenderCanonicalSnippetsBlob(snippets []retrieval.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("CANONICAL_SNIPPETS:\n")
	for _, s := range snippets {
		b.WriteString(s.Label + ":\n" + s.Text + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Input bundles every already-computed note GroundedGenerator composes.
// Each stage upstream (ccg, bringup, timeaware, retrieval, ...) is
// responsible for computing its own note; this package only orders them.
type Input struct {
	Intent      intent.Intent
	ProjectMode project.ProjectMode
	Expert      project.ExpertFrame
	LookupMode  bool
	SearchEvidence *adapters.SearchEvidence

	CKCLNote            string
	OnrampNote          string
	TimeBlock           string
	TherapistFrame      string
	IntakeFrame         string
	BringupNote         string
	RecentTurns         []adapters.Message

	IncludeLastAssistantOutput bool
	LastAssistantOutput        string

	ContinuityNote      string
	YesNoNote           string
	CCGNote             string
	ConsensusFirstNote  string
	AnalysisHatNote     string
	EFLProposalNote     string
	CanonicalSnippets   []retrieval.Snippet

	UserMessage string
}

func sysMsg(content string) adapters.Message {
	return adapters.Message{Role: adapters.RoleSystem, Content: content}
}

func appendIfNonEmpty(msgs []adapters.Message, content string) []adapters.Message {
	if content == "" {
		return msgs
	}
	return append(msgs, sysMsg(content))
}

// BuildMessages assembles the final messages[] in the exact order
// spec.md §4.14 mandates.
func BuildMessages(in Input) []adapters.Message {
	var msgs []adapters.Message

	msgs = append(msgs, sysMsg(SelectSystemPrompt(in)))
	if in.LookupMode {
		msgs = appendIfNonEmpty(msgs, LookupEvidenceDirective(in.SearchEvidence))
	}
	msgs = appendIfNonEmpty(msgs, in.CKCLNote)
	msgs = appendIfNonEmpty(msgs, in.OnrampNote)
	msgs = appendIfNonEmpty(msgs, in.TimeBlock)
	msgs = appendIfNonEmpty(msgs, in.TherapistFrame)
	msgs = appendIfNonEmpty(msgs, in.IntakeFrame)
	msgs = appendIfNonEmpty(msgs, in.BringupNote)
	msgs = appendIfNonEmpty(msgs, ExpertBehavioralNote(in.Expert))

	msgs = append(msgs, in.RecentTurns...)

	if in.IncludeLastAssistantOutput && in.LastAssistantOutput != "" {
		msgs = append(msgs, adapters.Message{Role: adapters.RoleAssistant, Content: in.LastAssistantOutput})
	}

	msgs = appendIfNonEmpty(msgs, in.ContinuityNote)
	msgs = appendIfNonEmpty(msgs, in.YesNoNote)
	msgs = appendIfNonEmpty(msgs, in.CCGNote)
	msgs = appendIfNonEmpty(msgs, in.ConsensusFirstNote)
	msgs = appendIfNonEmpty(msgs, in.AnalysisHatNote)
	msgs = appendIfNonEmpty(msgs, in.EFLProposalNote)
	msgs = appendIfNonEmpty(msgs, RenderCanonicalSnippetsBlob(in.CanonicalSnippets))

	msgs = append(msgs, adapters.Message{Role: adapters.RoleUser, Content: in.UserMessage})
	return msgs
}
