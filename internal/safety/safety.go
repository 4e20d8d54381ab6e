// Package safety implements SafetyGate (spec.md §4.15): the last check
// before an answer leaves the pipeline, enforcing status determinism,
// recall grounding, and couples-mode attribution privacy.
package safety

import (
	"regexp"
	"strings"

	"github.com/Frankh1982/projectos/internal/bringup"
	"github.com/Frankh1982/projectos/internal/intent"
	"github.com/Frankh1982/projectos/internal/retrieval"
)

// Reason enumerates why the gate overrode the model's answer.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonStatusNonDeterministic Reason = "status_non_deterministic"
	ReasonRecallUngrounded       Reason = "recall_ungrounded"
	ReasonInventedPulseToken     Reason = "invented_pulse_token"
	ReasonAttributionLeak        Reason = "attribution_leak"
)

// FallbackNotRecorded is the deterministic fallback when no grounded
// evidence backs an answer that needed it.
const FallbackNotRecorded = "Not recorded / ambiguous."

// Input bundles everything the gate needs to judge one generated answer.
type Input struct {
	Intent                 intent.Intent
	ModelAnswer            string
	TruthBoundPulse        string
	HasPulseSnippet        bool
	Snippets               []retrieval.Snippet
	PartnerContextInjected bool
	AOFExcerpt             string
}

// Result is the gate's verdict: either the model's answer passed through
// unchanged, or it was overridden with the reason why.
type Result struct {
	Answer     string
	Overridden bool
	Reason     Reason
}

// groundingLabels are the retrieval snippet labels that count as
// grounding evidence for a recall answer.
var groundingLabels = map[string]bool{
	"PROJECT_STATE_JSON":  true,
	"FACTS_MAP_COMPACT":   true,
	"GLOBAL_MEMORY":       true,
}

// RequireGroundingForRecall reports whether at least one grounding
// snippet was present for this turn — a recall answer with none is
// ungrounded by construction, regardless of what the model produced.
func RequireGroundingForRecall(snippets []retrieval.Snippet) bool {
	for _, s := range snippets {
		if groundingLabels[s.Label] {
			return true
		}
	}
	return false
}

var pulseTokenMarkers = []string{"Project Pulse", "Bootstrap:", "Goal:", "Next actions:"}

// hasInventedPulseTokens reports whether the model answer reads like a
// hand-rolled status pulse despite no truth-bound pulse snippet backing it.
func hasInventedPulseTokens(answer string, hasPulseSnippet bool) bool {
	if hasPulseSnippet {
		return false
	}
	for _, m := range pulseTokenMarkers {
		if strings.Contains(answer, m) {
			return true
		}
	}
	return false
}

var attributionRe = regexp.MustCompile(`(?i)\b(she said|he said|they said|your partner said|from your partner'?s notes)\b`)

// HasAttributionLeak reports whether the answer attributes content to
// the partner by name/pronoun when partner context was injected — a
// privacy violation in couples mode (spec.md §4.15).
func HasAttributionLeak(answer string, partnerContextInjected bool) bool {
	return partnerContextInjected && attributionRe.MatchString(answer)
}

// AOFAwareFallback renders the deterministic fallback, citing the active
// object's evidence excerpt and asking one WIN (what-I-need) question
// when one is available.
func AOFAwareFallback(aofExcerpt string) string {
	if strings.TrimSpace(aofExcerpt) == "" {
		return FallbackNotRecorded
	}
	return FallbackNotRecorded + " Here's what I do have on file:\n" + aofExcerpt + "\nIs that what you meant?"
}

// Evaluate runs every SafetyGate check in order and returns either the
// original answer (untouched) or a deterministic/overridden one.
func Evaluate(in Input) Result {
	if in.Intent == intent.IntentStatus {
		return Result{Answer: in.TruthBoundPulse, Overridden: true, Reason: ReasonStatusNonDeterministic}
	}

	if in.Intent == intent.IntentRecall && !RequireGroundingForRecall(in.Snippets) {
		return Result{Answer: AOFAwareFallback(in.AOFExcerpt), Overridden: true, Reason: ReasonRecallUngrounded}
	}

	if hasInventedPulseTokens(in.ModelAnswer, in.HasPulseSnippet) {
		return Result{Answer: AOFAwareFallback(in.AOFExcerpt), Overridden: true, Reason: ReasonInventedPulseToken}
	}

	if HasAttributionLeak(in.ModelAnswer, in.PartnerContextInjected) {
		return Result{Answer: bringup.Neutralize(in.ModelAnswer), Overridden: true, Reason: ReasonAttributionLeak}
	}

	return Result{Answer: in.ModelAnswer}
}
