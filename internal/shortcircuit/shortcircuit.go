// Package shortcircuit implements CommandShortCircuit (spec.md §4.13):
// deterministic turn resolution that never invokes the model.
package shortcircuit

import (
	"regexp"
	"strings"
)

const MaxShortFormLen = 60

var pulseForms = []string{
	"pulse", "status", "resume", "show status", "show pulse", "project status",
	"what's the status", "whats the status", "what's my status", "project pulse",
}

// IsPulseCommand matches the short exact/verb+scope pulse-status-resume
// forms spec.md §4.13 enumerates, bounded to MaxShortFormLen so it never
// fires on an ordinary long sentence that happens to contain "status".
func IsPulseCommand(msg string) bool {
	return matchesShortForm(msg, pulseForms)
}

var inboxForms = []string{
	"inbox", "pending", "show inbox", "what's pending", "whats pending", "check inbox",
}

// IsInboxCommand matches the inbox/pending short forms.
func IsInboxCommand(msg string) bool {
	return matchesShortForm(msg, inboxForms)
}

func matchesShortForm(msg string, forms []string) bool {
	trimmed := strings.ToLower(strings.TrimRight(strings.TrimSpace(msg), "?!."))
	if len(trimmed) == 0 || len(trimmed) > MaxShortFormLen {
		return false
	}
	for _, f := range forms {
		if trimmed == f {
			return true
		}
	}
	return false
}

// constraintDeclarationForms are the enumerated short constraint
// directives CommandShortCircuit recognizes and appends verbatim to
// user_rules — matched against the whole trimmed message so an
// incidental mention mid-sentence never registers as a declaration.
var constraintDeclarationForms = []string{
	"no questions", "do not ask questions", "don't ask questions",
	"one word only", "single word answers", "word only",
	"no explanations", "do not explain", "don't explain",
	"no emoji", "no emojis",
	"be decisive", "stop hedging", "no hedging",
}

var neverSayRe = regexp.MustCompile(`(?i)^(?:never|do not|don't)\s+say\s+.+$`)

// IsConstraintDeclaration reports whether msg, taken as a whole
// standalone message, is one of the recognized constraint-declaration
// forms (never a goal, never a project description).
func IsConstraintDeclaration(msg string) bool {
	trimmed := strings.ToLower(strings.TrimRight(strings.TrimSpace(msg), "!."))
	if trimmed == "" {
		return false
	}
	for _, f := range constraintDeclarationForms {
		if trimmed == f {
			return true
		}
	}
	return neverSayRe.MatchString(strings.TrimSpace(msg))
}

const UnderstoodReply = "Understood."

var yesNoRe = regexp.MustCompile(`(?i)^(yes|yeah|yep|yup|y|no|nope|nah|n)[.!]?$`)

// IsYesNoReply reports whether msg is a bare yes/no style reply.
func IsYesNoReply(msg string) bool {
	return yesNoRe.MatchString(strings.TrimSpace(msg))
}

var yesNoQuestionMarkerRe = regexp.MustCompile(`(?i)(yes or no|\(y/n\)|\(yes/no\))\s*\??\s*$|\?\s*$`)

// AssistantAskedYesNo reports whether the most recent assistant message
// reads as a yes/no question (ends with a marker like "yes or no?" or
// simply a trailing "?" — the latter is intentionally loose since most
// assistant questions in this domain are yes/no confirmations).
func AssistantAskedYesNo(lastAssistantMsg string) bool {
	return yesNoQuestionMarkerRe.MatchString(strings.TrimSpace(lastAssistantMsg))
}

// BuildYesNoBindingNote renders the deterministic system note binding a
// bare yes/no reply to the specific question it answers, before the
// turn regenerates (spec.md §4.13).
func BuildYesNoBindingNote(lastQuestion, answer string) string {
	return "YES_NO_BINDING: the user's reply \"" + strings.TrimSpace(answer) +
		"\" answers this specific question: \"" + strings.TrimSpace(lastQuestion) + "\". Do not ask it again."
}
