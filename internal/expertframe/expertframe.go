// Package expertframe implements the Expert Frame Lock state machine
// (spec.md §4.17, EFL glossary): "" -> proposed -> active. A deterministic
// keyword library infers a candidate {label, directive, set_reason} from
// the current turn's message; the user confirms or rejects via yes/no,
// or sets a frame explicitly with "expert frame: X".
package expertframe

import (
	"regexp"
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// Frame is one candidate expert frame the keyword library can propose.
type Frame struct {
	Label     string
	Directive string
	Keywords  []string
}

// library is the fixed, deterministic keyword-to-frame map. Ordered —
// the first matching frame wins, so more specific frames should precede
// more general ones.
var library = []Frame{
	{
		Label:     "Software Engineer",
		Directive: "Answer with precise, implementation-focused technical detail; name concrete tradeoffs instead of hedging.",
		Keywords:  []string{"code", "codebase", "bug", "api", "function", "compile", "repository", "programming"},
	},
	{
		Label:     "Legal Advisor",
		Directive: "Answer with careful, hedged legal framing; flag when something needs a licensed attorney.",
		Keywords:  []string{"contract", "clause", "liability", "lawsuit", "legal", "statute"},
	},
	{
		Label:     "Financial Analyst",
		Directive: "Answer with numeric precision and explicit risk framing; show the arithmetic behind any figure.",
		Keywords:  []string{"budget", "invest", "portfolio", "valuation", "cash flow", "tax filing"},
	},
	{
		Label:     "Fitness Coach",
		Directive: "Answer with concrete, measurable training and nutrition guidance; avoid vague encouragement.",
		Keywords:  []string{"workout", "training plan", "reps", "macros", "marathon"},
	},
	{
		Label:     "Therapeutic Guide",
		Directive: "Answer with reflective, validating, non-clinical language; never diagnose.",
		Keywords:  []string{"anxious", "anxiety", "depressed", "relationship trouble", "therapy"},
	},
}

// Infer matches msg against the keyword library and returns the first
// frame whose keyword appears, with set_reason recording which keyword
// fired (spec.md's "deterministic inference library maps blob keywords
// to a {label, directive, set_reason}").
func Infer(msg string) (label, directive, setReason string, ok bool) {
	lower := strings.ToLower(msg)
	for _, f := range library {
		for _, kw := range f.Keywords {
			if strings.Contains(lower, kw) {
				return f.Label, f.Directive, "keyword_match:" + kw, true
			}
		}
	}
	return "", "", "", false
}

var explicitSetRe = regexp.MustCompile(`(?i)^\s*expert frame:\s*(.+?)\s*$`)

// DetectExplicitSet recognizes the "expert frame: X" explicit-set form.
func DetectExplicitSet(msg string) (string, bool) {
	m := explicitSetRe.FindStringSubmatch(msg)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// DirectiveFor returns the library directive matching label, or a
// generic directive when the explicitly set label doesn't match any
// known keyword frame.
func DirectiveFor(label string) string {
	lower := strings.ToLower(label)
	for _, f := range library {
		if strings.ToLower(f.Label) == lower {
			return f.Directive
		}
	}
	return "Operate using the user-specified expert frame for this project; stay in that voice and ground claims in project memory where it exists."
}

// Suppressed reports whether real work has already begun for the
// project, per the EFL rule that label proposals are suppressed once
// decisions, deliverables, or a non-empty working doc exist — mid-stream
// is not the moment to interrupt with a frame-confirmation question.
func Suppressed(st *project.State, hasDecisions bool) bool {
	if st == nil {
		return false
	}
	return hasDecisions || len(st.KeyFiles) > 0 || len(st.NextActions) > 0
}
