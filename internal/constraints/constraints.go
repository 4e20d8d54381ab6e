// Package constraints compiles per-turn output constraints from project
// rules, the current message, and the active expert (ConstraintCompiler,
// spec.md §4.2), and validates candidate output against them
// (ConstraintValidator, spec.md §4.3). Ported faithfully from the
// original constraint_engine.py: the same trigger phrases, the same
// default anti-sycophancy seed list, the same retry-note layout.
package constraints

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	emojiRe = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}]`)
	qmarkRe = regexp.MustCompile(`\?`)
	hedgeRe = regexp.MustCompile(`(?i)\b(i think|maybe|probably|might be|not sure|i guess)\b`)

	// "never say X" / "do not say X" / "don't say X" on a whole rule line.
	sayLineRe = regexp.MustCompile(`(?i)^\s*(?:never|do not|don't)\s+say\s+(.+?)\s*$`)
	// One-off inline "don't say 'X'" / `don't say "X"` within the user message.
	sayInlineRe = regexp.MustCompile(`(?i)don't\s+say\s+['"](.+?)['"]`)
)

var defaultForbiddenSubstrings = []string{
	"great question",
	"you’re absolutely right",
	"you're absolutely right",
	"you’re so right",
	"you're so right",
	"totally valid",
	"completely valid",
	"as an ai",
	"as a language model",
	"i'm happy to help",
	"happy to help",
	"glad to help",
	"you're brilliant",
	"you are brilliant",
}

const MaxForbiddenSubstrings = 24
const MaxReportedViolations = 8

// Constraints is the compiled, machine-checkable output contract for one turn.
type Constraints struct {
	MaxQuestions        *int
	MaxLines             *int
	ForbidEmoji          bool
	ForbidHedging        bool
	ForbiddenSubstrings  []string
}

// Compile deterministically compiles constraints from project_state.user_rules
// plus the current user message; no model call is made here.
func Compile(userRules []string, userMsg string, activeExpert string) Constraints {
	rulesNorm := make([]string, 0, len(userRules))
	for _, r := range userRules {
		r = strings.TrimSpace(r)
		if r != "" {
			rulesNorm = append(rulesNorm, r)
		}
	}
	msg := strings.TrimSpace(userMsg)
	msgLow := strings.ToLower(msg)

	out := Constraints{}

	ae := strings.ToLower(strings.TrimSpace(activeExpert))
	aeIsDefault := ae == "" || ae == "default"
	if aeIsDefault {
		out.ForbidEmoji = true
		out.ForbidHedging = true
	}

	hayParts := append(append([]string{}, rulesNorm...))
	if msg != "" {
		hayParts = append(hayParts, msg)
	}
	hay := strings.ToLower(strings.Join(hayParts, "\n"))

	if strings.Contains(hay, "no questions") || strings.Contains(hay, "do not ask") || strings.Contains(hay, "don't ask") {
		zero := 0
		out.MaxQuestions = &zero
	}

	if strings.Contains(hay, "word only") || strings.Contains(hay, "one word") || strings.Contains(hay, "single word") {
		one := 1
		out.MaxLines = &one
	}
	if strings.Contains(hay, "no explanations") || strings.Contains(hay, "do not explain") || strings.Contains(hay, "don't explain") {
		two := 2
		out.MaxLines = &two
	}

	if strings.Contains(hay, "no emoji") || strings.Contains(hay, "no emojis") {
		out.ForbidEmoji = true
	}

	if strings.Contains(hay, "be decisive") || strings.Contains(hay, "stop hedging") || strings.Contains(hay, "no hedging") {
		out.ForbidHedging = true
	}

	var forbidden []string
	if aeIsDefault {
		forbidden = append(forbidden, defaultForbiddenSubstrings...)
	}

	for _, line := range rulesNorm {
		m := sayLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		frag := strings.Trim(strings.TrimSpace(m[1]), `"'`)
		frag = strings.TrimSpace(frag)
		if frag != "" {
			forbidden = append(forbidden, frag)
		}
	}

	if m := sayInlineRe.FindStringSubmatch(msgLow); m != nil {
		frag := strings.TrimSpace(m[1])
		if frag != "" {
			forbidden = append(forbidden, frag)
		}
	}

	out.ForbiddenSubstrings = dedupeCaseInsensitive(forbidden, MaxForbiddenSubstrings)
	return out
}

func dedupeCaseInsensitive(in []string, cap int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		k := strings.ToLower(f)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
		if len(out) >= cap {
			break
		}
	}
	return out
}

// Validate checks candidate text against compiled constraints and returns
// a list of violation labels; an empty slice means the output is compliant.
func Validate(outputText string, c Constraints) []string {
	s := strings.TrimSpace(outputText)
	var v []string

	if s == "" {
		return []string{"empty_output"}
	}

	if c.MaxLines != nil && *c.MaxLines > 0 {
		lines := nonEmptyLines(s)
		if len(lines) > *c.MaxLines {
			v = append(v, "too_many_lines (max_lines="+strconv.Itoa(*c.MaxLines)+")")
		}
	}

	if c.MaxQuestions != nil && *c.MaxQuestions >= 0 {
		qcount := len(qmarkRe.FindAllString(s, -1))
		if qcount > *c.MaxQuestions {
			v = append(v, "too_many_questions (max_questions="+strconv.Itoa(*c.MaxQuestions)+")")
		}
	}

	if c.ForbidEmoji && emojiRe.MatchString(s) {
		v = append(v, "emoji_forbidden")
	}

	if c.ForbidHedging && hedgeRe.MatchString(s) {
		v = append(v, "hedging_forbidden")
	}

	low := strings.ToLower(s)
	for _, frag := range c.ForbiddenSubstrings {
		f := strings.TrimSpace(frag)
		if f == "" {
			continue
		}
		if strings.Contains(low, strings.ToLower(f)) {
			v = append(v, "forbidden_phrase: "+f)
			if len(v) >= MaxReportedViolations {
				break
			}
		}
	}

	return v
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}

// BuildRetrySystemNote renders the deterministic system-only note telling
// the model to regenerate compliantly, without leaking into user output.
func BuildRetrySystemNote(c Constraints, violations []string) string {
	var b strings.Builder
	b.WriteString("CONSTRAINT ENFORCEMENT:\n")
	b.WriteString("- The previous draft violated hard constraints. Regenerate a compliant answer.\n")
	b.WriteString("- Do NOT mention constraints or violations in the user-visible output.\n\n")
	b.WriteString("Constraints:\n")
	b.WriteString("- max_questions: " + intPtrString(c.MaxQuestions) + "\n")
	b.WriteString("- max_lines: " + intPtrString(c.MaxLines) + "\n")
	b.WriteString(fmt.Sprintf("- forbid_emoji: %v\n", c.ForbidEmoji))
	b.WriteString(fmt.Sprintf("- forbid_hedging: %v\n", c.ForbidHedging))
	if len(c.ForbiddenSubstrings) > 0 {
		n := len(c.ForbiddenSubstrings)
		if n > 10 {
			n = 10
		}
		b.WriteString("- forbidden_phrases: " + strings.Join(c.ForbiddenSubstrings[:n], ", ") + "\n")
	} else {
		b.WriteString("- forbidden_phrases: (none)\n")
	}
	b.WriteString("\nViolations detected:\n")
	n := len(violations)
	if n > 12 {
		n = 12
	}
	for _, x := range violations[:n] {
		b.WriteString("- " + x + "\n")
	}
	return strings.TrimSpace(b.String())
}

func intPtrString(p *int) string {
	if p == nil {
		return "None"
	}
	return strconv.Itoa(*p)
}
