package policy

import (
	"regexp"
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// These patterns are the enumerated "magic strings" spec.md §9 calls out
// as the exception to "no magic phrases": a small, tested set of exact
// policy-command forms rather than a free-form NLU pass.
var (
	doNotStoreRe     = regexp.MustCompile(`(?i)^(?:don't|do not|never) (?:store|remember|save) (?:that )?(.+)$`)
	projectOnlyRe    = regexp.MustCompile(`(?i)^keep (.+) (?:in this project only|project only)$`)
	doNotResurfaceRe = regexp.MustCompile(`(?i)^(?:don't|do not|never) (?:bring up|mention) (.+?)(?: again)?$`)
)

// ParseNLPolicyCommand recognizes one of the enumerated natural-language
// policy forms in msg and returns the equivalent PolicyRule. Returns
// ok=false if msg doesn't match any recognized form — callers must fall
// through to the normal pipeline in that case.
func ParseNLPolicyCommand(msg string) (project.PolicyRule, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(msg), ".!")

	if m := doNotStoreRe.FindStringSubmatch(trimmed); m != nil {
		return project.PolicyRule{
			Action:     project.PolicyDoNotStore,
			MatchType:  project.MatchSubstring,
			MatchValue: strings.TrimSpace(m[1]),
		}, true
	}
	if m := projectOnlyRe.FindStringSubmatch(trimmed); m != nil {
		return project.PolicyRule{
			Action:     project.PolicyProjectOnly,
			MatchType:  project.MatchSubstring,
			MatchValue: strings.TrimSpace(m[1]),
		}, true
	}
	if m := doNotResurfaceRe.FindStringSubmatch(trimmed); m != nil {
		return project.PolicyRule{
			Action:     project.PolicyDoNotResurface,
			MatchType:  project.MatchSubstring,
			MatchValue: strings.TrimSpace(m[1]),
		}, true
	}
	return project.PolicyRule{}, false
}
