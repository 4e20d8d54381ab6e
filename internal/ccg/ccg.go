// Package ccg implements the ContextCommitmentGate family (spec.md
// §4.10): CCG (commitment extraction), CKCL (crowd-knowledge lock), and
// CKSG (crowd-knowledge stall guard), all deterministic over the
// conversation tail and current message.
package ccg

import (
	"regexp"
	"strings"
)

// Commitment is the extracted {domain, target, goal} tuple CCG derives
// from the conversation.
type Commitment struct {
	Domain    string
	Target    string
	Goal      string
	Committed bool
}

var optimizationGoalRe = regexp.MustCompile(`(?i)\b(optimi[sz]e|optimal|best (setup|build|config|loadout)|min-?max|improve|tune)\b`)

// domain/target phrase patterns are intentionally narrow: CCG extracts
// structure, it doesn't run free-form NLU (spec.md §9 "no magic phrases").
var domainRe = regexp.MustCompile(`(?i)\bfor (my |the )?([a-z0-9][\w -]{1,30}?)(?:\.|,|$| to | so )`)

// ExtractCommitment derives {domain, target, goal} from the latest user
// message and recent conversation tail. goal="optimization" plus a
// present domain or target makes the turn "committed".
func ExtractCommitment(recentTurns []string, userMsg string) Commitment {
	joined := strings.Join(append(append([]string{}, recentTurns...), userMsg), "\n")

	goal := ""
	if optimizationGoalRe.MatchString(joined) {
		goal = "optimization"
	}

	domain, target := "", ""
	if m := domainRe.FindStringSubmatch(userMsg); m != nil {
		domain = strings.TrimSpace(m[2])
	}
	target = domain

	c := Commitment{Domain: domain, Target: target, Goal: goal}
	c.Committed = goal == "optimization" && (domain != "" || target != "")
	return c
}

// CommitmentSystemNote is the system note injected on committed turns:
// forbid scope-resetting questions, require a best-effort answer
// first and at most one refinement question after.
const CommitmentSystemNote = "This turn is committed to a specific goal. Do not ask scope-resetting questions " +
	"(\"what are you trying to do\", \"what's your overall goal\"). Give your best-effort answer first; " +
	"you may ask at most one narrow refinement question after the answer."

// crowdKnowledgeTokens score a message for crowd-knowledge intent —
// "best build" style questions about consensus/meta information.
var crowdKnowledgeTokens = []string{"best", "optimal", "meta", "tier", "build", "loadout", "config", "settings"}

// CrowdKnowledgeScore counts how many crowd-knowledge tokens appear in msg.
func CrowdKnowledgeScore(msg string) int {
	lc := strings.ToLower(msg)
	score := 0
	for _, tok := range crowdKnowledgeTokens {
		if strings.Contains(lc, tok) {
			score++
		}
	}
	return score
}

// IsCrowdKnowledgeIntent applies the token-scoring threshold CKCL/CKSG
// both gate on.
func IsCrowdKnowledgeIntent(msg string) bool {
	return CrowdKnowledgeScore(msg) >= 2
}

// CKCLSystemNote is the HARD system note CKCL injects on committed +
// crowd-knowledge turns: forbid refusal-shaped openings outright.
const CKCLSystemNote = "Do not open with a refusal, hedge, or disclaimer about not having live data or telemetry. " +
	"Answer directly from established community consensus for this domain."

var refusalPreambleRe = regexp.MustCompile(`(?is)^.{0,400}?(i (can't|cannot|don't have access to)|without (access to )?(live|real-time) (data|telemetry)|i'm not able to verify)[^.]*\.\s*`)

// StripRefusalPreamble removes a leaked refusal-shaped opening
// paragraph from a generated answer, if CKCL's system note didn't
// fully suppress it.
func StripRefusalPreamble(answer string) string {
	return refusalPreambleRe.ReplaceAllString(answer, "")
}

// stallMarkers is the conservative, enumerated allow-list CKSG checks
// for post-generation (spec.md §9 decision: not a learned/scored
// signal, a fixed small set).
var stallMarkers = []string{
	"can't verify",
	"cannot verify",
	"without telemetry",
	"without access to live data",
	"i don't have real-time",
	"i can't access current",
}

// HasStallMarker reports whether a generated answer contains one of the
// enumerated CKSG stall phrases.
func HasStallMarker(answer string) bool {
	lc := strings.ToLower(answer)
	for _, m := range stallMarkers {
		if strings.Contains(lc, m) {
			return true
		}
	}
	return false
}

// CKSGEnforcementNote is the system note used for CKSG's one bounded
// regeneration attempt.
const CKSGEnforcementNote = "Your previous answer stalled with a verification disclaimer. Regenerate: answer directly " +
	"using established consensus for this domain, with no disclaimer about live data or telemetry."

// MaxCKSGRegenerations bounds CKSG's regeneration loop to one retry.
const MaxCKSGRegenerations = 1
