// Package facts implements the Tier-1 raw fact capture, normalization,
// and Tier-2/2G/2M distillation pipeline (spec.md §3, §4.4, §4.5).
package facts

import "strings"

// bannedMarkers flags reflective, speculative, or hedged language that
// must never be stored as a fact — grounded verbatim in
// smoke_test_memory_writepath.py's NO_STORE_TURNS/banned_markers list,
// which exercises exactly this guard against a running server.
var bannedMarkers = []string{
	"i think",
	"i feel",
	"maybe",
	"probably",
	"i guess",
	"i'm worried",
	"im worried",
}

// HasReflectiveMarker reports whether claim contains language that marks
// it as an opinion, feeling, or guess rather than a stated fact.
func HasReflectiveMarker(claim string) bool {
	lc := strings.ToLower(claim)
	for _, m := range bannedMarkers {
		if strings.Contains(lc, m) {
			return true
		}
	}
	return false
}

// IsQuestion reports whether claim is phrased as a question; questions
// are never stored as Tier-1 facts.
func IsQuestion(claim string) bool {
	return strings.Contains(claim, "?")
}

// EligibleForStorage reports whether a candidate claim passes the
// write-time reflective/question guard. Policy gating (do_not_store
// rules) is applied separately by the caller after this guard passes.
func EligibleForStorage(claim string) bool {
	trimmed := strings.TrimSpace(claim)
	if trimmed == "" {
		return false
	}
	if IsQuestion(trimmed) {
		return false
	}
	if HasReflectiveMarker(trimmed) {
		return false
	}
	return true
}
