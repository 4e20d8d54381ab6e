// Package aof implements ActiveObjectFocus (spec.md §4.7): which
// uploaded artifact, if any, is "in focus" for the current turn.
package aof

import (
	"regexp"
	"strings"
)

var (
	trivialAckRe      = regexp.MustCompile(`(?i)^(ok(ay)?|sure|continue|go on|yes|yep|sounds good|got it|thanks|thank you)\.?!?$`)
	topicBreakRe      = regexp.MustCompile(`(?i)\b(forget (that|this|about it)|let'?s (talk|switch) about|different topic|new topic|moving on|never ?mind that)\b`)
	newGenericImageRe = regexp.MustCompile(`(?i)\b(generate|make|create|draw)\s+(a|an|another)?\s*(new )?(image|picture|photo|graphic)\b`)
	namesFileRe       = regexp.MustCompile(`(?i)\b[\w.\-]+\.(pdf|png|jpe?g|gif|xlsx?|docx?|csv|txt|md)\b`)
)

// Decision reports whether AOF stays in scope for this turn, and why.
type Decision struct {
	InScope bool
	Reason  string
}

// Evaluate decides focus_in_scope for the given user message against
// the currently active object (hasActiveObject indicates one is set).
func Evaluate(userMsg string, hasActiveObject bool) Decision {
	if !hasActiveObject {
		return Decision{InScope: false, Reason: "no_active_object"}
	}
	trimmed := strings.TrimSpace(userMsg)

	if namesFileRe.MatchString(trimmed) {
		return Decision{InScope: false, Reason: "user_named_file"}
	}
	if topicBreakRe.MatchString(trimmed) {
		return Decision{InScope: false, Reason: "topic_break"}
	}
	if newGenericImageRe.MatchString(trimmed) {
		return Decision{InScope: false, Reason: "new_generic_image_request"}
	}
	if trivialAckRe.MatchString(trimmed) {
		return Decision{InScope: true, Reason: "trivial_ack"}
	}
	if isShortNounPhrase(trimmed) {
		return Decision{InScope: true, Reason: "short_noun_phrase_continuation"}
	}
	return Decision{InScope: true, Reason: "default_continuation"}
}

// isShortNounPhrase is a coarse heuristic for "zoom in on the top
// right", "the second page", etc. — at most six words, no sentence-ending
// punctuation other than a trailing question mark. Whether the first word
// is a verb is not checked.
func isShortNounPhrase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	return !strings.ContainsAny(s, ".!") || strings.HasSuffix(s, "?")
}

// ImageSemanticsRequest describes a bounded on-demand request for cached
// image_semantics when a turn references the AOF image but no cached
// semantics artifact exists yet.
type ImageSemanticsRequest struct {
	RelPath string
	Reason  string
}

// NeedsImageSemantics reports whether an on-demand image_semantics
// fetch should be requested: an active object is set, it is an image,
// and no cached semantics artifact exists. The turn text is not examined.
func NeedsImageSemantics(aofRelPath, aofMIME string, hasCachedSemantics bool) (ImageSemanticsRequest, bool) {
	if aofRelPath == "" || !strings.HasPrefix(aofMIME, "image/") || hasCachedSemantics {
		return ImageSemanticsRequest{}, false
	}
	return ImageSemanticsRequest{RelPath: aofRelPath, Reason: "aof_image_referenced_no_cached_semantics"}, true
}
