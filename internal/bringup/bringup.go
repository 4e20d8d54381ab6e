// Package bringup implements BringUpQueue (spec.md §4.12): couples-mode
// mediation drafts, their yes/no lifecycle, and session-start theme
// injection with pronoun neutralization.
package bringup

import (
	"regexp"
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// IsCouplesMode reports whether a user segment is couples-mode scoped
// (spec.md §4.12: "begins with couple_").
func IsCouplesMode(user string) bool {
	return strings.HasPrefix(user, "couple_")
}

var bringupTriggerRe = regexp.MustCompile(`(?i)\b(can you (bring up|mention|raise)|i want (you|my partner) to know|let (them|him|her) know)\b`)

// DetectBringupRequest is the conservative NL detector for a bring-up
// request: it only fires on a small set of explicit asking-the-
// assistant-to-relay phrasings, never on an ordinary venting statement.
func DetectBringupRequest(userMsg string) (topic string, ok bool) {
	if !bringupTriggerRe.MatchString(userMsg) {
		return "", false
	}
	return strings.TrimSpace(userMsg), true
}

// NewDraft starts the pending_bringup_draft awaiting yes/no confirmation.
func NewDraft(topic, synopsis string) project.BringupDraft {
	return project.BringupDraft{Pending: true, Synopsis: synopsis, Topic: topic}
}

// ConfirmYes finalizes a pending draft into a neutralized BringupRequest
// ready to append to the partner's queue.
func ConfirmYes(fromUser, toUser string, draft project.BringupDraft) project.BringupRequest {
	return project.BringupRequest{
		FromUser:       fromUser,
		ToUser:         toUser,
		Topic:          Neutralize(draft.Topic),
		Tone:           draft.Tone,
		Boundaries:     draft.Boundary,
		ContextSummary: Neutralize(draft.Synopsis),
		Status:         project.BringupQueued,
	}
}

// DiscardPrompt is returned when the user answers NO to a pending draft.
const DiscardPrompt = "Okay, I won't bring that up. In one sentence, what should the theme be instead?"

// RenderSessionStartThemes renders at most MaxBringupThemes queued
// bring-ups as anonymous themes, with no attribution to the sender
// (spec.md §4.12 "no attribution").
func RenderSessionStartThemes(queue []project.BringupRequest) []string {
	var pending []project.BringupRequest
	for _, r := range queue {
		if r.Status == project.BringupQueued {
			pending = append(pending, r)
		}
	}
	if len(pending) > project.MaxBringupThemes {
		pending = pending[:project.MaxBringupThemes]
	}
	themes := make([]string, 0, len(pending))
	for _, r := range pending {
		themes = append(themes, r.Topic)
	}
	return themes
}

// neutralizations is the bounded substitution table pronoun
// neutralization applies, longest-match-first so "myself" doesn't get
// mangled by an earlier "my" rule.
var neutralizations = []struct {
	re *regexp.Regexp
	to string
}{
	{regexp.MustCompile(`(?i)\bmyself\b`), "themself"},
	{regexp.MustCompile(`(?i)\byourself\b`), "themself"},
	{regexp.MustCompile(`(?i)\bi am\b`), "one partner is"},
	{regexp.MustCompile(`(?i)\bi'm\b`), "one partner is"},
	{regexp.MustCompile(`(?i)\bi was\b`), "one partner was"},
	{regexp.MustCompile(`(?i)\bi feel\b`), "one partner feels"},
	{regexp.MustCompile(`(?i)\byou are\b`), "their partner is"},
	{regexp.MustCompile(`(?i)\byou're\b`), "their partner is"},
	{regexp.MustCompile(`(?i)\bmy\b`), "their"},
	{regexp.MustCompile(`(?i)\byour\b`), "their"},
	{regexp.MustCompile(`(?i)\bi\b`), "one partner"},
	{regexp.MustCompile(`(?i)\byou\b`), "their partner"},
	{regexp.MustCompile(`(?i)\bme\b`), "them"},
}

// Neutralize rewrites first/second-person pronouns to "one partner"/
// "their" style neutral phrasing using the bounded substitution table
// above, so a relayed bring-up never reads as a direct accusation.
func Neutralize(s string) string {
	out := s
	for _, n := range neutralizations {
		out = n.re.ReplaceAllString(out, n.to)
	}
	return out
}
