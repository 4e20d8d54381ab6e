// Package bootstrap implements the Bootstrap state machine (spec.md
// §4.17): needs_goal -> goal_proposed -> active. The only trigger this
// package implements is the documented deterministic one — auto-adopting
// the first substantive message as the project goal; nothing else in
// spec.md's abbreviated state machine is specified, so goal_proposed is
// never entered in this implementation (see DESIGN.md).
package bootstrap

import (
	"regexp"
	"strings"
)

const (
	MinGoalChars = 10
	MaxGoalChars = 420
)

var greetingRe = regexp.MustCompile(`(?i)^((hi|hello|hey|yo|good morning|good afternoon|good evening|sup|howdy|there)[\s,.!]*)+$`)

// isGreeting reports whether msg is a bare greeting with no substantive
// content (one or more greeting words, e.g. "Hey there, good morning!").
func isGreeting(msg string) bool {
	return greetingRe.MatchString(strings.TrimSpace(msg))
}

// isCommand reports whether msg is one of the explicit command prefixes
// the short-circuit layer already recognizes; a command body should
// never be auto-adopted as a goal even if it fails to parse.
func isCommand(msg string) bool {
	trimmed := strings.TrimSpace(msg)
	return strings.HasPrefix(trimmed, "!") || strings.HasPrefix(strings.ToLower(trimmed), "/cmd")
}

// MaybeAdoptGoal implements the auto-adopt rule: "if no goal and the
// first substantive message is not a command/greeting and 10-420 chars,
// auto-adopt as goal and move to active." Returns the goal text and
// ok=true when the rule fires; the caller is responsible for checking
// that the project is still needs_goal before calling.
func MaybeAdoptGoal(msg string) (string, bool) {
	trimmed := strings.TrimSpace(msg)
	n := len(trimmed)
	if n < MinGoalChars || n > MaxGoalChars {
		return "", false
	}
	if isCommand(trimmed) || isGreeting(trimmed) {
		return "", false
	}
	return trimmed, true
}
