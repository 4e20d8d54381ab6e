// Package timeaware implements TimeAwareness (spec.md §4.11): a
// system-only time context block plus bounded project time anchors.
package timeaware

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Frankh1982/projectos/internal/project"
)

const DefaultZone = "America/Chicago"

// ResolveLocation picks the effective IANA zone: Tier-2G identity.timezone
// when present, else DefaultZone. Falls back to DefaultZone if the
// override fails to parse.
func ResolveLocation(identityTimezone string) *time.Location {
	zone := strings.TrimSpace(identityTimezone)
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultZone)
	}
	return loc
}

func daypart(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// Block renders the TIME_RULE/TIME_CONTEXT/TIME_FLAG system-only lines
// for now, in loc, optionally flagging a birthday.
func Block(now time.Time, loc *time.Location, birthdateISO string) string {
	local := now.In(loc)
	abbrev, _ := local.Zone()

	var b strings.Builder
	b.WriteString("TIME_RULE: treat TIME_CONTEXT as authoritative for \"now\"; never invent a different current time.\n")
	fmt.Fprintf(&b, "TIME_CONTEXT: %s, %s (%s) • daypart=%s\n",
		local.Format("Mon Jan 2 2006 15:04"), abbrev, loc.String(), daypart(local.Hour()))

	if isBirthdayToday(birthdateISO, local) {
		b.WriteString("TIME_FLAG: birthday_today=true\n")
	}
	return b.String()
}

func isBirthdayToday(birthdateISO string, local time.Time) bool {
	if birthdateISO == "" {
		return false
	}
	bd, err := time.Parse("2006-01-02", birthdateISO)
	if err != nil {
		return false
	}
	return bd.Month() == local.Month() && bd.Day() == local.Day()
}

// anchorStartEventRe is the conservative pattern set for detecting a
// concrete start-event worth anchoring ("I just put the lasagna in the
// oven", "just started the build").
var anchorStartEventRe = regexp.MustCompile(`(?i)\bi(?:'ve| have)? just (put|started|began|set|placed)\b.*?\b(in|on|to)\b\s+(.+?)[.!]?$`)

// DetectAnchor extracts a time anchor label from a start-event message,
// if one matches the conservative pattern. Returns ok=false otherwise.
func DetectAnchor(userMsg string, now time.Time, tz string) (project.TimeAnchor, bool) {
	m := anchorStartEventRe.FindStringSubmatch(strings.TrimSpace(userMsg))
	if m == nil {
		return project.TimeAnchor{}, false
	}
	label := strings.TrimSpace(userMsg)
	return project.TimeAnchor{Label: label, TS: now, TZ: tz}, true
}

// AppendAnchor adds a new anchor to existing, deduping within 120s of
// an anchor with the same label, and capping at project.MaxTimeAnchors
// (oldest dropped first).
func AppendAnchor(existing []project.TimeAnchor, next project.TimeAnchor) []project.TimeAnchor {
	for _, a := range existing {
		if a.Label == next.Label && absDuration(next.TS.Sub(a.TS)) <= 120*time.Second {
			return existing
		}
	}
	out := append(existing, next)
	if len(out) > project.MaxTimeAnchors {
		out = out[len(out)-project.MaxTimeAnchors:]
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// RenderAnchors renders the last 3 anchors (newest-last, oldest-first
// within that window) as the TIME_ANCHORS system line, or "" if empty.
func RenderAnchors(anchors []project.TimeAnchor, now time.Time) string {
	if len(anchors) == 0 {
		return ""
	}
	recent := anchors
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	parts := make([]string, 0, len(recent))
	for _, a := range recent {
		minsAgo := int(now.Sub(a.TS).Minutes())
		parts = append(parts, fmt.Sprintf("%s (%dm ago)", a.Label, minsAgo))
	}
	return "TIME_ANCHORS: " + strings.Join(parts, "; ")
}
