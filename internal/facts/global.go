package facts

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// globalEligibleSlots is the fixed allow-list of Tier-1 slots that may
// ever promote to Tier-2G (spec.md §3: "fixed allow-list key AND
// verbatim first-person evidence").
var globalEligibleSlots = map[project.FactSlot]bool{
	project.SlotIdentity:     true,
	project.SlotRelationship: true,
}

var (
	birthdatePhraseRe = regexp.MustCompile(`(?i)\bmy birthday is\b|\bi was born on\b`)
	isoDateRe         = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	preferredNameRe   = regexp.MustCompile(`(?i)\b(my (?:preferred )?name is|i go by|call me)\s+([A-Za-z][\w'-]*)`)
	locationRe        = regexp.MustCompile(`(?i)\bi live in\s+([A-Za-z][\w ,.'-]*)`)
	timezoneRe        = regexp.MustCompile(`(?i)\bi(?:'m| am) (?:usually )?on\s+([A-Za-z ]+?\s*Time)\b`)
	relationshipRe    = regexp.MustCompile(`(?i)\bmy\s+(wife|husband|partner|girlfriend|boyfriend|spouse|fianc[ée]e?|mom|mother|dad|father|brother|sister|son|daughter|best friend)\b`)
)

// ClassifyClaimSlot applies the identity patterns RebuildTier2G matches
// against, plus relationshipRe, so a whole-message Tier-1 candidate
// (internal/pipeline's deterministic fallback extractor) can be tagged
// identity/relationship instead of always landing in "other" — without
// this, no live candidate is ever GlobalEligible and Tier-2G/Tier-2M
// never populate from real conversation.
func ClassifyClaimSlot(claim string) project.FactSlot {
	if birthdatePhraseRe.MatchString(claim) || preferredNameRe.MatchString(claim) ||
		locationRe.MatchString(claim) || timezoneRe.MatchString(claim) {
		return project.SlotIdentity
	}
	if relationshipRe.MatchString(claim) {
		return project.SlotRelationship
	}
	return project.SlotOther
}

// GlobalEligible reports whether a Tier-1 fact may promote into the
// Tier-2G identity kernel: its slot must be on the allow-list, its
// subject must be the user, and its claim must carry first-person
// evidence rather than be reported secondhand.
func GlobalEligible(f project.RawFact) bool {
	if !globalEligibleSlots[f.Slot] {
		return false
	}
	if f.Subject != project.SubjectUser {
		return false
	}
	return hasFirstPersonMarker(f.Claim)
}

func hasFirstPersonMarker(claim string) bool {
	lc := strings.ToLower(claim)
	return strings.Contains(lc, "i ") || strings.HasPrefix(lc, "i'") ||
		strings.Contains(lc, "my ") || strings.Contains(lc, "i'm")
}

// RebuildTier2G rebuilds the per-user identity kernel profile from
// user-global Tier-1G facts, but only does anything if at least one
// global-eligible fact was appended in facts appended (the caller
// passes wroteGlobalEligibleThisTurn so a no-op turn never rewrites the
// file — spec.md §4.5: "triggered only if any global-eligible Tier-1G
// facts were appended in the current turn").
func (s *Store) RebuildTier2G(user string, wroteGlobalEligibleThisTurn bool) error {
	if !wroteGlobalEligibleThisTurn {
		return nil
	}
	raw, err := s.backend.ReadUserRawFacts(user)
	if err != nil {
		return err
	}

	profile, err := s.backend.LoadUserProfile(user)
	if err != nil {
		return err
	}

	var relationships []project.Relationship
	seenRel := make(map[string]bool)

	for _, f := range raw {
		if !GlobalEligible(f) {
			continue
		}
		switch f.Slot {
		case project.SlotIdentity:
			applyIdentityClaim(&profile.Identity, f.Claim)
		case project.SlotRelationship:
			if f.EntityKey == "" || seenRel[f.EntityKey] {
				continue
			}
			seenRel[f.EntityKey] = true
			relationships = append(relationships, project.Relationship{EntityKey: f.EntityKey, Claim: f.Claim})
		}
	}

	sort.SliceStable(relationships, func(i, j int) bool { return relationships[i].EntityKey < relationships[j].EntityKey })
	profile.Relationships = relationships

	return s.backend.SaveUserProfile(user, profile)
}

// applyIdentityClaim updates the identity kernel's curated fields from
// one claim, applying each field's own evidence rule. Birthdate is the
// strict case: only "my birthday is" / "i was born on" phrasing, and
// only if an ISO date is present in the claim, can set it.
func applyIdentityClaim(k *project.IdentityKernel, claim string) {
	if birthdatePhraseRe.MatchString(claim) {
		if m := isoDateRe.FindStringSubmatch(claim); m != nil {
			k.Birthdate = m[1]
		}
		return
	}
	if m := preferredNameRe.FindStringSubmatch(claim); m != nil {
		k.PreferredName = strings.TrimSpace(m[2])
		return
	}
	if m := locationRe.FindStringSubmatch(claim); m != nil {
		k.Location = strings.TrimSpace(m[1])
		return
	}
	if m := timezoneRe.FindStringSubmatch(claim); m != nil {
		k.Timezone = strings.TrimSpace(m[1])
	}
}

// RebuildTier2M rebuilds the compact cross-project global facts
// snippet from user-global Tier-1G facts, independent of Tier-2G
// eligibility (Tier-2M carries any user-subject fact, not just
// identity/relationship).
func (s *Store) RebuildTier2M(user string) error {
	raw, err := s.backend.ReadUserRawFacts(user)
	if err != nil {
		return err
	}

	type key struct {
		entityKey string
		slot      project.FactSlot
	}
	best := make(map[key]project.RawFact)
	for _, f := range raw {
		if f.Subject != project.SubjectUser {
			continue
		}
		k := key{entityKey: f.EntityKey, slot: f.Slot}
		if cur, ok := best[k]; !ok || f.Timestamp.After(cur.Timestamp) {
			best[k] = f
		}
	}

	out := make([]project.GlobalFact, 0, len(best))
	for k, f := range best {
		out = append(out, project.GlobalFact{Slot: k.slot, EntityKey: k.entityKey, Claim: f.Claim, Confidence: 1.0})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return slotPriority(out[i].Slot) < slotPriority(out[j].Slot)
		}
		return out[i].EntityKey < out[j].EntityKey
	})
	if len(out) > project.MaxCompactFacts {
		out = out[:project.MaxCompactFacts]
	}
	return s.backend.SaveUserGlobalFactsMap(user, out)
}
