package facts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// ShouldDistill implements the FactDistiller cadence rule (spec.md §4.5):
// distill immediately if this turn wrote any Tier-1 row, otherwise every
// N turns while facts_dirty, or whenever the turn is recall-shaped.
func ShouldDistill(wroteTier1ThisTurn bool, turnCounter, distillEvery int, factsDirty, recallShaped bool) bool {
	if wroteTier1ThisTurn {
		return true
	}
	if recallShaped {
		return true
	}
	if factsDirty && distillEvery > 0 && turnCounter%distillEvery == 0 {
		return true
	}
	return false
}

// Distill rebuilds the Tier-2 facts_map for (user, project) from the
// normalized Tier-1 log: group by (entity_key, slot), keep the most
// recent + highest-confidence claim per group, pin identity and
// relationship slots first, cap at MaxCompactFacts / MaxFactsMapChars.
func (s *Store) Distill(user, proj string) error {
	raw, err := s.backend.ReadRawFacts(user, proj)
	if err != nil {
		return err
	}
	compact := compactFromRaw(raw)
	md := RenderFactsMap(compact)
	return s.backend.WriteFactsMap(user, proj, md)
}

// CompactFromRaw exposes the same grouping compactFromRaw does, for
// callers (RetrievalBuilder) that need the compact view without going
// through Distill's read-markdown-write cycle.
func CompactFromRaw(raw []project.RawFact) []project.CompactFact {
	return compactFromRaw(raw)
}

func compactFromRaw(raw []project.RawFact) []project.CompactFact {
	type groupKey struct {
		entityKey string
		slot      project.FactSlot
	}
	best := make(map[groupKey]project.RawFact)
	for _, f := range raw {
		k := groupKey{entityKey: f.EntityKey, slot: f.Slot}
		cur, ok := best[k]
		if !ok {
			best[k] = f
			continue
		}
		// most recent wins; ties broken by (implicit) higher confidence,
		// which for Tier-1 rows is carried via evidence presence rather
		// than a stored score, so timestamp alone is the tiebreak here.
		if f.Timestamp.After(cur.Timestamp) {
			best[k] = f
		}
	}

	out := make([]project.CompactFact, 0, len(best))
	for k, f := range best {
		out = append(out, project.CompactFact{
			Slot:       k.slot,
			Subject:    f.Subject,
			EntityKey:  k.entityKey,
			Claim:      f.Claim,
			Confidence: 1.0,
			UpdatedAt:  f.Timestamp,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := slotPriority(out[i].Slot), slotPriority(out[j].Slot)
		if pi != pj {
			return pi < pj
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if len(out) > project.MaxCompactFacts {
		out = out[:project.MaxCompactFacts]
	}
	return out
}

// slotPriority pins identity and relationship facts at the top of the
// compact view (spec.md §3).
func slotPriority(slot project.FactSlot) int {
	switch slot {
	case project.SlotIdentity:
		return 0
	case project.SlotRelationship:
		return 1
	default:
		return 2
	}
}

// RenderFactsMap renders the compact Tier-2 facts into the facts_map.md
// markdown document, truncating to MaxFactsMapChars if needed.
func RenderFactsMap(facts []project.CompactFact) string {
	var b strings.Builder
	b.WriteString("# Facts Map\n\n")
	bySlot := make(map[project.FactSlot][]project.CompactFact)
	var order []project.FactSlot
	for _, f := range facts {
		if _, ok := bySlot[f.Slot]; !ok {
			order = append(order, f.Slot)
		}
		bySlot[f.Slot] = append(bySlot[f.Slot], f)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return slotPriority(order[i]) < slotPriority(order[j])
	})
	for _, slot := range order {
		fmt.Fprintf(&b, "## %s\n", capitalize(string(slot)))
		for _, f := range bySlot[slot] {
			if f.EntityKey != "" {
				fmt.Fprintf(&b, "- (%s) %s\n", f.EntityKey, f.Claim)
			} else {
				fmt.Fprintf(&b, "- %s\n", f.Claim)
			}
		}
		b.WriteString("\n")
	}

	out := b.String()
	if len(out) > project.MaxFactsMapChars {
		out = out[:project.MaxFactsMapChars]
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
