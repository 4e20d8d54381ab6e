package facts

import (
	"sort"
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// NormalizeFactsRawJSONL rewrites the Tier-1 log for (user, project) with
// exact-duplicate claims collapsed (keeping the latest occurrence) and
// rows sorted by timestamp. Tier-1 rows are append-only to callers;
// normalization is the one place allowed to rewrite the file wholesale
// (spec.md §3: "normalization writes a new file version").
func (s *Store) NormalizeFactsRawJSONL(user, proj string) error {
	raw, err := s.backend.ReadRawFacts(user, proj)
	if err != nil {
		return err
	}
	normalized := normalizeClaims(raw)
	return s.backend.RewriteRawFacts(user, proj, normalized)
}

func normalizeClaims(raw []project.RawFact) []project.RawFact {
	byKey := make(map[string]project.RawFact, len(raw))
	order := make([]string, 0, len(raw))
	for _, f := range raw {
		key := strings.ToLower(strings.TrimSpace(f.Claim)) + "|" + string(f.Slot) + "|" + f.EntityKey
		if existing, ok := byKey[key]; !ok {
			byKey[key] = f
			order = append(order, key)
		} else if f.Timestamp.After(existing.Timestamp) {
			byKey[key] = f
		}
	}
	out := make([]project.RawFact, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
