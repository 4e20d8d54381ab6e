package facts

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

// EnsureEntityKey derives a stable entity_key from a claim when the
// extraction stage didn't already assign one (e.g. a possession or
// routine claim with no obvious named entity). Falls back to a random
// key so the fact still groups as its own (entity_key, slot) bucket in
// the distiller rather than silently merging with an unrelated claim.
func EnsureEntityKey(existing, claim string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	slug := nonWordRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(claim)), "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		return uuid.NewString()
	}
	return slug
}
