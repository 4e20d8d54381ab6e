// Package retrieval implements RetrievalBuilder (spec.md §4.8): assembles
// a bounded, hard-ordered list of canonical snippets for the generator.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/project"
)

const (
	MaxFactsMapChars = project.MaxFactsMapChars
	MaxExcerptChars  = 9000
	MaxExcelBridges  = 3
)

// Snippet is one canonical, labeled context block in hard order.
type Snippet struct {
	Label string
	Text  string
}

// Input bundles everything RetrievalBuilder needs that isn't fetched
// through ArtifactReader — all of it already loaded/filtered by the
// caller (facts already passed through policy.FilterResurfaceable).
type Input struct {
	State            *project.State
	Facts            []project.CompactFact
	Profile          *project.UserProfile
	GlobalFacts      []project.GlobalFact
	AOF              *project.ActiveObject
	AOFHasSemantics  bool
	ComparisonIntent bool
	RecentWorkbooks  []string // rel paths, oldest-first; last MaxExcelBridges are used
	SearchEvidence   *adapters.SearchEvidence
	AssumptionNotes  []string
}

// Build produces the bounded ordered snippet list spec.md §4.8 §1-7
// describes. ArtifactReader lookups that fail or return nothing are
// skipped silently — a missing bridge degrades gracefully rather than
// failing the turn.
func Build(ctx context.Context, reader adapters.ArtifactReader, projectKey string, in Input) ([]Snippet, error) {
	var out []Snippet

	if in.State != nil {
		out = append(out, Snippet{Label: "PROJECT_STATE_JSON", Text: truncate(projectStateExcerpt(in.State), MaxExcerptChars)})
	}

	if len(in.Facts) > 0 {
		out = append(out, Snippet{Label: "FACTS_MAP_COMPACT", Text: truncate(factsMapCompact(in.Facts), MaxFactsMapChars)})
	}

	if globalSnippet := globalMemoryExcerpt(in.Profile, in.GlobalFacts); globalSnippet != "" {
		out = append(out, Snippet{Label: "GLOBAL_MEMORY", Text: truncate(globalSnippet, MaxExcerptChars)})
	}

	if reader != nil {
		if s, err := fileEvidenceBridge(ctx, reader, projectKey, in.AOF, in.AOFHasSemantics); err != nil {
			return nil, err
		} else if s != nil {
			out = append(out, *s)
		}

		if in.ComparisonIntent {
			bridges, err := excelBridges(ctx, reader, projectKey, in.RecentWorkbooks)
			if err != nil {
				return nil, err
			}
			out = append(out, bridges...)
		}
	}

	if in.SearchEvidence != nil && len(in.SearchEvidence.Results) > 0 {
		out = append(out, Snippet{Label: "SEARCH_EVIDENCE_EPHEMERAL", Text: truncate(searchEvidenceExcerpt(in.SearchEvidence), MaxExcerptChars)})
	}

	if len(in.AssumptionNotes) > 0 {
		out = append(out, Snippet{Label: "ASSUMPTIONS", Text: truncate(strings.Join(in.AssumptionNotes, "\n"), MaxExcerptChars)})
	}

	return out, nil
}

func projectStateExcerpt(st *project.State) string {
	excerpt := struct {
		Goal         string          `json:"goal"`
		Mode         project.ProjectMode `json:"project_mode"`
		Boot         project.BootstrapStatus `json:"bootstrap_status"`
		Expert       project.ExpertFrame `json:"expert_frame"`
		CurrentFocus string          `json:"current_focus,omitempty"`
		NextActions  []string        `json:"next_actions,omitempty"`
		KeyFiles     []string        `json:"key_files,omitempty"`
	}{
		Goal: st.Goal, Mode: st.Mode, Boot: st.Boot, Expert: st.Expert,
		CurrentFocus: st.CurrentFocus, NextActions: st.NextActions, KeyFiles: st.KeyFiles,
	}
	b, _ := json.Marshal(excerpt)
	return string(b)
}

func factsMapCompact(facts []project.CompactFact) string {
	sorted := sortedBySlotPriorityThenNewest(facts)
	if len(sorted) > project.MaxCompactFacts {
		sorted = sorted[:project.MaxCompactFacts]
	}
	var b strings.Builder
	for _, f := range sorted {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Slot, f.EntityKey, f.Claim)
	}
	return b.String()
}

func sortedBySlotPriorityThenNewest(facts []project.CompactFact) []project.CompactFact {
	out := make([]project.CompactFact, len(facts))
	copy(out, facts)
	priority := func(slot project.FactSlot) int {
		switch slot {
		case project.SlotIdentity:
			return 0
		case project.SlotRelationship:
			return 1
		default:
			return 2
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			pi, pj := priority(out[j].Slot), priority(out[j-1].Slot)
			newer := out[j].UpdatedAt.After(out[j-1].UpdatedAt)
			if pi < pj || (pi == pj && newer) {
				out[j], out[j-1] = out[j-1], out[j]
			} else {
				break
			}
		}
	}
	return out
}

func globalMemoryExcerpt(profile *project.UserProfile, globalFacts []project.GlobalFact) string {
	if profile == nil && len(globalFacts) == 0 {
		return ""
	}
	var b strings.Builder
	if profile != nil {
		if profile.Identity.PreferredName != "" {
			fmt.Fprintf(&b, "preferred_name: %s\n", profile.Identity.PreferredName)
		}
		if profile.Identity.Birthdate != "" {
			fmt.Fprintf(&b, "birthdate: %s\n", profile.Identity.Birthdate)
		}
		if profile.Identity.Timezone != "" {
			fmt.Fprintf(&b, "timezone: %s\n", profile.Identity.Timezone)
		}
		if profile.Identity.Location != "" {
			fmt.Fprintf(&b, "location: %s\n", profile.Identity.Location)
		}
		for _, r := range profile.Relationships {
			fmt.Fprintf(&b, "relationship[%s]: %s\n", r.EntityKey, r.Claim)
		}
	}
	for _, f := range globalFacts {
		fmt.Fprintf(&b, "global[%s/%s]: %s\n", f.Slot, f.EntityKey, f.Claim)
	}
	return b.String()
}

var fileEvidencePriority = []adapters.ArtifactType{
	adapters.ArtifactPlanOCR,
	adapters.ArtifactOCRText,
	adapters.ArtifactPDFText,
	adapters.ArtifactImageCaption,
	adapters.ArtifactFileOverview,
}

func fileEvidenceBridge(ctx context.Context, reader adapters.ArtifactReader, projectKey string, aof *project.ActiveObject, hasSemantics bool) (*Snippet, error) {
	if aof == nil || aof.RelPath == "" {
		return nil, nil
	}
	if hasSemantics {
		art, err := reader.FindLatestForFile(ctx, projectKey, aof.RelPath, adapters.ArtifactImageSemantics)
		if err != nil {
			return nil, err
		}
		if art != nil {
			text, err := reader.ReadText(ctx, art.ID)
			if err != nil {
				return nil, err
			}
			return &Snippet{Label: "FILE_EVIDENCE_IMAGE_SEMANTICS", Text: truncate(text, MaxExcerptChars)}, nil
		}
	}
	for _, t := range fileEvidencePriority {
		art, err := reader.FindLatestForFile(ctx, projectKey, aof.RelPath, t)
		if err != nil {
			return nil, err
		}
		if art == nil {
			continue
		}
		text, err := reader.ReadText(ctx, art.ID)
		if err != nil {
			return nil, err
		}
		return &Snippet{Label: "FILE_EVIDENCE_" + strings.ToUpper(string(t)), Text: truncate(text, MaxExcerptChars)}, nil
	}
	return nil, nil
}

func excelBridges(ctx context.Context, reader adapters.ArtifactReader, projectKey string, workbooks []string) ([]Snippet, error) {
	recent := workbooks
	if len(recent) > MaxExcelBridges {
		recent = recent[len(recent)-MaxExcelBridges:]
	}
	var out []Snippet
	for _, rel := range recent {
		for _, t := range []adapters.ArtifactType{adapters.ArtifactExcelBlueprint, adapters.ArtifactFileOverview} {
			art, err := reader.FindLatestForFile(ctx, projectKey, rel, t)
			if err != nil {
				return nil, err
			}
			if art == nil {
				continue
			}
			text, err := reader.ReadText(ctx, art.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, Snippet{Label: fmt.Sprintf("EXCEL_BRIDGE_%s_%s", rel, t), Text: truncate(text, MaxExcerptChars)})
		}
	}
	return out, nil
}

func searchEvidenceExcerpt(ev *adapters.SearchEvidence) string {
	var b strings.Builder
	b.WriteString("(ephemeral search evidence, not durable memory)\n")
	for _, r := range ev.Results {
		fmt.Fprintf(&b, "%d. %s — %s (%s)\n", r.Rank, r.Title, r.Snippet, r.URL)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
