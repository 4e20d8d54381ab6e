// Package interpretive implements InterpretiveMemory (spec.md §4.16):
// windowed extraction of entities, relationship dynamics, themes, values,
// and open ambiguities, with every evidence excerpt checked verbatim
// against the window before it is trusted.
package interpretive

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/project"
)

// MaxWindowTurns bounds how many prior turns feed the extraction window.
const MaxWindowTurns = 8

// Backend is the narrow persistence surface this package needs; *store.Store
// satisfies it structurally.
type Backend interface {
	LoadUnderstanding(user, proj string) (*project.Understanding, error)
	SaveUnderstanding(user, proj string, u *project.Understanding) error
}

// BuildWindow renders the bounded user/assistant turn window plus the
// just-generated reply, newest-bounded to MaxWindowTurns prior turns.
func BuildWindow(turns []adapters.Message, reply string) string {
	if len(turns) > MaxWindowTurns {
		turns = turns[len(turns)-MaxWindowTurns:]
	}
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(string(t.Role) + ": " + t.Content + "\n")
	}
	b.WriteString("assistant: " + reply + "\n")
	return b.String()
}

const extractorSystemPrompt = `Extract interpretive memory from the conversation window below. Respond with ONLY a JSON object of this exact shape, no prose:
{"entities":[{"text":"...","uncertainty":"low|medium|high","evidence":"..."}],"relationship_dynamics":[...],"themes":[...],"values_goals":[...],"open_ambiguities":[...]}
Every "evidence" value MUST be a verbatim substring copied from the window. If you cannot find verbatim evidence for a candidate item, omit it.`

// Extract calls the model once with the strict JSON-extraction schema and
// parses its reply into an Understanding fragment (not yet merged,
// validated, or capped).
func Extract(ctx context.Context, model adapters.ModelCaller, window string) (project.Understanding, error) {
	messages := []adapters.Message{
		{Role: adapters.RoleSystem, Content: extractorSystemPrompt},
		{Role: adapters.RoleUser, Content: window},
	}
	reply, err := model.Chat(ctx, messages)
	if err != nil {
		return project.Understanding{}, err
	}
	var u project.Understanding
	if err := json.Unmarshal([]byte(extractJSON(reply)), &u); err != nil {
		return project.Understanding{}, err
	}
	return u, nil
}

// extractJSON pulls the first {...} block out of a reply that may be
// wrapped in prose or a code fence.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "{}"
	}
	return s[start : end+1]
}

// filterVerbatim keeps only items whose Evidence is a non-empty verbatim
// substring of the window — the core guarantee of InterpretiveMemory.
func filterVerbatim(items []project.InterpretiveItem, window string) []project.InterpretiveItem {
	var out []project.InterpretiveItem
	for _, it := range items {
		if it.Evidence == "" {
			continue
		}
		if !strings.Contains(window, it.Evidence) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Validate drops every item whose evidence doesn't verify against window.
func Validate(u project.Understanding, window string) project.Understanding {
	return project.Understanding{
		Entities:             filterVerbatim(u.Entities, window),
		RelationshipDynamics: filterVerbatim(u.RelationshipDynamics, window),
		Themes:               filterVerbatim(u.Themes, window),
		ValuesGoals:          filterVerbatim(u.ValuesGoals, window),
		OpenAmbiguities:      filterVerbatim(u.OpenAmbiguities, window),
	}
}

// Sentinel is merged in place of a failed extraction, to prove the
// write-path stays live even when the model call or JSON parse fails.
func Sentinel(turnIndex int) project.Understanding {
	return project.Understanding{
		OpenAmbiguities: []project.InterpretiveItem{
			{Text: "extraction_failed", Uncertainty: "high", TurnIndex: turnIndex},
		},
		LastUpdatedTurn: turnIndex,
	}
}

func capList(items []project.InterpretiveItem) []project.InterpretiveItem {
	if len(items) <= project.MaxInterpretiveItemsPerList {
		return items
	}
	return items[len(items)-project.MaxInterpretiveItemsPerList:]
}

// Merge appends fresh (validated or sentinel) items onto the existing
// document, capping every list and advancing last_updated_turn.
func Merge(existing *project.Understanding, fresh project.Understanding, turnIndex int) *project.Understanding {
	merged := &project.Understanding{
		Entities:             capList(append(append([]project.InterpretiveItem{}, existing.Entities...), fresh.Entities...)),
		RelationshipDynamics: capList(append(append([]project.InterpretiveItem{}, existing.RelationshipDynamics...), fresh.RelationshipDynamics...)),
		Themes:               capList(append(append([]project.InterpretiveItem{}, existing.Themes...), fresh.Themes...)),
		ValuesGoals:          capList(append(append([]project.InterpretiveItem{}, existing.ValuesGoals...), fresh.ValuesGoals...)),
		OpenAmbiguities:      capList(append(append([]project.InterpretiveItem{}, existing.OpenAmbiguities...), fresh.OpenAmbiguities...)),
		LastUpdatedTurn:      turnIndex,
	}
	return merged
}

// Run performs one full InterpretiveMemory cycle: extract, validate,
// merge, and persist. A failed extraction still merges and persists the
// sentinel, so the write path never goes silent.
func Run(ctx context.Context, model adapters.ModelCaller, backend Backend, user, proj string, turns []adapters.Message, reply string, turnIndex int) error {
	window := BuildWindow(turns, reply)

	existing, err := backend.LoadUnderstanding(user, proj)
	if err != nil {
		return err
	}

	extracted, err := Extract(ctx, model, window)
	var fresh project.Understanding
	if err != nil {
		fresh = Sentinel(turnIndex)
	} else {
		fresh = Validate(extracted, window)
	}

	merged := Merge(existing, fresh, turnIndex)
	return backend.SaveUnderstanding(user, proj, merged)
}
