// Package intent implements IntentClassifier and ContinuityClassifier
// (spec.md §4.9): single JSON-schema model calls plus deterministic
// post-corrections layered on top.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Frankh1982/projectos/internal/adapters"
)

// Intent enumerates the accepted intent classes.
type Intent string

const (
	IntentRecall  Intent = "recall"
	IntentStatus  Intent = "status"
	IntentPlan    Intent = "plan"
	IntentExecute Intent = "execute"
	IntentLookup  Intent = "lookup"
	IntentMisc    Intent = "misc"
)

// Scope is always coerced to current_project (spec.md §4.9).
const ScopeCurrentProject = "current_project"

// Classification is the IntentClassifier output.
type Classification struct {
	Intent   Intent   `json:"intent"`
	Entities []string `json:"entities"`
	Scope    string   `json:"scope"`
}

// Continuity enumerates the ContinuityClassifier output classes.
type Continuity string

const (
	ContinuitySameTopic Continuity = "same_topic"
	ContinuityNewTopic  Continuity = "new_topic"
	ContinuityUnclear   Continuity = "unclear"
)

// ContinuityResult is the ContinuityClassifier output.
type ContinuityResult struct {
	Continuity   Continuity `json:"continuity"`
	FollowupOnly bool       `json:"followup_only"`
	Topic        string     `json:"topic"`
}

var (
	fileReferenceRe = regexp.MustCompile(`(?i)\b[\w.\-]+\.(pdf|png|jpe?g|gif|xlsx?|docx?|csv|txt|md)\b`)
	shortGreetingRe = regexp.MustCompile(`(?i)^(hi|hello|hey|yo|sup|good (morning|afternoon|evening))[.!]?$`)
)

const intentSchemaInstruction = `Respond with JSON only: {"intent": one of recall|status|plan|execute|lookup|misc, "entities": [string], "scope": "current_project"}`

// Classify asks the model for an intent classification, then applies
// the deterministic post-corrections spec.md §4.9 requires before
// returning the final answer.
func Classify(ctx context.Context, model adapters.ModelCaller, userMsg string) (Classification, error) {
	c, err := classifyRaw(ctx, model, userMsg)
	if err != nil {
		return Classification{}, err
	}
	c.Scope = ScopeCurrentProject

	if shortGreetingRe.MatchString(strings.TrimSpace(userMsg)) {
		c.Intent = IntentMisc
	} else if c.Intent == IntentRecall && fileReferenceRe.MatchString(userMsg) {
		c.Intent = IntentMisc
	}
	return c, nil
}

func classifyRaw(ctx context.Context, model adapters.ModelCaller, userMsg string) (Classification, error) {
	messages := []adapters.Message{
		{Role: adapters.RoleSystem, Content: intentSchemaInstruction},
		{Role: adapters.RoleUser, Content: userMsg},
	}
	reply, err := model.Chat(ctx, messages)
	if err != nil {
		return Classification{}, err
	}
	var c Classification
	if err := json.Unmarshal([]byte(extractJSON(reply)), &c); err != nil {
		return Classification{}, fmt.Errorf("intent classification: invalid model JSON: %w", err)
	}
	if !validIntent(c.Intent) {
		c.Intent = IntentMisc
	}
	return c, nil
}

func validIntent(i Intent) bool {
	switch i {
	case IntentRecall, IntentStatus, IntentPlan, IntentExecute, IntentLookup, IntentMisc:
		return true
	default:
		return false
	}
}

const continuitySchemaInstruction = `Respond with JSON only: {"continuity": one of same_topic|new_topic|unclear, "followup_only": bool, "topic": string}`

// ClassifyContinuity asks the model for a continuity classification and
// applies the same_topic/true default when the model's answer is
// ambiguous or errors on the structural side (spec.md §4.9).
func ClassifyContinuity(ctx context.Context, model adapters.ModelCaller, recentTurns []string, userMsg string) (ContinuityResult, error) {
	messages := []adapters.Message{
		{Role: adapters.RoleSystem, Content: continuitySchemaInstruction},
	}
	for _, t := range recentTurns {
		messages = append(messages, adapters.Message{Role: adapters.RoleUser, Content: t})
	}
	messages = append(messages, adapters.Message{Role: adapters.RoleUser, Content: userMsg})

	reply, err := model.Chat(ctx, messages)
	if err != nil {
		return ContinuityResult{}, err
	}
	var r ContinuityResult
	if err := json.Unmarshal([]byte(extractJSON(reply)), &r); err != nil || !validContinuity(r.Continuity) {
		return ContinuityResult{Continuity: ContinuitySameTopic, FollowupOnly: true}, nil
	}
	return r, nil
}

func validContinuity(c Continuity) bool {
	switch c {
	case ContinuitySameTopic, ContinuityNewTopic, ContinuityUnclear:
		return true
	default:
		return false
	}
}

// extractJSON trims surrounding prose/code fences a model sometimes
// wraps its JSON reply in, returning the first {...} block found.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
