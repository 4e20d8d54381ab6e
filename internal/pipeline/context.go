// Package pipeline implements the explicit stage orchestration spec.md
// §9 asks for: CommandShortCircuit -> FactStore.Append -> PolicyEngine.Gate
// -> FactDistiller.MaybeRun -> IntentClassifier -> RetrievalBuilder ->
// GroundedGenerator -> SafetyGate/ConstraintValidator -> AuditTrace.
package pipeline

import "strings"

// Context replaces the original implementation's audit contextvars
// (dot-path set, shallow-merge update, reset-per-turn) with an explicit
// value threaded through every stage call instead of ambient/global
// state. One Context is created per turn and never reused.
type Context struct {
	TraceID  string
	Decision map[string]any
}

// NewContext starts a fresh per-turn context.
func NewContext(traceID string) *Context {
	return &Context{TraceID: traceID, Decision: map[string]any{}}
}

// Set assigns one top-level decision key.
func (c *Context) Set(key string, value any) {
	c.Decision[key] = value
}

// SetPath assigns value at a dot-separated path, creating intermediate
// maps as needed — the Go equivalent of the original's dot-path set.
func (c *Context) SetPath(path string, value any) {
	parts := strings.Split(path, ".")
	m := c.Decision
	for i, p := range parts {
		if i == len(parts)-1 {
			m[p] = value
			return
		}
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
}

// MergeShallow merges kv into the top-level decision map, overwriting
// any existing keys — the Go equivalent of the original's shallow merge.
func (c *Context) MergeShallow(kv map[string]any) {
	for k, v := range kv {
		c.Decision[k] = v
	}
}
