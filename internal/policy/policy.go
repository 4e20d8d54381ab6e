// Package policy implements PolicyEngine (spec.md §4.6): per-user memory
// policy rules gating Tier-1 writes, Tier-2M mirroring, and canonical
// snippet resurfacing.
package policy

import (
	"strings"

	"github.com/Frankh1982/projectos/internal/project"
)

// Decision is the three-gate verdict for one candidate fact.
type Decision struct {
	Store         bool
	MirrorGlobal  bool
	AllowResurface bool
}

var allowDecision = Decision{Store: true, MirrorGlobal: true, AllowResurface: true}

// Engine evaluates a fixed set of per-user PolicyRules at write, mirror,
// and read time. Rules are loaded by the caller (internal/store) and
// handed in — the engine itself holds no persistence.
type Engine struct {
	rules map[string][]project.PolicyRule // keyed by user
}

func New() *Engine {
	return &Engine{rules: make(map[string][]project.PolicyRule)}
}

// SetRules replaces the rule set for a user (called after store.LoadMemoryPolicies).
func (e *Engine) SetRules(user string, rules []project.PolicyRule) {
	e.rules[user] = rules
}

func matches(rule project.PolicyRule, entityKey, claim string) bool {
	switch rule.MatchType {
	case project.MatchEntityKey:
		return entityKey != "" && strings.EqualFold(entityKey, rule.MatchValue)
	case project.MatchSubstring:
		return rule.MatchValue != "" && strings.Contains(strings.ToLower(claim), strings.ToLower(rule.MatchValue))
	default:
		return false
	}
}

// CheckWrite implements facts.PolicyChecker: returns the first do_not_store
// rule that matches, or ("", false) if none do.
func (e *Engine) CheckWrite(user string, candidate project.RawFact) (project.PolicyAction, bool) {
	for _, r := range e.rules[user] {
		if r.Action == project.PolicyDoNotStore && matches(r, candidate.EntityKey, candidate.Claim) {
			return project.PolicyDoNotStore, true
		}
	}
	return "", false
}

// PolicyDecisionForTier1Claim evaluates all three gates for one claim in
// one pass (spec.md §4.4's policy_decision_for_tier1_claim).
func (e *Engine) PolicyDecisionForTier1Claim(user, entityKey, claim string) Decision {
	d := allowDecision
	for _, r := range e.rules[user] {
		if !matches(r, entityKey, claim) {
			continue
		}
		switch r.Action {
		case project.PolicyDoNotStore:
			d.Store = false
			d.MirrorGlobal = false
			d.AllowResurface = false
		case project.PolicyProjectOnly:
			d.MirrorGlobal = false
		case project.PolicyDoNotResurface:
			d.AllowResurface = false
		case project.PolicyAllowGlobal:
			d.MirrorGlobal = true
		}
	}
	return d
}

// FilterResurfaceable drops facts whose (entity_key, claim) the
// do_not_resurface gate denies — used by RetrievalBuilder before
// composing canonical snippets (spec.md §4.6 read-time gate).
func (e *Engine) FilterResurfaceable(user string, facts []project.CompactFact) []project.CompactFact {
	out := make([]project.CompactFact, 0, len(facts))
	for _, f := range facts {
		if e.PolicyDecisionForTier1Claim(user, f.EntityKey, f.Claim).AllowResurface {
			out = append(out, f)
		}
	}
	return out
}
