package facts

import (
	"time"

	"go.uber.org/zap"

	"github.com/Frankh1982/projectos/internal/project"
)

// Backend is the persistence surface FactStore needs; internal/store.Store
// satisfies it. Kept narrow so this package never imports store directly
// beyond this interface, matching the rest of the core's external-adapter
// style (spec.md §6 ExternalInterfaces).
type Backend interface {
	AppendRawFact(user, proj string, f project.RawFact) error
	AppendUserRawFact(user string, f project.RawFact) error
	ReadRawFacts(user, proj string) ([]project.RawFact, error)
	ReadUserRawFacts(user string) ([]project.RawFact, error)
	RewriteRawFacts(user, proj string, facts []project.RawFact) error
	WriteFactsMap(user, proj string, markdown string) error
	ReadFactsMap(user, proj string) (string, error)
	LoadUserProfile(user string) (*project.UserProfile, error)
	SaveUserProfile(user string, p *project.UserProfile) error
	LoadUserGlobalFactsMap(user string) ([]project.GlobalFact, error)
	SaveUserGlobalFactsMap(user string, facts []project.GlobalFact) error
}

// PolicyChecker is the write-time gate FactStore consults before
// persisting a Tier-1 candidate. internal/policy.Engine implements this.
type PolicyChecker interface {
	// CheckWrite returns the action a matching rule demands, or
	// ("", false) if no rule matches this candidate.
	CheckWrite(user string, candidate project.RawFact) (project.PolicyAction, bool)
}

// Store is the Tier-1 capture surface (spec.md §4.4 FactStore).
type Store struct {
	backend Backend
	log     *zap.SugaredLogger
}

func New(backend Backend, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{backend: backend, log: log}
}

// WriteResult reports what happened to a candidate fact, for AuditTrace.
type WriteResult struct {
	Written bool
	Reason  string // "" | "guard_rejected" | "policy_denied"
}

// AppendFactRawCandidate gates and appends one Tier-1 candidate for a
// project. Evidence must already be a verbatim substring of the turn's
// extraction window — callers (the intent/extraction stage) are
// responsible for that invariant (spec.md §8).
func (s *Store) AppendFactRawCandidate(user, proj string, candidate project.RawFact, policy PolicyChecker) (WriteResult, error) {
	if !EligibleForStorage(candidate.Claim) {
		return WriteResult{Written: false, Reason: "guard_rejected"}, nil
	}
	if policy != nil {
		if action, matched := policy.CheckWrite(user, candidate); matched && action == project.PolicyDoNotStore {
			s.log.Debugw("fact write denied by policy", "user", user, "project", proj, "entity_key", candidate.EntityKey)
			return WriteResult{Written: false, Reason: "policy_denied"}, nil
		}
	}
	if candidate.Timestamp.IsZero() {
		candidate.Timestamp = time.Now().UTC()
	}
	if err := s.backend.AppendRawFact(user, proj, candidate); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: true}, nil
}

// AppendUserFactRawCandidate mirrors a candidate onto the user-global
// Tier-1G tier, subject to the same guard and policy gate.
func (s *Store) AppendUserFactRawCandidate(user string, candidate project.RawFact, policy PolicyChecker) (WriteResult, error) {
	if !EligibleForStorage(candidate.Claim) {
		return WriteResult{Written: false, Reason: "guard_rejected"}, nil
	}
	if policy != nil {
		if action, matched := policy.CheckWrite(user, candidate); matched && action == project.PolicyDoNotStore {
			return WriteResult{Written: false, Reason: "policy_denied"}, nil
		}
	}
	if candidate.Timestamp.IsZero() {
		candidate.Timestamp = time.Now().UTC()
	}
	if err := s.backend.AppendUserRawFact(user, candidate); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: true}, nil
}
