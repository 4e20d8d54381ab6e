package store

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) decisionsPath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "decisions.jsonl")
}

// AppendDecision records one confirmed decision (append-only).
func (s *Store) AppendDecision(user, proj string, text string) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.decisionsPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return appendJSONL(path, project.Decision{Text: text, Timestamp: time.Now().UTC()})
}

// ListDecisions returns confirmed decisions oldest-first.
func (s *Store) ListDecisions(user, proj string) ([]project.Decision, error) {
	path := s.decisionsPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var out []project.Decision
	err := readJSONLInto(path, func(line []byte) error {
		var d project.Decision
		if err := json.Unmarshal(line, &d); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// RecentDecisionsDesc returns up to n most recent decisions, newest-first.
// This is the Open Question in spec.md §9 ("exact ordering of Recent
// decisions/uploads lines is external to the core"); DESIGN.md documents
// the newest-first choice made here as the one true pulse renderer.
func RecentDecisionsDesc(decisions []project.Decision, n int) []project.Decision {
	if n <= 0 || n > len(decisions) {
		n = len(decisions)
	}
	out := make([]project.Decision, n)
	for i := 0; i < n; i++ {
		out[i] = decisions[len(decisions)-1-i]
	}
	return out
}
