package store

import (
	"path/filepath"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) understandingPath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "understanding.json")
}

// LoadUnderstanding loads the interpretive-memory document, defaulting to
// an empty one on first access.
func (s *Store) LoadUnderstanding(user, proj string) (*project.Understanding, error) {
	path := s.understandingPath(user, proj)
	u := &project.Understanding{}
	if err := readJSON(path, u); err != nil {
		return u, nil // a missing/corrupt file yields a fresh document; interpretive memory is best-effort
	}
	return u, nil
}

// SaveUnderstanding persists the interpretive-memory document.
func (s *Store) SaveUnderstanding(user, proj string, u *project.Understanding) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	return writeJSON(s.understandingPath(user, proj), u)
}
