package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) stateFilePath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "project_state.json")
}

// LoadState loads project_state.json, creating a default in-memory
// document (not yet persisted) on first access — a project is "created
// on first access" per spec.md §3.
func (s *Store) LoadState(user, proj string) (*project.State, error) {
	path := s.stateFilePath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	st := defaultState(user, proj)
	err := readJSON(path, st)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	st.User = user
	st.Name = proj
	return st, nil
}

func defaultState(user, proj string) *project.State {
	return &project.State{
		User: user,
		Name: proj,
		Mode: project.ModeOpenWorld,
		Boot: project.BootstrapNeedsGoal,
	}
}

// SaveState persists the whole state document (read-modify-write).
func (s *Store) SaveState(user, proj string, st *project.State) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.stateFilePath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return writeJSON(path, st)
}
