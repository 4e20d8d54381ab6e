package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) activeObjectPath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "active_object.json")
}

// LoadActiveObject returns the current AOF record, or nil if none is set.
func (s *Store) LoadActiveObject(user, proj string) (*project.ActiveObject, error) {
	path := s.activeObjectPath(user, proj)
	var ao project.ActiveObject
	err := readJSON(path, &ao)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ao.RelPath == "" {
		return nil, nil
	}
	return &ao, nil
}

// SaveActiveObject persists the AOF record.
func (s *Store) SaveActiveObject(user, proj string, ao *project.ActiveObject) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	return writeJSON(s.activeObjectPath(user, proj), ao)
}

// ClearActiveObject drops AOF (new upload or explicit topic-break, spec.md §3).
func (s *Store) ClearActiveObject(user, proj string) error {
	return s.SaveActiveObject(user, proj, &project.ActiveObject{})
}
