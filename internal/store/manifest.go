package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) manifestPath(user, proj string) string {
	return filepath.Join(s.ProjectDir(user, proj), "manifest.json")
}

// LoadManifest reads the upload/artifact manifest. The core never writes
// it (spec.md §3: "the core reads manifest entries but never writes
// uploads directly"); a missing manifest is an empty one.
func (s *Store) LoadManifest(user, proj string) (*project.Manifest, error) {
	path := s.manifestPath(user, proj)
	m := &project.Manifest{}
	err := readJSON(path, m)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return m, nil
}
