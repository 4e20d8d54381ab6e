package store

import (
	"encoding/json"
	"path/filepath"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) factsRawPath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "facts_raw.jsonl")
}

func (s *Store) userFactsRawPath(user string) string {
	return filepath.Join(s.UserDir(user), "facts_raw.jsonl")
}

func (s *Store) factsMapPath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "facts_map.md")
}

// AppendRawFact appends one Tier-1 project-scoped record (spec.md §4.4).
// Records are never mutated once written.
func (s *Store) AppendRawFact(user, proj string, f project.RawFact) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.factsRawPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return appendJSONL(path, f)
}

// AppendUserRawFact mirrors a Tier-1 candidate to the user-global log.
func (s *Store) AppendUserRawFact(user string, f project.RawFact) error {
	dir := s.UserDir(user)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.userFactsRawPath(user)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return appendJSONL(path, f)
}

// ReadRawFacts loads every project-scoped Tier-1 record on disk.
func (s *Store) ReadRawFacts(user, proj string) ([]project.RawFact, error) {
	path := s.factsRawPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var out []project.RawFact
	err := readJSONLInto(path, func(line []byte) error {
		var f project.RawFact
		if err := json.Unmarshal(line, &f); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// ReadUserRawFacts loads every user-scoped (Tier-1G) record on disk.
func (s *Store) ReadUserRawFacts(user string) ([]project.RawFact, error) {
	path := s.userFactsRawPath(user)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var out []project.RawFact
	err := readJSONLInto(path, func(line []byte) error {
		var f project.RawFact
		if err := json.Unmarshal(line, &f); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// RewriteRawFacts replaces facts_raw.jsonl wholesale. Used by
// FactDistiller's normalization pass (spec.md §4.4's
// normalize_facts_raw_jsonl), which is the one caller allowed to rewrite
// this otherwise-append-only log.
func (s *Store) RewriteRawFacts(user, proj string, facts []project.RawFact) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.factsRawPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	tmp := path + ".tmp"
	if err := writeJSONLAll(tmp, facts); err != nil {
		return err
	}
	return atomicRename(tmp, path)
}

// WriteFactsMap renders and persists the Tier-2 compact facts map as
// Markdown — the distiller is the sole writer of this file (spec.md §3).
func (s *Store) WriteFactsMap(user, proj string, markdown string) error {
	dir := s.ProjectStateDir(user, proj)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	path := s.factsMapPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return writeFile(path, markdown)
}

// ReadFactsMap returns the current facts_map.md contents, or "" if absent.
func (s *Store) ReadFactsMap(user, proj string) (string, error) {
	path := s.factsMapPath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return readFileOrEmpty(path)
}
