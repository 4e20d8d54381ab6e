package store

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) bringupQueuePath(user, proj string) string {
	return filepath.Join(s.ProjectStateDir(user, proj), "bringup_queue.jsonl")
}

// AppendBringupRequest queues one couples-mode mediation item onto the
// recipient's own (user, project) queue — queued entries are append-only
// per partner (spec.md §3).
func (s *Store) AppendBringupRequest(toUser, proj string, req project.BringupRequest) (project.BringupRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = project.BringupQueued
	}
	dir := s.ProjectStateDir(toUser, proj)
	if err := s.ensureDir(dir); err != nil {
		return req, err
	}
	path := s.bringupQueuePath(toUser, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	if err := appendJSONL(path, req); err != nil {
		return req, err
	}
	return req, nil
}

// ListBringupQueue returns every queued/resolved item for (user, project).
func (s *Store) ListBringupQueue(user, proj string) ([]project.BringupRequest, error) {
	path := s.bringupQueuePath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var out []project.BringupRequest
	err := readJSONLInto(path, func(line []byte) error {
		var r project.BringupRequest
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// ResolveBringupRequest marks one queued item resolved by rewriting the
// whole queue (a small, infrequently-written file; acceptable to
// read-modify-write wholesale here unlike facts_raw).
func (s *Store) ResolveBringupRequest(user, proj, id string) (bool, error) {
	path := s.bringupQueuePath(user, proj)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var items []project.BringupRequest
	if err := readJSONLInto(path, func(line []byte) error {
		var r project.BringupRequest
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		items = append(items, r)
		return nil
	}); err != nil {
		return false, err
	}

	found := false
	for i := range items {
		if items[i].ID == id {
			items[i].Status = project.BringupResolved
			found = true
		}
	}
	if !found {
		return false, nil
	}
	tmp := path + ".tmp"
	if err := writeJSONLAll(tmp, items); err != nil {
		return false, err
	}
	return true, atomicRename(tmp, path)
}
