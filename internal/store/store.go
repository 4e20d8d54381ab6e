// Package store is the durable persistence layer (spec.md §6): JSON for
// objects, JSON Lines for append-only logs, plain Markdown for distilled
// maps. Adapted from the reference server's sqlite store.go (Open,
// migrate, one struct per table) to a file-backed model — the shape
// (Open constructs, ensures the data dir exists, exposes typed
// load/save methods) is the same, the storage medium is what spec.md
// requires.
//
// Writers use read-modify-write; append-only logs use single-writer
// append semantics per file, enforced here with one mutex per file path
// rather than a single global lock, so unrelated (user, project) pairs
// never contend (spec.md §5).
package store

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Frankh1982/projectos/internal/pathsan"
)

type Store struct {
	root string
	log  *zap.SugaredLogger

	filesMu sync.Mutex
	files   map[string]*sync.Mutex

	auditIndex *auditIndex
}

// Open constructs a Store rooted at dataDir and opens the derived audit
// SQLite mirror alongside it. The mirror is best-effort: if it fails to
// open, the store still works off the authoritative JSONL files, and the
// !ledger queries return no rows.
func Open(dataDir string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		root:  dataDir,
		log:   log,
		files: make(map[string]*sync.Mutex),
	}
	idx, err := openAuditIndex(filepath.Join(dataDir, "audit_log.sqlite"))
	if err != nil {
		log.Warnw("audit sqlite mirror unavailable, !ledger queries will return no rows", "err", err)
	} else {
		s.auditIndex = idx
	}
	return s, nil
}

// Close releases the derived audit index's database handle, if open.
func (s *Store) Close() error {
	if s.auditIndex != nil {
		return s.auditIndex.close()
	}
	return nil
}

// lockFor returns the single-writer mutex for a given path, creating it
// on first use. Safe for concurrent callers across (user, project) pairs.
func (s *Store) lockFor(path string) *sync.Mutex {
	s.filesMu.Lock()
	defer s.filesMu.Unlock()
	m, ok := s.files[path]
	if !ok {
		m = &sync.Mutex{}
		s.files[path] = m
	}
	return m
}

// ProjectDir returns the sanitized on-disk directory for (user, project).
func (s *Store) ProjectDir(user, project string) string {
	u := pathsan.SafeProjectName(user)
	p := pathsan.SafeProjectName(project)
	return filepath.Join(s.root, u, p)
}

// ProjectStateDir returns the "state" subdirectory for (user, project).
func (s *Store) ProjectStateDir(user, project string) string {
	return filepath.Join(s.ProjectDir(user, project), "state")
}

// UserDir returns the sanitized per-user directory ("_user").
func (s *Store) UserDir(user string) string {
	return filepath.Join(s.root, pathsan.SafeProjectName(user), "_user")
}

func (s *Store) ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
