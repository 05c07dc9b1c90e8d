// Package cache persists per-file semantic indices in sqlite so unchanged
// files skip re-parsing across runs. Entries are keyed by path and content
// hash; a hash mismatch is a miss.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	coreerrors "unravel/internal/core/errors"
	"unravel/internal/engine/semantic"
)

const (
	driverName    = "sqlite"
	schemaVersion = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS file_indices (
  path           TEXT NOT NULL,
  content_hash   TEXT NOT NULL,
  schema_version INTEGER NOT NULL,
  indexed_utc    TEXT NOT NULL,
  payload        BLOB NOT NULL,
  PRIMARY KEY (path)
);
`

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, coreerrors.New(coreerrors.CodeValidationError, "cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeValidationError, "cache path is a directory, expected file"),
			coreerrors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeIOError, "create cache directory"),
				coreerrors.CtxPath, dir)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeIOError, "open sqlite cache"),
			coreerrors.CtxPath, cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeIOError, "ping sqlite cache"),
			coreerrors.CtxPath, cleanPath)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeIOError, "initialize sqlite schema"),
			coreerrors.CtxPath, cleanPath)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached index when path and content hash both match.
func (s *Store) Get(path string, contentHash uint64) (*semantic.FileIndex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	var version int
	err := s.db.QueryRow(
		`SELECT payload, schema_version FROM file_indices WHERE path = ? AND content_hash = ?`,
		path, hashKey(contentHash),
	).Scan(&payload, &version)
	if err != nil || version != schemaVersion {
		return nil, false
	}

	idx, err := semantic.DecodeIndex(payload)
	if err != nil {
		return nil, false
	}
	return idx, true
}

func (s *Store) Put(idx *semantic.FileIndex) error {
	payload, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index %q: %w", idx.Path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
INSERT INTO file_indices (path, content_hash, schema_version, indexed_utc, payload)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  content_hash=excluded.content_hash,
  schema_version=excluded.schema_version,
  indexed_utc=excluded.indexed_utc,
  payload=excluded.payload
`,
		idx.Path,
		hashKey(idx.ContentHash),
		schemaVersion,
		time.Now().UTC().Format(time.RFC3339Nano),
		payload,
	)
	if err != nil {
		return fmt.Errorf("store index %q: %w", idx.Path, err)
	}
	return nil
}

func (s *Store) Evict(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM file_indices WHERE path = ?`, path)
	return err
}

// hashKey renders the hash as text: sqlite integers are signed 64-bit and
// would flip the sign of large hashes.
func hashKey(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
