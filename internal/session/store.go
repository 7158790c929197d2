// Package session provides durable, per-user persistence of authentication
// sessions (cookies and tokens) with expiry-based invalidation.
//
// SECURITY: This store handles sensitive credentials. The following measures
// are implemented:
//   - The session directory is created with 0700 permissions (owner only)
//   - Record files are written with 0600 permissions (owner read/write only)
//   - Cookie and token values are NEVER logged (only usernames and counts)
//   - Expired records are deleted on the next load
//   - Unreadable (corrupt) records are deleted on load rather than surfaced
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entraflow/internal/browser"
	"entraflow/pkg/logging"
)

// TTL is the validity window of a saved session. It is a process-wide
// constant, not configurable per call.
const TTL = 8 * time.Hour

// recordVersion is the on-disk format version. Records with any other
// version are treated as corrupt and removed.
const recordVersion = 1

const logSubsystem = "SessionStore"

// Record is one persisted authentication session.
type Record struct {
	Version   int               `json:"version"`
	Username  string            `json:"username"`
	Cookies   []browser.Cookie  `json:"cookies"`
	Tokens    map[string]string `json:"tokens"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired reports whether the record's validity window has passed.
func (r *Record) Expired() bool {
	return !time.Now().Before(r.ExpiresAt)
}

// StorageError indicates an I/O failure on the session store (permission
// denied, disk full). Unlike corruption, these are surfaced to the caller.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store persists session records as JSON files under a single directory,
// one file per sanitized username.
type Store struct {
	dir string
}

// NewStore creates the session directory with owner-only permissions if it
// does not exist and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory records are stored under.
func (s *Store) Dir() string { return s.dir }

// Save writes a new record for username, overwriting any prior one. The
// record is valid from now until now + TTL.
func (s *Store) Save(username string, cookies []browser.Cookie, tokens map[string]string) error {
	if tokens == nil {
		tokens = map[string]string{}
	}
	now := time.Now()
	record := &Record{
		Version:   recordVersion,
		Username:  username,
		Cookies:   cookies,
		Tokens:    tokens,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: username, Err: err}
	}

	path := s.recordPath(username)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}

	logging.Info(logSubsystem, "Saved session for %s (%d cookies, %d tokens, expires %s)",
		username, len(cookies), len(tokens), record.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Load returns the record for username if it is present, well-formed, and
// unexpired; otherwise nil. Expired and corrupt records are deleted before
// returning nil. Only I/O failures produce a non-nil error.
func (s *Store) Load(username string) (*Record, error) {
	path := s.recordPath(username)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil || record.Version != recordVersion || record.ExpiresAt.IsZero() {
		// Corrupt record: same invalidation path as expiry.
		logging.Warn(logSubsystem, "Removing corrupt session record for %s", username)
		if err := s.removeRecord(path); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if record.Expired() {
		logging.Debug(logSubsystem, "Removing expired session for %s (expired %s)",
			username, record.ExpiresAt.Format(time.RFC3339))
		if err := s.removeRecord(path); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &record, nil
}

// Clear deletes the record for username if present. Clearing an absent
// record is not an error.
func (s *Store) Clear(username string) error {
	return s.removeRecord(s.recordPath(username))
}

// ClearAll deletes every record in the store.
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &StorageError{Op: "list", Path: s.dir, Err: err}
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := s.removeRecord(path); err != nil {
			return err
		}
		removed++
	}

	logging.Info(logSubsystem, "Cleared %d session record(s)", removed)
	return nil
}

// IsValid reports whether a valid (unexpired) session exists for username.
func (s *Store) IsValid(username string) bool {
	record, err := s.Load(username)
	return err == nil && record != nil
}

// List returns every valid record in the store, applying the same lazy
// expiry and corruption cleanup as Load.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "list", Path: s.dir, Err: err}
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".json")
		record, err := s.Load(key)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *Store) removeRecord(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// recordPath derives the storage file for a username. The username is
// sanitized first, so untrusted input can never escape the session
// directory. Two usernames whose sanitized forms collide share one record;
// the later save wins.
func (s *Store) recordPath(username string) string {
	return filepath.Join(s.dir, sanitizeUsername(username)+".json")
}

// sanitizeUsername strips every character outside [A-Za-z0-9._-].
func sanitizeUsername(username string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, username)
}
