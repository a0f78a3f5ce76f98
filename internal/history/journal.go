// Package history keeps a journal of refactoring invocations: what was
// attempted, where, and how it ended. The journal is best-effort by
// contract; a broken journal must never block a refactor.
package history

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Journal schema version. Bump when the Entry layout changes; old
// journals are discarded rather than migrated.
const schemaVersion uint16 = 1

// Entry records one refactoring invocation, applied or not. Outcome
// holds the flow's terminal code ("applied", "aborted-fatal", ...).
type Entry struct {
	ID         string
	Time       time.Time
	Kind       string
	File       string
	Offset     int
	Length     int
	Outcome    string
	Fatals     []string
	Actionable []string
	Applied    bool
	Server     string
}

// journalFile is the on-disk layout: a schema header plus the entries
// in append order.
type journalFile struct {
	Schema  uint16
	Entries []Entry
}

// Journal is an append log of refactorings at a fixed path. A nil
// journal accepts every call and does nothing, so callers can disable
// history without branching.
type Journal struct {
	mu   sync.Mutex
	path string
}

// Open returns a journal stored at path. An empty path uses
// DefaultPath. The file is created lazily on first Append.
func Open(path string) (*Journal, error) {
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return nil, errors.New("no state directory available")
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &Journal{path: abs}, nil
}

// DefaultPath returns the standard journal location, honoring
// $XDG_STATE_HOME. Returns "" when no home directory can be found.
func DefaultPath() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "refract", "history.msgpack")
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Append adds an entry to the journal, filling in a fresh ID and the
// current time when the caller left them zero. The file is read,
// extended, and atomically rewritten; an unreadable or incompatible
// file is replaced rather than repaired.
func (j *Journal) Append(e Entry) error {
	if j == nil {
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file := j.read()
	file.Entries = append(file.Entries, e)
	return j.write(file)
}

// List returns entries newest-first. A non-positive limit returns all.
// Missing or unreadable journals read as empty.
func (j *Journal) List(limit int) []Entry {
	if j == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries := j.read().Entries
	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// read loads the journal, starting fresh when the file is missing,
// unreadable, or from another schema version.
func (j *Journal) read() *journalFile {
	fresh := &journalFile{Schema: schemaVersion}

	data, err := os.ReadFile(j.path)
	if err != nil {
		return fresh
	}

	var file journalFile
	if err := msgpack.Unmarshal(data, &file); err != nil {
		return fresh
	}
	if file.Schema != schemaVersion {
		return fresh
	}
	return &file
}

// write replaces the journal atomically: temp file in the same
// directory, then rename over.
func (j *Journal) write(file *journalFile) error {
	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := msgpack.Marshal(file)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "history-*")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), j.path)
}
