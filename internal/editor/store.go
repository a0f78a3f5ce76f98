package editor

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Store caches open documents by absolute path so one invocation's
// capture and final gate always see the same Document instance.
type Store struct {
	mu     sync.RWMutex
	editor Editor
	docs   map[string]Document
}

// NewStore creates a store that opens documents through the given
// editor.
func NewStore(ed Editor) *Store {
	return &Store{
		editor: ed,
		docs:   make(map[string]Document),
	}
}

// Open returns the cached document for path, opening it on first use.
// Paths are normalized to absolute before lookup, so relative and
// absolute spellings of the same file share one document.
func (s *Store) Open(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	s.mu.RLock()
	doc, ok := s.docs[abs]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[abs]; ok {
		return doc, nil
	}

	doc, err = s.editor.Open(abs)
	if err != nil {
		return nil, err
	}
	s.docs[abs] = doc
	return doc, nil
}

// Get returns the cached document for path without opening.
func (s *Store) Get(path string) (Document, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	doc, ok := s.docs[abs]
	s.mu.RUnlock()
	return doc, ok
}

// Forget drops the cached document for path.
func (s *Store) Forget(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	s.mu.Lock()
	delete(s.docs, abs)
	s.mu.Unlock()
}

// Paths returns the cached paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	sort.Strings(paths)
	return paths
}
