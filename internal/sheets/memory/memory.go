// Package memory is an in-process Publisher for tests and local runs without
// Google credentials.
package memory

import (
	"context"
	"sync"

	"kas/internal/core"
	ports "kas/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	entries []core.TransparencyEntry
	writes  int
}

var _ ports.Publisher = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Publish(_ context.Context, entries []core.TransparencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]core.TransparencyEntry(nil), entries...)
	s.writes++
	return nil
}

// Entries returns a copy of the last published feed.
func (s *Store) Entries() []core.TransparencyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransparencyEntry(nil), s.entries...)
}

// Writes reports how many times Publish has been called.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
