package members

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"kas/internal/core"
)

// Store is an in-memory roster, optionally seeded from a JSON file.
type Store struct {
	mu     sync.Mutex
	roster []core.Member
}

func New(roster []core.Member) *Store {
	return &Store{roster: append([]core.Member(nil), roster...)}
}

// NewFromFile loads a roster from a JSON array of members. A missing file is
// not an error: the directory starts empty and reports can still run.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var roster []struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		ExternalCode string `json:"external_code"`
	}
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}

	out := make([]core.Member, 0, len(roster))
	for _, m := range roster {
		if m.ID == 0 || m.Name == "" {
			continue
		}
		out = append(out, core.Member{ID: m.ID, Name: m.Name, ExternalCode: m.ExternalCode})
	}
	return New(out), nil
}

// List returns a copy of the roster.
func (s *Store) List(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, len(s.roster))
	copy(out, s.roster)
	return out, nil
}
