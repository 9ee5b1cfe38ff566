package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tally/internal/core"
	ports "tally/internal/sheets"
)

// Store is an in-process mirror used when no spreadsheet is configured and
// in tests.
type Store struct {
	mu    sync.Mutex
	items map[int64]core.Transaction
}

var _ ports.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[int64]core.Transaction)}
}

// Append stores the transaction and returns a synthetic row reference.
// Appending an id twice keeps the first copy.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if t.ID <= 0 {
		return "", fmt.Errorf("append transaction: invalid id %d", t.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[t.ID]; !ok {
		s.items[t.ID] = t
	}
	return fmt.Sprintf("mem:%d", t.ID), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// List returns the mirrored transactions ordered by id.
func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
