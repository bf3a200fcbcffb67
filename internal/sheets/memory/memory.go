// Package memory is an in-process TransactionMirror for local runs and tests.
package memory

import (
	"context"
	"sync"

	"finanzas/internal/sheets"
)

type Store struct {
	mu         sync.Mutex
	order      []string
	rows       map[string]sheets.Row
	tombstones map[string]int64
}

var (
	_ sheets.TransactionMirror = (*Store)(nil)
	_ sheets.RowLister         = (*Store)(nil)
)

func New() *Store {
	return &Store{rows: make(map[string]sheets.Row), tombstones: make(map[string]int64)}
}

func (s *Store) Upsert(_ context.Context, r sheets.Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, dead := s.tombstones[r.ID]; dead && v >= r.Version {
		return false, nil
	}
	cur, ok := s.rows[r.ID]
	if ok && cur.Version >= r.Version {
		return false, nil
	}
	if !ok {
		s.order = append(s.order, r.ID)
	}
	s.rows[r.ID] = r
	return true, nil
}

// Delete removes the row and records a tombstone. A row newer than version
// is kept.
func (s *Store) Delete(_ context.Context, id string, version int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rows[id]; ok && cur.Version > version {
		return false, nil
	}
	if v, dead := s.tombstones[id]; dead && v >= version {
		return false, nil
	}
	s.tombstones[id] = version
	if _, ok := s.rows[id]; ok {
		delete(s.rows, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return true, nil
}

// Rows returns the rows in insertion order.
func (s *Store) Rows(_ context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out, nil
}
