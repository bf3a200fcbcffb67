// Package memory is an in-process account and transaction store, used for
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finanzas/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]core.Account
	txs      map[string]core.Transaction
	order    []string // transaction insertion order
}

func New() *Store {
	return &Store{
		accounts: make(map[string]core.Account),
		txs:      make(map[string]core.Transaction),
	}
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, exists := s.accounts[a.ID]; exists {
		return core.Account{}, fmt.Errorf("account %q already exists", a.ID)
	}
	s.accounts[a.ID] = cloneAccount(a)
	return cloneAccount(a), nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	return cloneAccount(a), nil
}

// ListAccounts returns the owner's accounts ordered by name.
func (s *Store) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok {
		return fmt.Errorf("account %q: %w", a.ID, core.ErrNotFound)
	}
	a.Balance = cur.Balance
	a.InitialBalance = cur.InitialBalance
	a.OwnerID = cur.OwnerID
	a.CreatedAt = cur.CreatedAt
	s.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (s *Store) UpdateBalance(_ context.Context, id string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	a.Balance = balance
	s.accounts[id] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := s.txs[t.ID]; exists {
		return core.Transaction{}, fmt.Errorf("transaction %q already exists", t.ID)
	}
	s.txs[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// ListTransactions returns the owner's matching transactions, newest date
// first; ties keep insertion order.
func (s *Store) ListTransactions(_ context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, id := range s.order {
		t, ok := s.txs[id]
		if !ok || t.OwnerID != ownerID || !f.Match(t) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txs[t.ID]
	if !ok {
		return fmt.Errorf("transaction %q: %w", t.ID, core.ErrNotFound)
	}
	t.OwnerID = cur.OwnerID
	t.CreatedAt = cur.CreatedAt
	s.txs[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneAccount(a core.Account) core.Account {
	if a.CreditLimit != nil {
		limit := *a.CreditLimit
		a.CreditLimit = &limit
	}
	return a
}
