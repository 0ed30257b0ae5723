package caserec

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for tests and for running the server
// without a database. Records are deep-copied on the way in and out so
// callers never share maps with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*CaseRecord
	users map[string]*User // keyed by email
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases: make(map[string]*CaseRecord),
		users: make(map[string]*User),
	}
}

func copyData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func copyCase(rec *CaseRecord) *CaseRecord {
	c := *rec
	c.Data = copyData(rec.Data)
	return &c
}

func (s *MemoryStore) Insert(_ context.Context, rec *CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[rec.ID]; exists {
		return fmt.Errorf("insert case: id %s exists", rec.ID)
	}
	s.cases[rec.ID] = copyCase(rec)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, rec *CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[rec.ID]; !exists {
		return ErrNotFound
	}
	s.cases[rec.ID] = copyCase(rec)
	return nil
}

func (s *MemoryStore) FindDraft(_ context.Context, ownerID, formType string) (*CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.cases {
		if rec.OwnerID == ownerID && rec.Type == formType && rec.Status == StatusDraft {
			return copyCase(rec), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Get(_ context.Context, ownerID, id string) (*CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cases[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return copyCase(rec), nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CaseRecord
	for _, rec := range s.cases {
		if rec.OwnerID == ownerID {
			out = append(out, *copyCase(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Email]; exists {
		return fmt.Errorf("create user %s: %w", u.Email, ErrEmailTaken)
	}
	c := *u
	s.users[u.Email] = &c
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}
