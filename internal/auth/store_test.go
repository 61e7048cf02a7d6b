package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// memoryStore is an in-process CredentialStore for tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*models.TokenRecord
	err     error
	lookups int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*models.TokenRecord{}}
}

func (s *memoryStore) Create(_ context.Context, record *models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *memoryStore) FindByHash(_ context.Context, tokenHash string) (*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.records {
		if r.TokenHash == tokenHash {
			cp := *r
			return &cp, nil
		}
	}
	return nil, utils.NewNotFoundError("Token", tokenHash)
}

func (s *memoryStore) BlacklistIfActive(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	r, ok := s.records[id]
	if !ok || r.Blacklisted {
		return false, nil
	}
	r.Blacklisted = true
	return true, nil
}

func (s *memoryStore) WithinTx(ctx context.Context, fn func(tx auth.CredentialStore) error) error {
	s.mu.Lock()
	snapshot := make(map[string]models.TokenRecord, len(s.records))
	for id, r := range s.records {
		snapshot[id] = *r
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.records = make(map[string]*models.TokenRecord, len(snapshot))
		for id, r := range snapshot {
			r := r
			s.records[id] = &r
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memoryStore) only() *models.TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		return r
	}
	return nil
}

var errStoreDown = errors.New("connection refused")

type ttlTable map[string]time.Duration

func (t ttlTable) TTL(purpose string) (time.Duration, bool) {
	d, ok := t[purpose]
	return d, ok
}

func testTTLs() ttlTable {
	return ttlTable{
		"access":        15 * time.Minute,
		"refresh":       7 * 24 * time.Hour,
		"resetPassword": time.Hour,
		"verifyEmail":   24 * time.Hour,
	}
}
