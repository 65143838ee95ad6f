package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atmx/option-engine/internal/model"
)

// MemoryStore implements QuoteStore with in-memory maps. It is the primary
// store of a single server process.
type MemoryStore struct {
	mu            sync.RWMutex
	quotes        map[string]*model.Quote
	byFingerprint map[string]string // fingerprint → quote ID
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes:        make(map[string]*model.Quote),
		byFingerprint: make(map[string]string),
	}
}

func (s *MemoryStore) SaveQuote(_ context.Context, q *model.Quote) error {
	if q.ID == "" {
		return fmt.Errorf("store: quote has no ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	copy := *q
	s.quotes[q.ID] = &copy
	if q.Fingerprint != "" {
		s.byFingerprint[q.Fingerprint] = q.ID
	}
	return nil
}

func (s *MemoryStore) GetQuote(_ context.Context, id string) (*model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrQuoteNotFound, id)
	}
	copy := *q
	return &copy, nil
}

func (s *MemoryStore) FindByFingerprint(_ context.Context, fingerprint string) (*model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byFingerprint[fingerprint]
	if !ok {
		return nil, fmt.Errorf("%w: fingerprint %s", ErrQuoteNotFound, fingerprint)
	}
	q, ok := s.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrQuoteNotFound, id)
	}
	copy := *q
	return &copy, nil
}

func (s *MemoryStore) ListQuotes(_ context.Context) ([]model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]model.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, *q)
	}
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].ID < quotes[j].ID
		}
		return quotes[i].CreatedAt.Before(quotes[j].CreatedAt)
	})
	return quotes, nil
}
