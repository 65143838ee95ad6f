package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/option-engine/internal/model"
)

// CachedStore wraps a primary QuoteStore with a Redis read-through cache.
// Writes go to the primary and populate the cache; reads check Redis first
// then fall back to the primary. Cached quotes expire after ttl, which lets
// several server replicas share results without unbounded growth.
type CachedStore struct {
	primary QuoteStore
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary QuoteStore, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through ---

func (s *CachedStore) SaveQuote(ctx context.Context, q *model.Quote) error {
	if err := s.primary.SaveQuote(ctx, q); err != nil {
		return err
	}
	s.cacheQuote(ctx, q)
	return nil
}

// --- Read-through ---

func (s *CachedStore) GetQuote(ctx context.Context, id string) (*model.Quote, error) {
	data, err := s.rdb.Get(ctx, quoteKey(id)).Bytes()
	if err == nil {
		var q model.Quote
		if json.Unmarshal(data, &q) == nil {
			return &q, nil
		}
	}

	q, err := s.primary.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheQuote(ctx, q)
	return q, nil
}

func (s *CachedStore) FindByFingerprint(ctx context.Context, fingerprint string) (*model.Quote, error) {
	// Another replica may have priced this contract already.
	id, err := s.rdb.Get(ctx, fingerprintKey(fingerprint)).Result()
	if err == nil {
		if q, err := s.GetQuote(ctx, id); err == nil {
			return q, nil
		}
	}

	q, err := s.primary.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	s.cacheQuote(ctx, q)
	return q, nil
}

// --- Passthrough ---

func (s *CachedStore) ListQuotes(ctx context.Context) ([]model.Quote, error) {
	return s.primary.ListQuotes(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheQuote(ctx context.Context, q *model.Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, quoteKey(q.ID), data, s.ttl)
	if q.Fingerprint != "" {
		pipe.Set(ctx, fingerprintKey(q.Fingerprint), q.ID, s.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func quoteKey(id string) string       { return fmt.Sprintf("quote:%s", id) }
func fingerprintKey(fp string) string { return fmt.Sprintf("quote:fp:%s", fp) }
