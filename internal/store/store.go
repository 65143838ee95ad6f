// Package store keeps computed quotes so identical contracts are priced once.
// Implementations include an in-memory store and a Redis read-through cache
// layered over it. Quotes are deterministic functions of their contract, so
// losing the store only costs recomputation.
package store

import (
	"context"
	"errors"

	"github.com/atmx/option-engine/internal/model"
)

// ErrQuoteNotFound is returned when no quote matches the lookup.
var ErrQuoteNotFound = errors.New("store: quote not found")

// QuoteStore is the quote storage interface.
type QuoteStore interface {
	// SaveQuote stores a quote and indexes it by fingerprint.
	SaveQuote(ctx context.Context, q *model.Quote) error

	// GetQuote retrieves a quote by its ID.
	GetQuote(ctx context.Context, id string) (*model.Quote, error)

	// FindByFingerprint retrieves the quote computed for a contract.
	FindByFingerprint(ctx context.Context, fingerprint string) (*model.Quote, error)

	// ListQuotes returns all quotes, oldest first.
	ListQuotes(ctx context.Context) ([]model.Quote, error)
}
