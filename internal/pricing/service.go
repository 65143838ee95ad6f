// Package pricing provides the HTTP handlers for pricing American options
// and for the log-normal outcome probabilities of an underlying.
//
// Quotes are deterministic functions of their contract. The service keys
// every computed quote by the contract fingerprint and answers repeated
// requests from the store instead of solving the lattice again.
package pricing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atmx/option-engine/internal/american"
	"github.com/atmx/option-engine/internal/chart"
	"github.com/atmx/option-engine/internal/contract"
	"github.com/atmx/option-engine/internal/lattice"
	"github.com/atmx/option-engine/internal/limits"
	"github.com/atmx/option-engine/internal/metrics"
	"github.com/atmx/option-engine/internal/model"
	"github.com/atmx/option-engine/internal/probability"
	"github.com/atmx/option-engine/internal/store"
)

// Service handles pricing and probability requests.
type Service struct {
	store   store.QuoteStore
	limiter *limits.Limiter
	wsHub   *WSHub // optional WebSocket hub for quote broadcasts
	now     func() time.Time
}

// NewService creates a new pricing service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.QuoteStore, limiter *limits.Limiter, hub *WSHub) *Service {
	if limiter == nil {
		limiter = &limits.Limiter{}
	}
	return &Service{
		store:   st,
		limiter: limiter,
		wsHub:   hub,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Routes mounts every handler under the given router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/quotes", s.CreateQuote)
	r.Get("/quotes", s.ListQuotes)
	r.Get("/quotes/{quoteID}", s.GetQuote)
	r.Post("/probability/intervals", s.IntervalProbability)
	r.Post("/probability/map", s.ProbabilityMap)
	r.Post("/probability/chart", s.ProbabilityChart)
	if s.wsHub != nil {
		r.Get("/ws", s.wsHub.HandleWS)
	}
}

// PriceContract solves the contract and collects its price and Greeks into
// a new quote.
func PriceContract(c contract.Option, now time.Time) (*model.Quote, error) {
	start := time.Now()
	pricer, err := american.NewPricer(c)
	if err != nil {
		return nil, err
	}
	g, err := pricer.Greeks()
	if err != nil {
		return nil, err
	}
	sc, err := pricer.Scalars()
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	metrics.LatticeNodes.Observe(float64(lattice.NodeCount(c.Steps)))

	return &model.Quote{
		ID:          uuid.New().String(),
		Fingerprint: c.Fingerprint(),
		Contract:    c,
		Steps:       c.Steps,
		ExpiryDays:  sc.ExpiryDays,

		ModelPrice:              model.Decimal(g.ModelPrice),
		TheoreticalPrice:        model.Decimal(g.TheoreticalPrice),
		TheoreticalPricePercent: model.Decimal(g.TheoreticalPricePercent),
		Delta:                   model.Decimal(g.Delta),
		Gamma:                   model.Decimal(g.Gamma),
		Vega:                    model.Decimal(g.Vega),
		Theta:                   model.Decimal(g.Theta),
		Rho:                     model.Decimal(g.Rho),
		IntrinsicValue:          model.Decimal(g.IntrinsicValue),
		TimeValue:               model.Decimal(g.TimeValue),
		DueProfit:               model.Decimal(g.DueProfit),
		CurrentProfit:           model.Decimal(g.CurrentProfit),

		Up:           model.Decimal(sc.Up),
		Down:         model.Decimal(sc.Down),
		UpProb:       model.Decimal(sc.UpProb),
		Discount:     model.Decimal(sc.Discount),
		ComputeNanos: elapsed.Nanoseconds(),
		CreatedAt:    now,
	}, nil
}

// --- HTTP Handlers ---

// CreateQuote handles POST /api/v1/quotes
// Returns the stored quote for a contract priced before (200), otherwise
// prices it, stores it and broadcasts it (201).
func (s *Service) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var c contract.Option
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.limiter.CheckSteps(c.Steps); err != nil {
		metrics.LimitRejections.WithLabelValues("steps").Inc()
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	fingerprint := c.Fingerprint()
	if cached, err := s.store.FindByFingerprint(ctx, fingerprint); err == nil {
		metrics.QuotesTotal.WithLabelValues("hit").Inc()
		slog.Info("quote cache hit", "id", cached.ID, "fingerprint", fingerprint)
		w.Header().Set("X-Cache", "hit")
		writeJSON(w, http.StatusOK, cached)
		return
	} else if !errors.Is(err, store.ErrQuoteNotFound) {
		slog.Warn("quote lookup failed", "fingerprint", fingerprint, "err", err)
	}

	start := time.Now()
	quote, err := PriceContract(c, s.now())
	metrics.ObserveSolve("quote", start)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	metrics.QuotesTotal.WithLabelValues("miss").Inc()

	if err := s.store.SaveQuote(ctx, quote); err != nil {
		writeError(w, "failed to store quote", http.StatusInternalServerError)
		return
	}

	slog.Info("quote computed",
		"id", quote.ID,
		"sign", c.Sign,
		"steps", c.Steps,
		"expiry_days", quote.ExpiryDays,
		"theoretical_price", quote.TheoreticalPrice.String(),
		"delta", quote.Delta.String(),
		"compute_ns", quote.ComputeNanos,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:             "quote_computed",
			QuoteID:          quote.ID,
			Sign:             c.Sign,
			Steps:            c.Steps,
			TheoreticalPrice: quote.TheoreticalPrice.String(),
			Delta:            quote.Delta.String(),
			Gamma:            quote.Gamma.String(),
			Theta:            quote.Theta.String(),
			Vega:             quote.Vega.String(),
			Rho:              quote.Rho.String(),
		})
	}

	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusCreated, quote)
}

// GetQuote handles GET /api/v1/quotes/{quoteID}
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")

	quote, err := s.store.GetQuote(r.Context(), quoteID)
	if err != nil {
		writeError(w, "quote not found", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ListQuotes handles GET /api/v1/quotes
// Returns all stored quotes, optionally filtered by ?sign=1 or ?sign=-1.
func (s *Service) ListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.ListQuotes(r.Context())
	if err != nil {
		writeError(w, "failed to list quotes", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}

	if sign := r.URL.Query().Get("sign"); sign != "" {
		want := contract.Call
		switch sign {
		case "1", "+1", "call":
		case "-1", "put":
			want = contract.Put
		default:
			writeError(w, "sign must be 1 (call) or -1 (put)", http.StatusBadRequest)
			return
		}
		filtered := []model.Quote{}
		for _, q := range quotes {
			if q.Contract.Sign == want {
				filtered = append(filtered, q)
			}
		}
		quotes = filtered
	}

	writeJSON(w, http.StatusOK, quotes)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, contract.ErrInvalidInput),
		errors.Is(err, contract.ErrInvalidDate),
		errors.Is(err, probability.ErrEmptySample),
		errors.Is(err, probability.ErrInvalidInput),
		errors.Is(err, chart.ErrNoPoints):
		return http.StatusBadRequest
	case limits.IsLimit(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrQuoteNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
