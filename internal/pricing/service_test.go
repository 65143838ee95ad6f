package pricing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/option-engine/internal/contract"
	"github.com/atmx/option-engine/internal/limits"
	"github.com/atmx/option-engine/internal/model"
	"github.com/atmx/option-engine/internal/pricing"
	"github.com/atmx/option-engine/internal/store"
)

// newTestEnv creates a test Service with in-memory store and chi router.
func newTestEnv(t *testing.T) (*pricing.Service, *store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	limiter := limits.NewLimiter(500, 200000, 5000)
	svc := pricing.NewService(ms, limiter, nil)

	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)

	return svc, ms, r
}

const referencePutBody = `{"sign":-1,"steps":2,"asset_price":3.061,"exercise_price":3.12,
	"market_price":-0.0833,"start_date":"2019-12-01","end_date":"2020-01-22",
	"sigma":0.1105,"rate":0.0303,"dividend":0}`

func do(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, w.Body.String())
	}
}

// --- Quotes ---

func TestCreateQuote_ReferencePut(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/quotes", referencePutBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Cache") != "miss" {
		t.Errorf("first request should miss the cache")
	}

	var q model.Quote
	decode(t, w, &q)

	if q.ID == "" {
		t.Error("expected non-empty quote id")
	}
	if q.ExpiryDays != 52 {
		t.Errorf("expected 52 expiry days, got %d", q.ExpiryDays)
	}
	if !q.ModelPrice.IsPositive() {
		t.Errorf("model price should be positive, got %s", q.ModelPrice)
	}
	if !q.TheoreticalPrice.Equal(q.ModelPrice.Neg()) {
		t.Errorf("put theoretical price should be -model price, got %s vs %s", q.TheoreticalPrice, q.ModelPrice)
	}
	if !q.IntrinsicValue.Equal(decimal.RequireFromString("-0.059")) {
		t.Errorf("expected intrinsic -0.059, got %s", q.IntrinsicValue)
	}
	if !q.DueProfit.Equal(decimal.RequireFromString("0.0833")) {
		t.Errorf("expected due profit 0.0833, got %s", q.DueProfit)
	}
	if q.Contract.Sign != contract.Put || q.Steps != 2 {
		t.Errorf("quote should echo the contract, got %+v", q.Contract)
	}
}

func TestCreateQuote_CacheHit(t *testing.T) {
	_, ms, router := newTestEnv(t)

	first := do(t, router, "POST", "/api/v1/quotes", referencePutBody)
	var q1 model.Quote
	decode(t, first, &q1)

	second := do(t, router, "POST", "/api/v1/quotes", referencePutBody)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", second.Code)
	}
	if second.Header().Get("X-Cache") != "hit" {
		t.Error("repeat request should hit the cache")
	}
	var q2 model.Quote
	decode(t, second, &q2)
	if q2.ID != q1.ID {
		t.Errorf("repeat request should return the stored quote: %s vs %s", q2.ID, q1.ID)
	}

	quotes, _ := ms.ListQuotes(context.Background())
	if len(quotes) != 1 {
		t.Errorf("expected a single stored quote, got %d", len(quotes))
	}
}

func TestCreateQuote_InvalidContract(t *testing.T) {
	_, _, router := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"one step", strings.Replace(referencePutBody, `"steps":2`, `"steps":1`, 1)},
		{"zero sigma", strings.Replace(referencePutBody, `"sigma":0.1105`, `"sigma":0`, 1)},
		{"bad sign", strings.Replace(referencePutBody, `"sign":-1`, `"sign":3`, 1)},
		{"bad date", strings.Replace(referencePutBody, `"2020-01-22"`, `"22/01/2020"`, 1)},
		{"same-day timestamps", strings.NewReplacer(
			`"2019-12-01"`, `"2020-01-01T00:00:00Z"`,
			`"2020-01-22"`, `"2020-01-01T12:00:00Z"`).Replace(referencePutBody)},
		{"not json", `{"sign":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/quotes", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp map[string]string
			decode(t, w, &resp)
			if resp["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestCreateQuote_StepLimit(t *testing.T) {
	_, _, router := newTestEnv(t)

	body := strings.Replace(referencePutBody, `"steps":2`, `"steps":501`, 1)
	w := do(t, router, "POST", "/api/v1/quotes", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetQuote(t *testing.T) {
	_, _, router := newTestEnv(t)

	created := do(t, router, "POST", "/api/v1/quotes", referencePutBody)
	var q model.Quote
	decode(t, created, &q)

	w := do(t, router, "GET", "/api/v1/quotes/"+q.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got model.Quote
	decode(t, w, &got)
	if got.ID != q.ID || !got.Delta.Equal(q.Delta) {
		t.Errorf("fetched quote differs: %+v", got)
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "GET", "/api/v1/quotes/does-not-exist", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestListQuotes_FilterBySign(t *testing.T) {
	_, _, router := newTestEnv(t)

	do(t, router, "POST", "/api/v1/quotes", referencePutBody)
	call := strings.Replace(referencePutBody, `"sign":-1`, `"sign":1`, 1)
	do(t, router, "POST", "/api/v1/quotes", call)

	var all []model.Quote
	decode(t, do(t, router, "GET", "/api/v1/quotes", ""), &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(all))
	}

	var puts []model.Quote
	decode(t, do(t, router, "GET", "/api/v1/quotes?sign=put", ""), &puts)
	if len(puts) != 1 || puts[0].Contract.Sign != contract.Put {
		t.Errorf("expected the single put, got %+v", puts)
	}

	if w := do(t, router, "GET", "/api/v1/quotes?sign=2", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad sign filter, got %d", w.Code)
	}
}

func TestListQuotes_EmptyIsArray(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "GET", "/api/v1/quotes", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", w.Body.String())
	}
}

func TestPriceContract_ComputeTimeRecorded(t *testing.T) {
	c := contract.Option{
		Sign:          contract.Call,
		Steps:         50,
		AssetPrice:    100,
		ExercisePrice: 95,
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Sigma:         0.2,
		Rate:          0.03,
	}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	q, err := pricing.PriceContract(c, now)
	if err != nil {
		t.Fatalf("PriceContract: %v", err)
	}
	if !q.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, q.CreatedAt)
	}
	if q.ComputeNanos < 0 {
		t.Errorf("compute time should not be negative, got %d", q.ComputeNanos)
	}
	if q.Fingerprint != c.Fingerprint() {
		t.Error("quote should carry the contract fingerprint")
	}
	if !q.Delta.IsPositive() {
		t.Errorf("call delta should be positive, got %s", q.Delta)
	}
}

// --- Probability ---

const referenceSample = `[3,2,3,4,5,6,7,8,7]`

func TestIntervalProbability_ReferenceSample(t *testing.T) {
	_, _, router := newTestEnv(t)

	body := `{"sample":` + referenceSample + `,"breakpoints":[6,4]}`
	w := do(t, router, "POST", "/api/v1/probability/intervals", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report model.IntervalReport
	decode(t, w, &report)
	if len(report.Probabilities) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(report.Probabilities))
	}
	for i, p := range report.Probabilities {
		if p < 0 || p > 1 {
			t.Errorf("interval %d probability %v outside [0,1]", i, p)
		}
	}
	if report.Sum < 0.95 || report.Sum > 1 {
		t.Errorf("expected sum close to 1, got %v", report.Sum)
	}
	if report.Breakpoints[0] != 4 || report.Breakpoints[1] != 6 {
		t.Errorf("breakpoints should be reported sorted, got %v", report.Breakpoints)
	}
	if report.Resolution != 100000 || report.Span != 5 {
		t.Errorf("defaults not applied: resolution=%d span=%v", report.Resolution, report.Span)
	}
	if math.Abs(report.Mean-1.516569482274297) > 1e-9 {
		t.Errorf("unexpected mean %v", report.Mean)
	}
}

func TestIntervalProbability_Errors(t *testing.T) {
	_, _, router := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty sample", `{"sample":[],"breakpoints":[4]}`, http.StatusBadRequest},
		{"no positive sample", `{"sample":[0,-1],"breakpoints":[4]}`, http.StatusBadRequest},
		{"no breakpoints", `{"sample":` + referenceSample + `,"breakpoints":[]}`, http.StatusBadRequest},
		{"zero breakpoint", `{"sample":` + referenceSample + `,"breakpoints":[0]}`, http.StatusBadRequest},
		{"resolution one", `{"sample":` + referenceSample + `,"breakpoints":[4],"resolution":1}`, http.StatusBadRequest},
		{"span below one", `{"sample":` + referenceSample + `,"breakpoints":[4],"span":0.5}`, http.StatusBadRequest},
		{"resolution over limit", `{"sample":` + referenceSample + `,"breakpoints":[4],"resolution":300000}`, http.StatusUnprocessableEntity},
		{"bad body", `[`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/probability/intervals", tt.body)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestProbabilityMap(t *testing.T) {
	_, _, router := newTestEnv(t)

	body := `{"sample":` + referenceSample + `,"price":3,"breakpoints":[4,6],"half_width":100,"step":0.01}`
	w := do(t, router, "POST", "/api/v1/probability/map", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp pricing.MapResponse
	decode(t, w, &resp)
	// 201 grid points from 2 to 4; 4 is on the grid, 6 is merged in.
	if len(resp.Points) != 202 {
		t.Errorf("expected 202 points, got %d", len(resp.Points))
	}
	if resp.Points[len(resp.Points)-1].X != 6 {
		t.Errorf("last point should be the breakpoint 6, got %v", resp.Points[len(resp.Points)-1].X)
	}
}

func TestProbabilityMap_Errors(t *testing.T) {
	_, _, router := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"negative price", `{"sample":` + referenceSample + `,"price":-1}`, http.StatusBadRequest},
		{"negative half width", `{"sample":` + referenceSample + `,"price":3,"half_width":-1}`, http.StatusBadRequest},
		{"grid over limit", `{"sample":` + referenceSample + `,"price":3,"half_width":5001}`, http.StatusUnprocessableEntity},
		{"empty sample", `{"sample":[],"price":3}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/probability/map", tt.body)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestProbabilityChart_Formats(t *testing.T) {
	_, _, router := newTestEnv(t)
	body := `{"sample":` + referenceSample + `,"price":3,"breakpoints":[4,6],"half_width":50,"step":0.02}`

	png := do(t, router, "POST", "/api/v1/probability/chart", body)
	if png.Code != http.StatusOK {
		t.Fatalf("png: expected 200, got %d: %s", png.Code, png.Body.String())
	}
	if png.Header().Get("Content-Type") != "image/png" {
		t.Errorf("png: unexpected content type %q", png.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(png.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("png: body is not a PNG image")
	}

	html := do(t, router, "POST", "/api/v1/probability/chart?format=html", body)
	if html.Code != http.StatusOK {
		t.Fatalf("html: expected 200, got %d", html.Code)
	}
	if !strings.Contains(html.Body.String(), "<html") {
		t.Error("html: body is not an HTML page")
	}

	if w := do(t, router, "POST", "/api/v1/probability/chart?format=gif", body); w.Code != http.StatusBadRequest {
		t.Errorf("gif: expected 400, got %d", w.Code)
	}
}
