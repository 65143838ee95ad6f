package pricing

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/atmx/option-engine/internal/chart"
	"github.com/atmx/option-engine/internal/metrics"
	"github.com/atmx/option-engine/internal/model"
	"github.com/atmx/option-engine/internal/probability"
)

// IntervalRequest is the JSON body for POST /probability/intervals.
// Zero resolution and span select the defaults.
type IntervalRequest struct {
	Sample      []float64 `json:"sample"`
	Breakpoints []float64 `json:"breakpoints"`
	Resolution  int       `json:"resolution,omitempty"`
	Span        float64   `json:"span,omitempty"`
}

// MapRequest is the JSON body for POST /probability/map and
// POST /probability/chart. A nil half width and a zero step select the
// defaults.
type MapRequest struct {
	Sample      []float64 `json:"sample"`
	Price       float64   `json:"price"`
	Breakpoints []float64 `json:"breakpoints,omitempty"`
	HalfWidth   *int      `json:"half_width,omitempty"`
	Step        float64   `json:"step,omitempty"`
	Title       string    `json:"title,omitempty"`
}

// MapResponse is the JSON body returned from POST /probability/map.
type MapResponse struct {
	Mean   float64       `json:"mean"`
	StdDev float64       `json:"std_dev"`
	Points []model.Point `json:"points"`
}

// IntervalProbability handles POST /api/v1/probability/intervals
func (s *Service) IntervalProbability(w http.ResponseWriter, r *http.Request) {
	var req IntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Resolution == 0 {
		req.Resolution = probability.DefaultResolution
	}
	if req.Span == 0 {
		req.Span = probability.DefaultSpan
	}
	if err := s.limiter.CheckResolution(req.Resolution); err != nil {
		metrics.LimitRejections.WithLabelValues("resolution").Inc()
		writeError(w, err.Error(), statusFor(err))
		return
	}

	est, err := probability.NewEstimator(req.Sample)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	start := time.Now()
	probs, err := est.IntervalProbability(req.Breakpoints, req.Resolution, req.Span)
	metrics.ObserveSolve("intervals", start)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	metrics.IntervalRequests.Inc()

	sorted := slices.Clone(req.Breakpoints)
	slices.Sort(sorted)
	report := model.IntervalReport{
		Breakpoints:   sorted,
		Probabilities: probs,
		Sum:           floats.Sum(probs),
		Mean:          est.Mean(),
		StdDev:        est.StdDev(),
		Resolution:    req.Resolution,
		Span:          req.Span,
	}

	slog.Info("probability intervals computed",
		"breakpoints", len(sorted),
		"intervals", len(probs),
		"sum", report.Sum,
		"resolution", req.Resolution,
		"span", req.Span,
	)

	writeJSON(w, http.StatusOK, report)
}

// ProbabilityMap handles POST /api/v1/probability/map
func (s *Service) ProbabilityMap(w http.ResponseWriter, r *http.Request) {
	_, est, points, ok := s.probabilityMap(w, r, "map")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MapResponse{
		Mean:   est.Mean(),
		StdDev: est.StdDev(),
		Points: points,
	})
}

// ProbabilityChart handles POST /api/v1/probability/chart?format=png|html
func (s *Service) ProbabilityChart(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "html" {
		writeError(w, "format must be png or html", http.StatusBadRequest)
		return
	}

	req, _, points, ok := s.probabilityMap(w, r, "chart")
	if !ok {
		return
	}

	o := chart.DefaultOptions()
	if req.Title != "" {
		o.Title = req.Title
	}

	if format == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := chart.WriteHTML(w, points, req.Breakpoints, o); err != nil {
			slog.Error("chart render failed", "format", format, "err", err)
		}
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := chart.WritePNG(w, points, req.Breakpoints, o); err != nil {
		slog.Error("chart render failed", "format", format, "err", err)
	}
}

// probabilityMap decodes a MapRequest, applies defaults and limits, and
// evaluates the map. It writes the error response itself and reports false
// when the handler should stop.
func (s *Service) probabilityMap(w http.ResponseWriter, r *http.Request, operation string) (MapRequest, *probability.Estimator, []model.Point, bool) {
	var req MapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return req, nil, nil, false
	}
	halfWidth := probability.DefaultHalfWidth
	if req.HalfWidth != nil {
		halfWidth = *req.HalfWidth
	}
	if halfWidth < 0 {
		writeError(w, "half_width must be non-negative", http.StatusBadRequest)
		return req, nil, nil, false
	}
	if req.Step == 0 {
		req.Step = probability.DefaultStep
	}
	if err := s.limiter.CheckHalfWidth(halfWidth); err != nil {
		metrics.LimitRejections.WithLabelValues("half_width").Inc()
		writeError(w, err.Error(), statusFor(err))
		return req, nil, nil, false
	}

	est, err := probability.NewEstimator(req.Sample)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return req, nil, nil, false
	}

	start := time.Now()
	points, err := est.ProbabilityMap(req.Price, req.Breakpoints, halfWidth, req.Step)
	metrics.ObserveSolve(operation, start)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return req, nil, nil, false
	}
	if len(points) == 0 {
		writeError(w, chart.ErrNoPoints.Error(), http.StatusBadRequest)
		return req, nil, nil, false
	}
	return req, est, points, true
}
