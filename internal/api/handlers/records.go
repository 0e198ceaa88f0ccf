package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/compounder/internal/acquire"
	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/logger"
)

// RecordsHandler serves persisted run records. Every response is read
// verbatim from storage; nothing is re-derived at request time.
// ⭐ SSOT: 레코드 API 핸들러는 이 구조체에서만
type RecordsHandler struct {
	runs       contracts.CheckpointStore
	screenings contracts.ScreeningReader
	scores     contracts.ScoreReader
	valuations contracts.ValuationReader
	logger     *logger.Logger
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(
	runs contracts.CheckpointStore,
	screenings contracts.ScreeningReader,
	scores contracts.ScoreReader,
	valuations contracts.ValuationReader,
	log *logger.Logger,
) *RecordsHandler {
	return &RecordsHandler{
		runs:       runs,
		screenings: screenings,
		scores:     scores,
		valuations: valuations,
		logger:     log.Module("api"),
	}
}

// Health returns server health status
// GET /api/v1/health
func (h *RecordsHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "compounder-api",
	})
}

// ListRuns returns recent runs, newest first
// GET /api/v1/runs?limit=20
func (h *RecordsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.runs.ListRuns(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []contracts.RunManifest{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run's funnel summary
// GET /api/v1/runs/{id}
func (h *RecordsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	if h.resolveRun(w, r, runID) == nil {
		return
	}

	summary, err := h.runs.Summary(ctx, runID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to summarize run")
		respondError(w, http.StatusInternalServerError, "Failed to summarize run")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// RunScreening returns a run's hard-filter results
// GET /api/v1/runs/{id}/screening?passed=true
func (h *RecordsHandler) RunScreening(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	if h.resolveRun(w, r, runID) == nil {
		return
	}

	passedOnly := r.URL.Query().Get("passed") == "true"
	results, err := h.screenings.ScreeningByRun(ctx, runID, passedOnly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load screening results")
		respondError(w, http.StatusInternalServerError, "Failed to load screening results")
		return
	}
	if results == nil {
		results = []contracts.ScreeningResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"results": results,
		"count":   len(results),
	})
}

// RunScores returns a run's quality scores
// GET /api/v1/runs/{id}/scores
func (h *RecordsHandler) RunScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	if h.resolveRun(w, r, runID) == nil {
		return
	}

	scores, err := h.scores.ScoresByRun(ctx, runID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load quality scores")
		respondError(w, http.StatusInternalServerError, "Failed to load quality scores")
		return
	}
	if scores == nil {
		scores = []contracts.QualityScore{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"scores": scores,
		"count":  len(scores),
	})
}

// RunValuations returns a run's valuations, best consensus IRR first
// GET /api/v1/runs/{id}/valuations?verdict=BUY
func (h *RecordsHandler) RunValuations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	if h.resolveRun(w, r, runID) == nil {
		return
	}

	verdict := contracts.Verdict(r.URL.Query().Get("verdict"))
	switch verdict {
	case "", contracts.VerdictBuy, contracts.VerdictWatch, contracts.VerdictHold, contracts.VerdictExpensive:
	default:
		respondError(w, http.StatusBadRequest, "Invalid verdict (valid: BUY, WATCH, HOLD, EXPENSIVE)")
		return
	}

	valuations, err := h.valuations.ValuationsByRun(ctx, runID, verdict)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load valuations")
		respondError(w, http.StatusInternalServerError, "Failed to load valuations")
		return
	}
	if valuations == nil {
		valuations = []contracts.ValuationResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     runID,
		"valuations": valuations,
		"count":      len(valuations),
	})
}

// TickerRecords bundles everything the latest run recorded for one ticker.
type TickerRecords struct {
	RunID     string                     `json:"run_id"`
	Ticker    string                     `json:"ticker"`
	Progress  *contracts.TickerProgress  `json:"progress,omitempty"`
	Screening *contracts.ScreeningResult `json:"screening,omitempty"`
	Score     *contracts.QualityScore    `json:"score,omitempty"`
	Valuation *contracts.ValuationResult `json:"valuation,omitempty"`
}

// GetTicker returns the latest run's records for one ticker
// GET /api/v1/tickers/{ticker}
func (h *RecordsHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticker, err := acquire.NormalizeTicker(mux.Vars(r)["ticker"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.runs.LatestRun(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		respondError(w, http.StatusInternalServerError, "Failed to load latest run")
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "No runs recorded yet")
		return
	}

	progress, err := h.runs.ProgressFor(ctx, m.RunID, ticker)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ticker progress")
		respondError(w, http.StatusInternalServerError, "Failed to load ticker progress")
		return
	}
	if progress == nil {
		respondError(w, http.StatusNotFound, "Ticker not in latest run: "+ticker)
		return
	}

	records := TickerRecords{
		RunID:    m.RunID,
		Ticker:   ticker,
		Progress: progress,
	}
	if records.Screening, err = h.screenings.Screening(ctx, m.RunID, ticker); err != nil {
		h.logger.WithError(err).Error("Failed to load ticker screening")
		respondError(w, http.StatusInternalServerError, "Failed to load ticker records")
		return
	}
	if records.Score, err = h.scores.Score(ctx, m.RunID, ticker); err != nil {
		h.logger.WithError(err).Error("Failed to load ticker score")
		respondError(w, http.StatusInternalServerError, "Failed to load ticker records")
		return
	}
	if records.Valuation, err = h.valuations.Valuation(ctx, m.RunID, ticker); err != nil {
		h.logger.WithError(err).Error("Failed to load ticker valuation")
		respondError(w, http.StatusInternalServerError, "Failed to load ticker records")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// Watchlist returns the latest run's BUY and WATCH names
// GET /api/v1/watchlist
func (h *RecordsHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := h.runs.LatestRun(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		respondError(w, http.StatusInternalServerError, "Failed to load latest run")
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "No runs recorded yet")
		return
	}

	buys, err := h.valuations.ValuationsByRun(ctx, m.RunID, contracts.VerdictBuy)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to load watchlist")
		return
	}
	watches, err := h.valuations.ValuationsByRun(ctx, m.RunID, contracts.VerdictWatch)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to load watchlist")
		return
	}
	if buys == nil {
		buys = []contracts.ValuationResult{}
	}
	if watches == nil {
		watches = []contracts.ValuationResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": m.RunID,
		"buy":    buys,
		"watch":  watches,
		"count":  len(buys) + len(watches),
	})
}

// resolveRun writes a 404/500 and returns nil when the run cannot be
// served; handlers bail out on nil.
func (h *RecordsHandler) resolveRun(w http.ResponseWriter, r *http.Request, runID string) *contracts.RunManifest {
	m, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load run")
		respondError(w, http.StatusInternalServerError, "Failed to load run")
		return nil
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "Run not found: "+runID)
		return nil
	}
	return m
}
