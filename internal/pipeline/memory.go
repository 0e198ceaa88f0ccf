package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/compounder/internal/contracts"
)

// MemCheckpoint is an in-memory CheckpointStore for tests and
// database-less one-off runs. Same commit semantics as the Postgres
// store, minus durability.
type MemCheckpoint struct {
	mu         sync.RWMutex
	runs       map[string]*contracts.RunManifest
	progress   map[string]map[string]*contracts.TickerProgress
	screenings map[string]map[string]*contracts.ScreeningResult
	scores     map[string]map[string]*contracts.QualityScore
	valuations map[string]map[string]*contracts.ValuationResult
}

// NewMemCheckpoint creates an empty in-memory checkpoint store.
func NewMemCheckpoint() *MemCheckpoint {
	return &MemCheckpoint{
		runs:       make(map[string]*contracts.RunManifest),
		progress:   make(map[string]map[string]*contracts.TickerProgress),
		screenings: make(map[string]map[string]*contracts.ScreeningResult),
		scores:     make(map[string]map[string]*contracts.QualityScore),
		valuations: make(map[string]map[string]*contracts.ValuationResult),
	}
}

// CreateRun inserts the run manifest.
func (s *MemCheckpoint) CreateRun(ctx context.Context, m *contracts.RunManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[m.RunID]; exists {
		return fmt.Errorf("run %s already exists", m.RunID)
	}
	cp := *m
	s.runs[m.RunID] = &cp
	s.progress[m.RunID] = make(map[string]*contracts.TickerProgress)
	s.screenings[m.RunID] = make(map[string]*contracts.ScreeningResult)
	s.scores[m.RunID] = make(map[string]*contracts.QualityScore)
	s.valuations[m.RunID] = make(map[string]*contracts.ValuationResult)
	return nil
}

// FinishRun stamps the run's terminal status.
func (s *MemCheckpoint) FinishRun(ctx context.Context, runID string, status contracts.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	now := time.Now().UTC()
	m.Status = status
	m.FinishedAt = &now
	return nil
}

// GetRun loads a run manifest, or (nil, nil) when the id is unknown.
func (s *MemCheckpoint) GetRun(ctx context.Context, runID string) (*contracts.RunManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.runs[runID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// LatestRun returns the most recently started run, or nil when no run
// exists.
func (s *MemCheckpoint) LatestRun(ctx context.Context) (*contracts.RunManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *contracts.RunManifest
	for _, m := range s.runs {
		if latest == nil || m.StartedAt.After(latest.StartedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *MemCheckpoint) ListRuns(ctx context.Context, limit int) ([]contracts.RunManifest, error) {
	if limit < 1 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]contracts.RunManifest, 0, len(s.runs))
	for _, m := range s.runs {
		runs = append(runs, *m)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// InitProgress seeds a PENDING row per ticker, keeping existing rows.
func (s *MemCheckpoint) InitProgress(ctx context.Context, runID string, tickers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.progress[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	now := time.Now().UTC()
	for _, t := range tickers {
		if _, exists := rows[t]; exists {
			continue
		}
		rows[t] = &contracts.TickerProgress{
			RunID:     runID,
			Ticker:    t,
			Status:    contracts.ProgressPending,
			UpdatedAt: now,
		}
	}
	return nil
}

// Progress returns every ticker's checkpoint row for a run.
func (s *MemCheckpoint) Progress(ctx context.Context, runID string) (map[string]*contracts.TickerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*contracts.TickerProgress, len(s.progress[runID]))
	for t, p := range s.progress[runID] {
		cp := *p
		out[t] = &cp
	}
	return out, nil
}

// ProgressFor returns one ticker's checkpoint row, or nil when the run
// never tracked that ticker.
func (s *MemCheckpoint) ProgressFor(ctx context.Context, runID, ticker string) (*contracts.TickerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[runID][ticker]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// SaveOutcome commits one ticker's stage outputs and its checkpoint row
// atomically (one lock).
func (s *MemCheckpoint) SaveOutcome(ctx context.Context, o *contracts.TickerOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := o.Progress.RunID
	rows, ok := s.progress[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}

	p := o.Progress
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	rows[p.Ticker] = &p

	if o.Screening != nil {
		cp := *o.Screening
		s.screenings[runID][cp.Ticker] = &cp
	}
	if o.Score != nil {
		cp := *o.Score
		s.scores[runID][cp.Ticker] = &cp
	}
	if o.Valuation != nil {
		cp := *o.Valuation
		s.valuations[runID][cp.Ticker] = &cp
	}
	return nil
}

// ScreeningByRun lists a run's screening results ordered by ticker.
func (s *MemCheckpoint) ScreeningByRun(ctx context.Context, runID string, passedOnly bool) ([]contracts.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []contracts.ScreeningResult
	for _, r := range s.screenings[runID] {
		if passedOnly && !r.Passed {
			continue
		}
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	return results, nil
}

// Screening fetches one ticker's screening result; a miss is (nil, nil).
func (s *MemCheckpoint) Screening(ctx context.Context, runID, ticker string) (*contracts.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.screenings[runID][ticker]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// ScoresByRun lists a run's quality scores, best first.
func (s *MemCheckpoint) ScoresByRun(ctx context.Context, runID string) ([]contracts.QualityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scores []contracts.QualityScore
	for _, q := range s.scores[runID] {
		scores = append(scores, *q)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Ticker < scores[j].Ticker
	})
	return scores, nil
}

// Score fetches one ticker's quality score; a miss is (nil, nil).
func (s *MemCheckpoint) Score(ctx context.Context, runID, ticker string) (*contracts.QualityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.scores[runID][ticker]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

// ValuationsByRun lists a run's valuations, best consensus first. An
// empty verdict lists everything.
func (s *MemCheckpoint) ValuationsByRun(ctx context.Context, runID string, verdict contracts.Verdict) ([]contracts.ValuationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []contracts.ValuationResult
	for _, v := range s.valuations[runID] {
		if verdict != "" && v.Verdict != verdict {
			continue
		}
		results = append(results, *v)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].ConsensusIRR != results[j].ConsensusIRR {
			return results[i].ConsensusIRR > results[j].ConsensusIRR
		}
		return results[i].Ticker < results[j].Ticker
	})
	return results, nil
}

// Valuation fetches one ticker's valuation; a miss is (nil, nil).
func (s *MemCheckpoint) Valuation(ctx context.Context, runID, ticker string) (*contracts.ValuationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.valuations[runID][ticker]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// Summary aggregates run progress for reporting.
func (s *MemCheckpoint) Summary(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	sum := &contracts.RunSummary{Manifest: *m}
	for _, p := range s.progress[runID] {
		if p.Stage.Index() >= contracts.StageAcquire.Index() {
			sum.Acquired++
		}
		switch p.Status {
		case contracts.ProgressFailed:
			sum.Failed++
		case contracts.ProgressExcluded:
			sum.Excluded++
		case contracts.ProgressPending:
			sum.Remaining++
		}
	}
	sum.Screened = len(s.screenings[runID])
	for _, r := range s.screenings[runID] {
		if r.Passed {
			sum.Passed++
		}
	}
	sum.Scored = len(s.scores[runID])
	for _, q := range s.scores[runID] {
		if q.Advances {
			sum.Advanced++
		}
	}
	sum.Valued = len(s.valuations[runID])
	for _, v := range s.valuations[runID] {
		if v.Verdict == contracts.VerdictBuy {
			sum.Buys++
		}
	}
	return sum, nil
}
