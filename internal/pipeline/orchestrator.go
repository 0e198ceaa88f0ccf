package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/compounder/internal/acquire"
	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
	"github.com/wonny/compounder/internal/screen"
	"github.com/wonny/compounder/internal/universe"
	"github.com/wonny/compounder/internal/valuation"
	"github.com/wonny/compounder/pkg/logger"
)

// ⭐ SSOT: 파이프라인 실행 순서는 여기서만 결정한다
//
// Orchestrator runs the full screening pipeline: universe → acquire →
// hard filter → quality score → valuation. Each ticker is carried through
// every tier from a single fundamentals snapshot, and its results land in
// the checkpoint store as one atomic outcome. A ticker therefore either
// fully advances to its recorded stage or stays PENDING for the next
// resume; there is no half-written state.
type Orchestrator struct {
	universe    *universe.Builder
	fetcher     acquire.Fetcher
	calc        *metrics.Calculator
	screener    *screen.Screener
	scorer      *screen.Scorer
	engine      *valuation.Engine
	checkpoint  contracts.CheckpointStore
	criteriaSHA string
	cfg         Config
	logger      *logger.Logger
}

// Config bounds the orchestrator's concurrency.
type Config struct {
	// Workers is the number of tickers processed concurrently inside a batch.
	Workers int
	// BatchSize is the number of tickers between cancellation checks.
	// 배치 경계에서만 취소를 확인한다. 진행 중인 티커는 커밋까지 끝낸다.
	BatchSize int
}

// RunConfig describes a single pipeline launch.
type RunConfig struct {
	// RunID overrides the generated id. Empty means derive one from the clock.
	RunID string
	// Tickers, when non-empty, bypasses the screener pull and runs the
	// pipeline on exactly this list.
	Tickers []string
}

// RunResult reports what a finished (or interrupted) run did.
type RunResult struct {
	RunID       string
	Summary     *contracts.RunSummary
	Duration    time.Duration
	Interrupted bool
}

// NewOrchestrator wires the pipeline stages together. It fails only when
// the criteria document cannot be hashed, because without a criteria
// fingerprint resumed runs cannot verify they continue under the same
// thresholds.
func NewOrchestrator(
	ub *universe.Builder,
	fetcher acquire.Fetcher,
	doc *criteria.Document,
	checkpoint contracts.CheckpointStore,
	cfg Config,
	log *logger.Logger,
) (*Orchestrator, error) {
	sha, err := criteria.Hash(doc)
	if err != nil {
		return nil, fmt.Errorf("hash criteria: %w", err)
	}
	return &Orchestrator{
		universe:    ub,
		fetcher:     fetcher,
		calc:        metrics.NewCalculator(doc, log),
		screener:    screen.NewScreener(doc, log),
		scorer:      screen.NewScorer(doc, log),
		engine:      valuation.NewEngine(doc, log),
		checkpoint:  checkpoint,
		criteriaSHA: sha,
		cfg:         cfg,
		logger:      log.Module("pipeline"),
	}, nil
}

// Run launches a new pipeline run over the configured universe.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	start := time.Now()

	var u *universe.Universe
	var err error
	if len(cfg.Tickers) > 0 {
		u = o.universe.FromList(cfg.Tickers)
	} else {
		u, err = o.universe.Build(ctx)
		if err != nil {
			return nil, fmt.Errorf("build universe: %w", err)
		}
	}
	if u.Size() == 0 {
		return nil, errors.New("empty universe: nothing to screen")
	}

	runID := cfg.RunID
	if runID == "" {
		runID = NewRunID(time.Now())
	}

	manifest := &contracts.RunManifest{
		RunID:        runID,
		CriteriaSHA:  o.criteriaSHA,
		UniverseSize: u.Size(),
		Status:       contracts.RunRunning,
		StartedAt:    time.Now().UTC(),
	}
	if err := o.checkpoint.CreateRun(ctx, manifest); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	if err := o.checkpoint.InitProgress(ctx, runID, u.Tickers); err != nil {
		return nil, fmt.Errorf("init progress: %w", err)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"universe": u.Size(),
		"source":   u.Source,
		"workers":  o.cfg.Workers,
	}).Info("Starting pipeline run")

	return o.process(ctx, runID, u.Tickers, start)
}

// Resume continues an interrupted run, redoing only the tickers that never
// reached a terminal state. It refuses to continue when the criteria
// document changed since the run started: mixing thresholds inside one run
// would make its records incomparable.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (*RunResult, error) {
	start := time.Now()

	m, err := o.checkpoint.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if m.CriteriaSHA != o.criteriaSHA {
		return nil, fmt.Errorf("criteria changed since run %s started (%.8s → %.8s): start a new run instead",
			runID, m.CriteriaSHA, o.criteriaSHA)
	}

	progress, err := o.checkpoint.Progress(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	pending := make([]string, 0, len(progress))
	for ticker, p := range progress {
		if !p.Done() {
			pending = append(pending, ticker)
		}
	}
	// 맵 순회 순서는 매번 다르다. 재개 순서는 결정적이어야 로그를 비교할 수 있다.
	sort.Strings(pending)

	o.logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"pending": len(pending),
		"done":    len(progress) - len(pending),
	}).Info("Resuming pipeline run")

	if len(pending) == 0 {
		// 남은 티커가 없다. 상태만 확정하고 요약을 돌려준다.
		return o.finish(ctx, runID, start, false)
	}
	return o.process(ctx, runID, pending, start)
}

// process walks the tickers in batches, checking for cancellation only at
// batch boundaries so that every started ticker commits its outcome.
func (o *Orchestrator) process(ctx context.Context, runID string, tickers []string, start time.Time) (*RunResult, error) {
	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	batchSize := o.cfg.BatchSize
	if batchSize < 1 {
		batchSize = len(tickers)
	}

	interrupted := false
	processed := 0
	for at := 0; at < len(tickers); at += batchSize {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		end := at + batchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		if err := o.runBatch(ctx, runID, tickers[at:end], workers); err != nil {
			// 체크포인트 기록 실패는 런 전체를 세운다. 이미 커밋된
			// 진행 상황은 남아 있으니 재개로 이어갈 수 있다.
			o.finishStatus(ctx, runID, contracts.RunFailed)
			return nil, err
		}
		processed += end - at
		o.logger.WithFields(map[string]interface{}{
			"run_id": runID,
			"done":   processed,
			"total":  len(tickers),
		}).Info("Batch committed")
	}

	return o.finish(ctx, runID, start, interrupted)
}

// finish records the terminal run status and assembles the result summary.
func (o *Orchestrator) finish(ctx context.Context, runID string, start time.Time, interrupted bool) (*RunResult, error) {
	status := contracts.RunCompleted
	if interrupted {
		status = contracts.RunInterrupted
	}
	if err := o.finishStatus(ctx, runID, status); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}

	result := &RunResult{
		RunID:       runID,
		Duration:    time.Since(start),
		Interrupted: interrupted,
	}

	summary, err := o.checkpoint.Summary(context.WithoutCancel(ctx), runID)
	if err != nil {
		// 요약은 보고일 뿐이다. 런 자체는 이미 확정됐다.
		o.logger.WithField("run_id", runID).WithField("error", err.Error()).
			Warn("Run finished but summary query failed")
	} else {
		result.Summary = summary
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"status":   string(status),
		"duration": result.Duration.Round(time.Millisecond).String(),
	}).Info("Pipeline run finished")

	return result, nil
}

// finishStatus writes the terminal status even when the caller's context is
// already canceled. An interrupted run that cannot record INTERRUPTED would
// look RUNNING forever.
func (o *Orchestrator) finishStatus(ctx context.Context, runID string, status contracts.RunStatus) error {
	return o.checkpoint.FinishRun(context.WithoutCancel(ctx), runID, status)
}

type tickerResult struct {
	ticker string
	status contracts.ProgressStatus
	err    error
}

// runBatch fans the batch out over the worker pool and tallies outcomes.
// The only error it returns is a checkpoint write failure; per-ticker
// acquisition or analysis failures are recorded as outcomes, never
// propagated.
func (o *Orchestrator) runBatch(ctx context.Context, runID string, batch []string, workers int) error {
	tickerCh := make(chan string, len(batch))
	resultCh := make(chan tickerResult, len(batch))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				select {
				case <-ctx.Done():
					// 시작하지 않은 티커는 PENDING으로 남아 재개 대상이 된다
					return
				default:
				}
				status, err := o.processTicker(ctx, runID, ticker)
				resultCh <- tickerResult{ticker: ticker, status: status, err: err}
			}
		}()
	}

	for _, t := range batch {
		tickerCh <- t
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var fatal error
	completed, excluded, failed := 0, 0, 0
	for r := range resultCh {
		switch {
		case r.err != nil && errors.Is(r.err, context.Canceled):
			// 취소에 걸린 티커는 기록하지 않았다. 재개가 다시 집는다.
		case r.err != nil:
			if fatal == nil {
				fatal = fmt.Errorf("checkpoint %s: %w", r.ticker, r.err)
			}
		case r.status == contracts.ProgressCompleted:
			completed++
		case r.status == contracts.ProgressExcluded:
			excluded++
		case r.status == contracts.ProgressFailed:
			failed++
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"batch":     len(batch),
		"completed": completed,
		"excluded":  excluded,
		"failed":    failed,
	}).Debug("Batch processed")

	return fatal
}

// processTicker carries one ticker through every tier it qualifies for and
// commits the outcome in a single checkpoint write. The returned error is
// non-nil only for checkpoint failures and cancellation; every analytic
// disposition is expressed through the recorded status.
func (o *Orchestrator) processTicker(ctx context.Context, runID, ticker string) (contracts.ProgressStatus, error) {
	now := time.Now().UTC()
	outcome := &contracts.TickerOutcome{
		Progress: contracts.TickerProgress{
			RunID:     runID,
			Ticker:    ticker,
			UpdatedAt: now,
		},
	}

	f, err := o.fetcher.Fetch(ctx, ticker)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// 취소로 끊긴 조회는 결과가 아니다. PENDING으로 남긴다.
			return "", context.Canceled
		}
		status := contracts.ProgressFailed
		if contracts.IsInsufficientData(err) {
			// 데이터가 모자란 건 장애가 아니라 분석 불가다
			status = contracts.ProgressExcluded
		}
		outcome.Progress.Status = status
		outcome.Progress.Reason = err.Error()
		o.logger.WithField("ticker", ticker).WithField("error", err.Error()).
			Warn("Acquisition failed")
		return status, o.checkpoint.SaveOutcome(ctx, outcome)
	}

	// 정규화된 티커로 기록한다. BRK.B와 BRK-B가 딴 줄이 되면 안 된다.
	outcome.Progress.Ticker = f.Ticker
	outcome.Progress.Stage = contracts.StageAcquire

	derived, err := o.calc.Compute(f)
	if err != nil {
		outcome.Progress.Status = contracts.ProgressExcluded
		outcome.Progress.Reason = err.Error()
		return contracts.ProgressExcluded, o.checkpoint.SaveOutcome(ctx, outcome)
	}

	screening := o.screener.Screen(f, derived)
	screening.RunID = runID
	outcome.Screening = screening
	outcome.Progress.Stage = contracts.StageScreen
	if !screening.Passed {
		outcome.Progress.Status = contracts.ProgressExcluded
		outcome.Progress.Reason = "hard filter: " + strings.Join(screening.FailedCriteria(), ", ")
		return contracts.ProgressExcluded, o.checkpoint.SaveOutcome(ctx, outcome)
	}

	score := o.scorer.Score(f, derived, screening)
	score.RunID = runID
	outcome.Score = score
	outcome.Progress.Stage = contracts.StageScore
	if !score.Advances {
		outcome.Progress.Status = contracts.ProgressExcluded
		outcome.Progress.Reason = fmt.Sprintf("quality score %.1f below advance threshold", score.Score)
		return contracts.ProgressExcluded, o.checkpoint.SaveOutcome(ctx, outcome)
	}

	result, err := o.engine.Value(f, derived, score)
	if err != nil {
		// 계산이 성립하지 않는 티커는 그 티커만 제외한다
		outcome.Progress.Status = contracts.ProgressExcluded
		outcome.Progress.Reason = err.Error()
		return contracts.ProgressExcluded, o.checkpoint.SaveOutcome(ctx, outcome)
	}
	result.RunID = runID
	outcome.Valuation = result
	outcome.Progress.Stage = contracts.StageValue
	outcome.Progress.Status = contracts.ProgressCompleted

	o.logger.WithFields(map[string]interface{}{
		"ticker":  f.Ticker,
		"score":   score.Score,
		"verdict": result.Verdict,
	}).Debug("Ticker valued")

	return contracts.ProgressCompleted, o.checkpoint.SaveOutcome(ctx, outcome)
}
