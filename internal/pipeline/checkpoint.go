package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/compounder/internal/contracts"
)

// CheckpointRepository implements contracts.CheckpointStore on
// Postgres. A failure here is fatal to the run; per-ticker analysis
// failures never reach this layer as errors.
// ⭐ SSOT: 런 체크포인트 저장은 여기서만
type CheckpointRepository struct {
	pool *pgxpool.Pool
}

// NewCheckpointRepository creates a checkpoint store over the pool.
func NewCheckpointRepository(pool *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{pool: pool}
}

// CreateRun inserts the run manifest.
func (r *CheckpointRepository) CreateRun(ctx context.Context, m *contracts.RunManifest) error {
	query := `
		INSERT INTO runs (run_id, criteria_sha, universe_size, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		m.RunID, m.CriteriaSHA, m.UniverseSize, string(m.Status), m.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", m.RunID, err)
	}
	return nil
}

// FinishRun stamps the run's terminal status.
func (r *CheckpointRepository) FinishRun(ctx context.Context, runID string, status contracts.RunStatus) error {
	query := `UPDATE runs SET status = $2, finished_at = $3 WHERE run_id = $1`
	_, err := r.pool.Exec(ctx, query, runID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// GetRun loads a run manifest, or (nil, nil) when the id is unknown.
func (r *CheckpointRepository) GetRun(ctx context.Context, runID string) (*contracts.RunManifest, error) {
	query := `
		SELECT run_id, criteria_sha, universe_size, status, started_at, finished_at
		FROM runs
		WHERE run_id = $1
	`
	return r.scanManifest(r.pool.QueryRow(ctx, query, runID))
}

// LatestRun returns the most recently started run, or nil when no run
// exists.
func (r *CheckpointRepository) LatestRun(ctx context.Context) (*contracts.RunManifest, error) {
	query := `
		SELECT run_id, criteria_sha, universe_size, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1
	`
	return r.scanManifest(r.pool.QueryRow(ctx, query))
}

// ListRuns returns up to limit runs, newest first.
func (r *CheckpointRepository) ListRuns(ctx context.Context, limit int) ([]contracts.RunManifest, error) {
	if limit < 1 {
		limit = 20
	}
	query := `
		SELECT run_id, criteria_sha, universe_size, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []contracts.RunManifest
	for rows.Next() {
		var m contracts.RunManifest
		var status string
		if err := rows.Scan(&m.RunID, &m.CriteriaSHA, &m.UniverseSize, &status, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		m.Status = contracts.RunStatus(status)
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

func (r *CheckpointRepository) scanManifest(row pgx.Row) (*contracts.RunManifest, error) {
	var m contracts.RunManifest
	var status string
	err := row.Scan(&m.RunID, &m.CriteriaSHA, &m.UniverseSize, &status, &m.StartedAt, &m.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run manifest: %w", err)
	}
	m.Status = contracts.RunStatus(status)
	return &m, nil
}

// InitProgress seeds a PENDING row per ticker. Rows that already exist
// are kept as they are, so a resumed run sees its prior work.
func (r *CheckpointRepository) InitProgress(ctx context.Context, runID string, tickers []string) error {
	query := `
		INSERT INTO run_progress (run_id, ticker, stage, status, reason, updated_at)
		VALUES ($1, $2, 0, $3, '', $4)
		ON CONFLICT (run_id, ticker) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, t := range tickers {
		if _, err := tx.Exec(ctx, query, runID, t, string(contracts.ProgressPending), now); err != nil {
			return fmt.Errorf("seed progress for %s: %w", t, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Progress returns every ticker's checkpoint row for a run.
func (r *CheckpointRepository) Progress(ctx context.Context, runID string) (map[string]*contracts.TickerProgress, error) {
	query := `
		SELECT ticker, stage, status, reason, updated_at
		FROM run_progress
		WHERE run_id = $1
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query progress for %s: %w", runID, err)
	}
	defer rows.Close()

	progress := make(map[string]*contracts.TickerProgress)
	for rows.Next() {
		p := &contracts.TickerProgress{RunID: runID}
		var stageIdx int
		var status string
		if err := rows.Scan(&p.Ticker, &stageIdx, &status, &p.Reason, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.Stage = contracts.StageFromIndex(stageIdx)
		p.Status = contracts.ProgressStatus(status)
		progress[p.Ticker] = p
	}
	return progress, rows.Err()
}

// ProgressFor returns one ticker's checkpoint row, or nil when the run
// never tracked that ticker.
func (r *CheckpointRepository) ProgressFor(ctx context.Context, runID, ticker string) (*contracts.TickerProgress, error) {
	query := `
		SELECT stage, status, reason, updated_at
		FROM run_progress
		WHERE run_id = $1 AND ticker = $2
	`

	p := &contracts.TickerProgress{RunID: runID, Ticker: ticker}
	var stageIdx int
	var status string
	err := r.pool.QueryRow(ctx, query, runID, ticker).Scan(&stageIdx, &status, &p.Reason, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	p.Stage = contracts.StageFromIndex(stageIdx)
	p.Status = contracts.ProgressStatus(status)
	return p, nil
}

// SaveOutcome commits one ticker's stage outputs and its advanced
// checkpoint row in a single transaction: the ticker fully advances or
// not at all.
func (r *CheckpointRepository) SaveOutcome(ctx context.Context, o *contracts.TickerOutcome) error {
	progressQuery := `
		INSERT INTO run_progress (run_id, ticker, stage, status, reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, ticker) DO UPDATE SET
			stage = EXCLUDED.stage,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`
	screeningQuery := `
		INSERT INTO screening_results (run_id, ticker, passed, reasons, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, ticker) DO UPDATE SET
			passed = EXCLUDED.passed,
			reasons = EXCLUDED.reasons,
			detail = EXCLUDED.detail,
			created_at = EXCLUDED.created_at
	`
	scoreQuery := `
		INSERT INTO quality_scores (run_id, ticker, score, tier, advance, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, ticker) DO UPDATE SET
			score = EXCLUDED.score,
			tier = EXCLUDED.tier,
			advance = EXCLUDED.advance,
			detail = EXCLUDED.detail,
			created_at = EXCLUDED.created_at
	`
	valuationQuery := `
		INSERT INTO valuation_results (
			run_id, ticker, valuable, reason, consensus_irr, intrinsic_value,
			verdict, models_converged, models_total, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id, ticker) DO UPDATE SET
			valuable = EXCLUDED.valuable,
			reason = EXCLUDED.reason,
			consensus_irr = EXCLUDED.consensus_irr,
			intrinsic_value = EXCLUDED.intrinsic_value,
			verdict = EXCLUDED.verdict,
			models_converged = EXCLUDED.models_converged,
			models_total = EXCLUDED.models_total,
			detail = EXCLUDED.detail,
			created_at = EXCLUDED.created_at
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p := o.Progress
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx, progressQuery,
		p.RunID, p.Ticker, p.Stage.Index(), string(p.Status), p.Reason, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert progress for %s: %w", p.Ticker, err)
	}

	if o.Screening != nil {
		detail, err := json.Marshal(o.Screening)
		if err != nil {
			return fmt.Errorf("encode screening for %s: %w", p.Ticker, err)
		}
		reasons := o.Screening.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		_, err = tx.Exec(ctx, screeningQuery,
			o.Screening.RunID, o.Screening.Ticker, o.Screening.Passed,
			reasons, detail, o.Screening.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert screening for %s: %w", p.Ticker, err)
		}
	}

	if o.Score != nil {
		detail, err := json.Marshal(o.Score)
		if err != nil {
			return fmt.Errorf("encode score for %s: %w", p.Ticker, err)
		}
		_, err = tx.Exec(ctx, scoreQuery,
			o.Score.RunID, o.Score.Ticker, o.Score.Score, string(o.Score.Tier),
			o.Score.Advances, detail, o.Score.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert score for %s: %w", p.Ticker, err)
		}
	}

	if o.Valuation != nil {
		detail, err := json.Marshal(o.Valuation)
		if err != nil {
			return fmt.Errorf("encode valuation for %s: %w", p.Ticker, err)
		}
		_, err = tx.Exec(ctx, valuationQuery,
			o.Valuation.RunID, o.Valuation.Ticker, o.Valuation.Valuable,
			o.Valuation.Reason, o.Valuation.ConsensusIRR, o.Valuation.IntrinsicValue,
			string(o.Valuation.Verdict), o.Valuation.ModelsConverged,
			o.Valuation.ModelsTotal, detail, o.Valuation.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert valuation for %s: %w", p.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Summary aggregates run progress for reporting.
func (r *CheckpointRepository) Summary(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	m, err := r.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM run_progress WHERE run_id = $1 AND stage >= 1),
			(SELECT COUNT(*) FROM screening_results WHERE run_id = $1),
			(SELECT COUNT(*) FROM screening_results WHERE run_id = $1 AND passed),
			(SELECT COUNT(*) FROM quality_scores WHERE run_id = $1),
			(SELECT COUNT(*) FROM quality_scores WHERE run_id = $1 AND advance),
			(SELECT COUNT(*) FROM valuation_results WHERE run_id = $1),
			(SELECT COUNT(*) FROM valuation_results WHERE run_id = $1 AND verdict = $2),
			(SELECT COUNT(*) FROM run_progress WHERE run_id = $1 AND status = $3),
			(SELECT COUNT(*) FROM run_progress WHERE run_id = $1 AND status = $4),
			(SELECT COUNT(*) FROM run_progress WHERE run_id = $1 AND status = $5)
	`

	s := &contracts.RunSummary{Manifest: *m}
	err = r.pool.QueryRow(ctx, query, runID,
		string(contracts.VerdictBuy),
		string(contracts.ProgressFailed),
		string(contracts.ProgressExcluded),
		string(contracts.ProgressPending),
	).Scan(
		&s.Acquired, &s.Screened, &s.Passed, &s.Scored, &s.Advanced,
		&s.Valued, &s.Buys, &s.Failed, &s.Excluded, &s.Remaining,
	)
	if err != nil {
		return nil, fmt.Errorf("query run summary: %w", err)
	}
	return s, nil
}
