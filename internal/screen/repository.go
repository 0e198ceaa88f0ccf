package screen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/compounder/internal/contracts"
)

// ResultRepository implements contracts.ScreeningReader and
// contracts.ScoreReader over the promoted columns plus the detail blob.
// ⭐ SSOT: 스크리닝/점수 결과 조회는 여기서만
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a screening and score reader.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ScreeningByRun lists a run's Tier-1 results in ticker order,
// optionally survivors only.
func (r *ResultRepository) ScreeningByRun(ctx context.Context, runID string, passedOnly bool) ([]contracts.ScreeningResult, error) {
	query := `
		SELECT detail
		FROM screening_results
		WHERE run_id = $1
		ORDER BY ticker
	`
	if passedOnly {
		query = `
			SELECT detail
			FROM screening_results
			WHERE run_id = $1 AND passed
			ORDER BY ticker
		`
	}

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query screenings: %w", err)
	}
	defer rows.Close()

	var results []contracts.ScreeningResult
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan screening row: %w", err)
		}
		var sr contracts.ScreeningResult
		if err := json.Unmarshal(detail, &sr); err != nil {
			return nil, fmt.Errorf("decode screening detail: %w", err)
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// Screening fetches one ticker's Tier-1 result for a run; a miss is
// (nil, nil).
func (r *ResultRepository) Screening(ctx context.Context, runID, ticker string) (*contracts.ScreeningResult, error) {
	var detail []byte
	err := r.pool.QueryRow(ctx, `
		SELECT detail FROM screening_results WHERE run_id = $1 AND ticker = $2
	`, runID, ticker).Scan(&detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query screening: %w", err)
	}

	var sr contracts.ScreeningResult
	if err := json.Unmarshal(detail, &sr); err != nil {
		return nil, fmt.Errorf("decode screening detail: %w", err)
	}
	return &sr, nil
}

// ScoresByRun lists a run's Tier-2 scores, best first.
func (r *ResultRepository) ScoresByRun(ctx context.Context, runID string) ([]contracts.QualityScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT detail
		FROM quality_scores
		WHERE run_id = $1
		ORDER BY score DESC, ticker
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []contracts.QualityScore
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		var q contracts.QualityScore
		if err := json.Unmarshal(detail, &q); err != nil {
			return nil, fmt.Errorf("decode score detail: %w", err)
		}
		scores = append(scores, q)
	}
	return scores, rows.Err()
}

// Score fetches one ticker's Tier-2 score for a run; a miss is
// (nil, nil).
func (r *ResultRepository) Score(ctx context.Context, runID, ticker string) (*contracts.QualityScore, error) {
	var detail []byte
	err := r.pool.QueryRow(ctx, `
		SELECT detail FROM quality_scores WHERE run_id = $1 AND ticker = $2
	`, runID, ticker).Scan(&detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query score: %w", err)
	}

	var q contracts.QualityScore
	if err := json.Unmarshal(detail, &q); err != nil {
		return nil, fmt.Errorf("decode score detail: %w", err)
	}
	return &q, nil
}
