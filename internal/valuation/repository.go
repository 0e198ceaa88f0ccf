package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/compounder/internal/contracts"
)

// ResultRepository implements contracts.ValuationReader.
// ⭐ SSOT: 밸류에이션 결과 조회는 여기서만
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a valuation result reader.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ValuationsByRun lists a run's valuations, best consensus first. An
// empty verdict lists everything including unvaluable names.
func (r *ResultRepository) ValuationsByRun(ctx context.Context, runID string, verdict contracts.Verdict) ([]contracts.ValuationResult, error) {
	query := `
		SELECT detail
		FROM valuation_results
		WHERE run_id = $1
		ORDER BY consensus_irr DESC NULLS LAST, ticker
	`
	args := []interface{}{runID}
	if verdict != "" {
		query = `
			SELECT detail
			FROM valuation_results
			WHERE run_id = $1 AND verdict = $2
			ORDER BY consensus_irr DESC NULLS LAST, ticker
		`
		args = append(args, string(verdict))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query valuations: %w", err)
	}
	defer rows.Close()

	var results []contracts.ValuationResult
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan valuation row: %w", err)
		}
		var v contracts.ValuationResult
		if err := json.Unmarshal(detail, &v); err != nil {
			return nil, fmt.Errorf("decode valuation detail: %w", err)
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

// Valuation fetches one ticker's valuation for a run; a miss is
// (nil, nil).
func (r *ResultRepository) Valuation(ctx context.Context, runID, ticker string) (*contracts.ValuationResult, error) {
	var detail []byte
	err := r.pool.QueryRow(ctx, `
		SELECT detail FROM valuation_results WHERE run_id = $1 AND ticker = $2
	`, runID, ticker).Scan(&detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query valuation: %w", err)
	}

	var v contracts.ValuationResult
	if err := json.Unmarshal(detail, &v); err != nil {
		return nil, fmt.Errorf("decode valuation detail: %w", err)
	}
	return &v, nil
}
