package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// One log per conversion; a concurrent second insert is dropped.
const insertMatchLogQuery = `
	INSERT INTO match_logs (
		id, conversion_id, tenant_id,
		fbc_attempted, fbc_result, fbc_click_id,
		fbp_attempted, fbp_result, fbp_click_id,
		final_strategy, final_click_id,
		window_start, window_end, processing_time_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	ON CONFLICT (conversion_id) DO NOTHING
	RETURNING created_at
`

func matchLogArgs(l *domain.MatchLog) []any {
	return []any{
		l.ID,
		l.ConversionID,
		l.TenantID,
		l.FBCAttempted,
		resultArg(l.FBCResult),
		l.FBCClickID,
		l.FBPAttempted,
		resultArg(l.FBPResult),
		l.FBPClickID,
		string(l.FinalStrategy),
		l.FinalClickID,
		l.WindowStart,
		l.WindowEnd,
		l.ProcessingTimeMs,
	}
}

func resultArg(r *domain.StrategyResult) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// MatchLogRepository reads the per-conversion matching audit trail.
type MatchLogRepository struct {
	pool PgxPool
}

// NewMatchLogRepository creates a new match log repository
func NewMatchLogRepository(pool PgxPool) *MatchLogRepository {
	return &MatchLogRepository{pool: pool}
}

func (r *MatchLogRepository) GetByConversion(ctx context.Context, tenantID, conversionID uuid.UUID) (*domain.MatchLog, error) {
	query := `
		SELECT id, conversion_id, tenant_id,
			fbc_attempted, fbc_result, fbc_click_id,
			fbp_attempted, fbp_result, fbp_click_id,
			final_strategy, final_click_id,
			window_start, window_end, processing_time_ms, created_at
		FROM match_logs
		WHERE tenant_id = $1 AND conversion_id = $2
	`

	var l domain.MatchLog
	var fbcResult, fbpResult *string
	var strategy string

	err := r.pool.QueryRow(ctx, query, tenantID, conversionID).Scan(
		&l.ID,
		&l.ConversionID,
		&l.TenantID,
		&l.FBCAttempted,
		&fbcResult,
		&l.FBCClickID,
		&l.FBPAttempted,
		&fbpResult,
		&l.FBPClickID,
		&strategy,
		&l.FinalClickID,
		&l.WindowStart,
		&l.WindowEnd,
		&l.ProcessingTimeMs,
		&l.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMatchLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match log: %w", err)
	}

	l.FBCResult = toResult(fbcResult)
	l.FBPResult = toResult(fbpResult)
	l.FinalStrategy = domain.MatchStrategy(strategy)

	return &l, nil
}

// Stats breaks match logs written since the given time down by strategy.
func (r *MatchLogRepository) Stats(ctx context.Context, tenantID uuid.UUID, since time.Time) (*domain.MatchStats, error) {
	query := `
		SELECT final_strategy, COUNT(*)
		FROM match_logs
		WHERE tenant_id = $1 AND created_at >= $2
		GROUP BY final_strategy
		ORDER BY final_strategy
	`

	rows, err := r.pool.Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("match stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.MatchStats{ByStrategy: []domain.StrategyCount{}}
	for rows.Next() {
		var sc domain.StrategyCount
		var strategy string
		if err := rows.Scan(&strategy, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan match stats: %w", err)
		}
		sc.Strategy = domain.MatchStrategy(strategy)

		stats.Total += sc.Count
		if sc.Strategy != domain.MatchStrategyUnmatched {
			stats.Matched += sc.Count
		}
		stats.ByStrategy = append(stats.ByStrategy, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match stats: %w", err)
	}

	if stats.Total > 0 {
		stats.MatchRate = float64(stats.Matched) / float64(stats.Total) * 100
		for i := range stats.ByStrategy {
			stats.ByStrategy[i].Percentage = float64(stats.ByStrategy[i].Count) / float64(stats.Total) * 100
		}
	}

	return stats, nil
}

func toResult(s *string) *domain.StrategyResult {
	if s == nil {
		return nil
	}
	r := domain.StrategyResult(*s)
	return &r
}
