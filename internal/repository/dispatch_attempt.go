package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// DispatchAttemptRepository records every CAPI call.
type DispatchAttemptRepository struct {
	pool PgxPool
}

// NewDispatchAttemptRepository creates a new dispatch attempt repository
func NewDispatchAttemptRepository(pool PgxPool) *DispatchAttemptRepository {
	return &DispatchAttemptRepository{pool: pool}
}

func (r *DispatchAttemptRepository) Create(ctx context.Context, a *domain.DispatchAttempt) error {
	query := `
		INSERT INTO dispatch_attempts (id, tenant_id, conversion_id, event_id, attempt, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		a.ID,
		a.TenantID,
		a.ConversionID,
		a.EventID,
		a.Attempt,
		string(a.Status),
		a.Error,
	).Scan(&a.CreatedAt)

	if err != nil {
		return fmt.Errorf("create dispatch attempt: %w", err)
	}

	return nil
}
