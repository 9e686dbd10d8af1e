package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

const conversionColumns = `
	id, tenant_id, webhook_raw_id, gateway, gateway_event_id, event_type,
	amount, currency, purchased_at, fbc, fbp, country_code,
	email_hash, phone_hash, first_name_hash, last_name_hash, date_of_birth_hash,
	city_hash, state_hash, zip_code_hash, external_id_hash, facebook_login_id_hash,
	matched_click_id, match_strategy, matched_at,
	sent_to_capi, sent_at, capi_request_payload, created_at
`

// ConversionRepository stores normalized purchases and their match and delivery state.
type ConversionRepository struct {
	pool PgxPool
}

// NewConversionRepository creates a new conversion repository
func NewConversionRepository(pool PgxPool) *ConversionRepository {
	return &ConversionRepository{pool: pool}
}

// Upsert inserts the conversion unless one already exists for the same
// (tenant, gateway, event id). On conflict c is replaced by the stored row
// and created is false.
func (r *ConversionRepository) Upsert(ctx context.Context, c *domain.Conversion) (bool, error) {
	query := `
		INSERT INTO conversions (
			id, tenant_id, webhook_raw_id, gateway, gateway_event_id, event_type,
			amount, currency, purchased_at, fbc, fbp, country_code,
			email_hash, phone_hash, first_name_hash, last_name_hash, date_of_birth_hash,
			city_hash, state_hash, zip_code_hash, external_id_hash, facebook_login_id_hash,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, NOW()
		)
		ON CONFLICT (tenant_id, gateway, gateway_event_id) DO NOTHING
		RETURNING created_at
	`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		c.ID,
		c.TenantID,
		c.WebhookRawID,
		string(c.Gateway),
		c.GatewayEventID,
		c.EventType,
		c.Amount,
		c.Currency,
		c.PurchasedAt,
		c.FBC,
		c.FBP,
		c.CountryCode,
		c.EmailHash,
		c.PhoneHash,
		c.FirstNameHash,
		c.LastNameHash,
		c.DateOfBirthHash,
		c.CityHash,
		c.StateHash,
		c.ZipCodeHash,
		c.ExternalIDHash,
		c.FacebookLoginIDHash,
	).Scan(&c.CreatedAt)

	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert conversion: %w", err)
	}

	existing, err := r.GetByEventKey(ctx, c.TenantID, c.Gateway, c.GatewayEventID)
	if err != nil {
		return false, err
	}
	*c = *existing

	return false, nil
}

// GetByID returns ErrConversionNotFound outside the tenant.
func (r *ConversionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE tenant_id = $1 AND id = $2`

	c, err := scanConversion(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConversionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion by id: %w", err)
	}

	return c, nil
}

func (r *ConversionRepository) GetByEventKey(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway, eventID string) (*domain.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE tenant_id = $1 AND gateway = $2 AND gateway_event_id = $3`

	c, err := scanConversion(r.pool.QueryRow(ctx, query, tenantID, string(gateway), eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConversionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion by event key: %w", err)
	}

	return c, nil
}

// RecordMatch attaches the match result and writes its MatchLog in a single
// transaction. The update only applies while match_strategy is NULL; when
// the conversion was already matched nothing is written and applied is false.
func (r *ConversionRepository) RecordMatch(ctx context.Context, log *domain.MatchLog) (applied bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin match transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	update := `
		UPDATE conversions
		SET matched_click_id = $3, match_strategy = $4, matched_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND match_strategy IS NULL
	`

	tag, err := tx.Exec(ctx, update, log.TenantID, log.ConversionID, log.FinalClickID, string(log.FinalStrategy))
	if err != nil {
		return false, fmt.Errorf("set conversion match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	err = tx.QueryRow(ctx, insertMatchLogQuery, matchLogArgs(log)...).Scan(&log.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert match log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit match transaction: %w", err)
	}
	committed = true

	return true, nil
}

// MarkSent flags the conversion as delivered to CAPI.
func (r *ConversionRepository) MarkSent(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE conversions
		SET sent_to_capi = TRUE, sent_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.pool.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("mark conversion sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrConversionNotFound
	}

	return nil
}

// SetRequestPayload stores the audit copy of what was handed to the queue.
func (r *ConversionRepository) SetRequestPayload(ctx context.Context, tenantID, id uuid.UUID, payload json.RawMessage) error {
	query := `
		UPDATE conversions
		SET capi_request_payload = $3
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.pool.Exec(ctx, query, tenantID, id, payload)
	if err != nil {
		return fmt.Errorf("set capi request payload: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrConversionNotFound
	}

	return nil
}

// Stats counts delivered and pending conversions for the tenant.
func (r *ConversionRepository) Stats(ctx context.Context, tenantID uuid.UUID) (*domain.EnqueueStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE sent_to_capi)
		FROM conversions
		WHERE tenant_id = $1
	`

	var stats domain.EnqueueStats
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&stats.Total, &stats.SentToCAPI); err != nil {
		return nil, fmt.Errorf("conversion stats: %w", err)
	}

	stats.Pending = stats.Total - stats.SentToCAPI
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.SentToCAPI) / float64(stats.Total) * 100
	}

	return &stats, nil
}

// ListUnsent returns matched conversions created before the cutoff that have
// not been delivered to CAPI, oldest first.
func (r *ConversionRepository) ListUnsent(ctx context.Context, before time.Time, limit int) ([]domain.PendingConversion, error) {
	query := `
		SELECT tenant_id, id
		FROM conversions
		WHERE sent_to_capi = FALSE
			AND match_strategy IS NOT NULL
			AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsent conversions: %w", err)
	}
	defer rows.Close()

	var pending []domain.PendingConversion
	for rows.Next() {
		var p domain.PendingConversion
		if err := rows.Scan(&p.TenantID, &p.ID); err != nil {
			return nil, fmt.Errorf("scan unsent conversion: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unsent conversions: %w", err)
	}

	return pending, nil
}

func scanConversion(row pgx.Row) (*domain.Conversion, error) {
	var c domain.Conversion
	var gateway string
	var strategy *string

	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.WebhookRawID,
		&gateway,
		&c.GatewayEventID,
		&c.EventType,
		&c.Amount,
		&c.Currency,
		&c.PurchasedAt,
		&c.FBC,
		&c.FBP,
		&c.CountryCode,
		&c.EmailHash,
		&c.PhoneHash,
		&c.FirstNameHash,
		&c.LastNameHash,
		&c.DateOfBirthHash,
		&c.CityHash,
		&c.StateHash,
		&c.ZipCodeHash,
		&c.ExternalIDHash,
		&c.FacebookLoginIDHash,
		&c.MatchedClickID,
		&strategy,
		&c.MatchedAt,
		&c.SentToCAPI,
		&c.SentAt,
		&c.CAPIRequestPayload,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Gateway = domain.Gateway(gateway)
	if strategy != nil {
		s := domain.MatchStrategy(*strategy)
		c.MatchStrategy = &s
	}

	return &c, nil
}
