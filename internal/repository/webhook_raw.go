package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// WebhookRawRepository stores verified webhook bodies.
type WebhookRawRepository struct {
	pool PgxPool
}

// NewWebhookRawRepository creates a new webhook raw repository
func NewWebhookRawRepository(pool PgxPool) *WebhookRawRepository {
	return &WebhookRawRepository{pool: pool}
}

// Upsert stores the payload once per (tenant, gateway, event id). On a
// redelivery raw is filled from the existing row and created is false.
func (r *WebhookRawRepository) Upsert(ctx context.Context, raw *domain.WebhookRaw) (bool, error) {
	query := `
		INSERT INTO webhook_raws (id, tenant_id, gateway, gateway_event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (tenant_id, gateway, gateway_event_id) DO NOTHING
		RETURNING received_at
	`

	if raw.ID == uuid.Nil {
		raw.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		raw.ID,
		raw.TenantID,
		string(raw.Gateway),
		raw.GatewayEventID,
		raw.EventType,
		raw.Payload,
	).Scan(&raw.ReceivedAt)

	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert webhook raw: %w", err)
	}

	existing, err := r.GetByEventKey(ctx, raw.TenantID, raw.Gateway, raw.GatewayEventID)
	if err != nil {
		return false, err
	}
	*raw = *existing

	return false, nil
}

// GetByEventKey returns ErrWebhookRawNotFound when the event was never stored.
func (r *WebhookRawRepository) GetByEventKey(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway, eventID string) (*domain.WebhookRaw, error) {
	query := `
		SELECT id, tenant_id, gateway, gateway_event_id, event_type, payload, received_at
		FROM webhook_raws
		WHERE tenant_id = $1 AND gateway = $2 AND gateway_event_id = $3
	`

	var raw domain.WebhookRaw
	var gw string
	err := r.pool.QueryRow(ctx, query, tenantID, string(gateway), eventID).Scan(
		&raw.ID,
		&raw.TenantID,
		&gw,
		&raw.GatewayEventID,
		&raw.EventType,
		&raw.Payload,
		&raw.ReceivedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWebhookRawNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook raw: %w", err)
	}

	raw.Gateway = domain.Gateway(gw)
	return &raw, nil
}
