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

const clickColumns = `
	id, tenant_id, fbclid, fbc, fbp, utm_source, utm_medium, utm_campaign,
	ip, user_agent, device_type, browser, created_at
`

// ClickRepository stores ad clicks and finds them for matching.
type ClickRepository struct {
	pool PgxPool
}

// NewClickRepository creates a new click repository
func NewClickRepository(pool PgxPool) *ClickRepository {
	return &ClickRepository{pool: pool}
}

// Create inserts the click and sets its ID and CreatedAt.
func (r *ClickRepository) Create(ctx context.Context, click *domain.Click) error {
	query := `
		INSERT INTO clicks (
			id, tenant_id, fbclid, fbc, fbp, utm_source, utm_medium, utm_campaign,
			ip, user_agent, device_type, browser, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at
	`

	if click.ID == uuid.Nil {
		click.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		click.ID,
		click.TenantID,
		click.FBCLID,
		click.FBC,
		click.FBP,
		click.UTMSource,
		click.UTMMedium,
		click.UTMCampaign,
		click.IP,
		click.UserAgent,
		click.DeviceType,
		click.Browser,
	).Scan(&click.CreatedAt)

	if err != nil {
		return fmt.Errorf("create click: %w", err)
	}

	return nil
}

// FindLatestByFBC returns the most recent click of the tenant carrying fbc
// with created_at inside [from, to].
func (r *ClickRepository) FindLatestByFBC(ctx context.Context, tenantID uuid.UUID, fbc string, from, to time.Time) (*domain.Click, error) {
	query := `SELECT ` + clickColumns + `
		FROM clicks
		WHERE tenant_id = $1 AND fbc = $2 AND created_at BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findLatest(ctx, query, "fbc", tenantID, fbc, from, to)
}

// FindLatestByFBP is FindLatestByFBC keyed on the browser id.
func (r *ClickRepository) FindLatestByFBP(ctx context.Context, tenantID uuid.UUID, fbp string, from, to time.Time) (*domain.Click, error) {
	query := `SELECT ` + clickColumns + `
		FROM clicks
		WHERE tenant_id = $1 AND fbp = $2 AND created_at BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findLatest(ctx, query, "fbp", tenantID, fbp, from, to)
}

func (r *ClickRepository) findLatest(ctx context.Context, query, key string, tenantID uuid.UUID, value string, from, to time.Time) (*domain.Click, error) {
	var c domain.Click
	err := r.pool.QueryRow(ctx, query, tenantID, value, from, to).Scan(
		&c.ID,
		&c.TenantID,
		&c.FBCLID,
		&c.FBC,
		&c.FBP,
		&c.UTMSource,
		&c.UTMMedium,
		&c.UTMCampaign,
		&c.IP,
		&c.UserAgent,
		&c.DeviceType,
		&c.Browser,
		&c.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrClickNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find click by %s: %w", key, err)
	}

	return &c, nil
}
