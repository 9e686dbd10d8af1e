package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// PageviewRepository stores landing page loads.
type PageviewRepository struct {
	pool PgxPool
}

// NewPageviewRepository creates a new pageview repository.
func NewPageviewRepository(pool PgxPool) *PageviewRepository {
	return &PageviewRepository{pool: pool}
}

// Create inserts the pageview and sets its ID and CreatedAt.
func (r *PageviewRepository) Create(ctx context.Context, pv *domain.Pageview) error {
	query := `
		INSERT INTO pageviews (
			id, tenant_id, url, referrer, title,
			utm_source, utm_medium, utm_campaign, utm_content, utm_term,
			fbclid, fbc, fbp, ip, user_agent, device_type, browser, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		RETURNING created_at
	`

	if pv.ID == uuid.Nil {
		pv.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		pv.ID,
		pv.TenantID,
		pv.URL,
		pv.Referrer,
		pv.Title,
		pv.UTMSource,
		pv.UTMMedium,
		pv.UTMCampaign,
		pv.UTMContent,
		pv.UTMTerm,
		pv.FBCLID,
		pv.FBC,
		pv.FBP,
		pv.IP,
		pv.UserAgent,
		pv.DeviceType,
		pv.Browser,
	).Scan(&pv.CreatedAt)

	if err != nil {
		return fmt.Errorf("create pageview: %w", err)
	}

	return nil
}
