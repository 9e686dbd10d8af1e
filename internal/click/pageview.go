package click

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// PageviewInput is the pageview ingest body.
type PageviewInput struct {
	URL         string `json:"url" validate:"required,url,max=2048"`
	Referrer    string `json:"referrer" validate:"omitempty,max=2048"`
	Title       string `json:"title" validate:"omitempty,max=512"`
	UTMSource   string `json:"utmSource" validate:"omitempty,max=255"`
	UTMMedium   string `json:"utmMedium" validate:"omitempty,max=255"`
	UTMCampaign string `json:"utmCampaign" validate:"omitempty,max=255"`
	UTMContent  string `json:"utmContent" validate:"omitempty,max=255"`
	UTMTerm     string `json:"utmTerm" validate:"omitempty,max=255"`
	FBCLID      string `json:"fbclid" validate:"omitempty,max=512"`
	FBC         string `json:"fbc" validate:"omitempty,max=600"`
	FBP         string `json:"fbp" validate:"omitempty,max=255"`
}

type PageviewRepositoryInterface interface {
	Create(ctx context.Context, pv *domain.Pageview) error
}

// PageviewService ingests landing page loads.
type PageviewService struct {
	tenants   TenantRepositoryInterface
	pageviews PageviewRepositoryInterface
	logger    *slog.Logger
}

// NewPageviewService builds a PageviewService.
func NewPageviewService(tenants TenantRepositoryInterface, pageviews PageviewRepositoryInterface, logger *slog.Logger) *PageviewService {
	return &PageviewService{
		tenants:   tenants,
		pageviews: pageviews,
		logger:    logger.With("component", "pageview"),
	}
}

// Ingest stores one pageview for the tenant.
func (s *PageviewService) Ingest(ctx context.Context, tenantID uuid.UUID, in PageviewInput, client ClientInfo) (*domain.Pageview, error) {
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	pv := &domain.Pageview{
		TenantID:    tenantID,
		URL:         in.URL,
		Referrer:    optional(in.Referrer),
		Title:       optional(in.Title),
		UTMSource:   optional(in.UTMSource),
		UTMMedium:   optional(in.UTMMedium),
		UTMCampaign: optional(in.UTMCampaign),
		UTMContent:  optional(in.UTMContent),
		UTMTerm:     optional(in.UTMTerm),
		FBCLID:      optional(in.FBCLID),
		FBC:         optional(in.FBC),
		FBP:         optional(in.FBP),
		IP:          optional(client.IP),
		UserAgent:   optional(client.UserAgent),
	}
	pv.DeviceType, pv.Browser = parseUserAgent(pv.UserAgent)

	if err := s.pageviews.Create(ctx, pv); err != nil {
		return nil, fmt.Errorf("ingest pageview: %w", err)
	}

	s.logger.Debug("pageview ingested",
		"tenant_id", tenantID,
		"pageview_id", pv.ID,
	)

	return pv, nil
}
