// Package click records landing page traffic for later attribution: ad
// clicks, pageviews and InitiateCheckout hits.
package click

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Input is the click ingest body.
type Input struct {
	FBCLID      string `json:"fbclid" validate:"omitempty,max=512"`
	FBC         string `json:"fbc" validate:"omitempty,max=600"`
	FBP         string `json:"fbp" validate:"omitempty,max=255"`
	UTMSource   string `json:"utmSource" validate:"omitempty,max=255"`
	UTMMedium   string `json:"utmMedium" validate:"omitempty,max=255"`
	UTMCampaign string `json:"utmCampaign" validate:"omitempty,max=255"`
}

// ClientInfo is what the transport knows about the caller.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// TenantRepositoryInterface is shared by the click, pageview and checkout services.
type TenantRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// ClickRepositoryInterface persists clicks.
type ClickRepositoryInterface interface {
	Create(ctx context.Context, click *domain.Click) error
}

// Service ingests ad clicks.
type Service struct {
	tenants TenantRepositoryInterface
	clicks  ClickRepositoryInterface
	logger  *slog.Logger
}

// NewService creates a click service.
func NewService(tenants TenantRepositoryInterface, clicks ClickRepositoryInterface, logger *slog.Logger) *Service {
	return &Service{
		tenants: tenants,
		clicks:  clicks,
		logger:  logger.With("component", "click"),
	}
}

// Ingest stores one click for the tenant. fbclid is kept as sent; fbc is
// only what the browser's _fbc cookie held, never rebuilt server side.
func (s *Service) Ingest(ctx context.Context, tenantID uuid.UUID, in Input, client ClientInfo) (*domain.Click, error) {
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	c := &domain.Click{
		TenantID:    tenantID,
		FBCLID:      optional(in.FBCLID),
		FBC:         optional(in.FBC),
		FBP:         optional(in.FBP),
		UTMSource:   optional(in.UTMSource),
		UTMMedium:   optional(in.UTMMedium),
		UTMCampaign: optional(in.UTMCampaign),
		IP:          optional(client.IP),
		UserAgent:   optional(client.UserAgent),
	}

	c.DeviceType, c.Browser = parseUserAgent(c.UserAgent)

	if err := s.clicks.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("ingest click: %w", err)
	}

	s.logger.Debug("click ingested",
		"tenant_id", tenantID,
		"click_id", c.ID,
		"has_fbc", c.FBC != nil,
		"has_fbp", c.FBP != nil,
	)

	return c, nil
}

// parseUserAgent returns nil, nil when no user agent was sent.
func parseUserAgent(raw *string) (device, browser *string) {
	if raw == nil {
		return nil, nil
	}
	ua := useragent.Parse(*raw)
	d := DeviceType(&ua)
	return &d, optional(ua.Name)
}

// DeviceType buckets a parsed user agent into bot, tablet, mobile or desktop.
func DeviceType(ua *useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Tablet:
		return "tablet"
	case ua.Mobile:
		return "mobile"
	case ua.Desktop:
		return "desktop"
	default:
		return "unknown"
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
