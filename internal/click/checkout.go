package click

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/pii"
)

// CheckoutInput is the InitiateCheckout ingest body.
type CheckoutInput struct {
	CartValue   *float64          `json:"cartValue" validate:"omitempty,gte=0"`
	Currency    string            `json:"currency" validate:"omitempty,max=16"`
	CartItems   []domain.CartItem `json:"cartItems" validate:"omitempty,max=200,dive"`
	UTMSource   string            `json:"utmSource" validate:"omitempty,max=255"`
	UTMMedium   string            `json:"utmMedium" validate:"omitempty,max=255"`
	UTMCampaign string            `json:"utmCampaign" validate:"omitempty,max=255"`
	FBCLID      string            `json:"fbclid" validate:"omitempty,max=512"`
	FBC         string            `json:"fbc" validate:"omitempty,max=600"`
	FBP         string            `json:"fbp" validate:"omitempty,max=255"`
}

// CheckoutRepositoryInterface persists checkouts.
type CheckoutRepositoryInterface interface {
	Create(ctx context.Context, co *domain.Checkout) error
}

// CheckoutService ingests InitiateCheckout hits.
type CheckoutService struct {
	tenants   TenantRepositoryInterface
	checkouts CheckoutRepositoryInterface
	logger    *slog.Logger
}

// NewCheckoutService builds a CheckoutService.
func NewCheckoutService(tenants TenantRepositoryInterface, checkouts CheckoutRepositoryInterface, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		tenants:   tenants,
		checkouts: checkouts,
		logger:    logger.With("component", "checkout"),
	}
}

// Ingest stores one checkout for the tenant. A currency that is not an ISO
// 4217 code is dropped rather than rejected.
func (s *CheckoutService) Ingest(ctx context.Context, tenantID uuid.UUID, in CheckoutInput, client ClientInfo) (*domain.Checkout, error) {
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	co := &domain.Checkout{
		TenantID:    tenantID,
		CartValue:   in.CartValue,
		CartItems:   in.CartItems,
		UTMSource:   optional(in.UTMSource),
		UTMMedium:   optional(in.UTMMedium),
		UTMCampaign: optional(in.UTMCampaign),
		FBCLID:      optional(in.FBCLID),
		FBC:         optional(in.FBC),
		FBP:         optional(in.FBP),
		IP:          optional(client.IP),
		UserAgent:   optional(client.UserAgent),
	}
	if code, ok := pii.CurrencyCode(in.Currency); ok {
		co.Currency = &code
	} else if in.Currency != "" {
		s.logger.Debug("dropping unrecognized checkout currency",
			"tenant_id", tenantID,
			"currency", in.Currency,
		)
	}

	if err := s.checkouts.Create(ctx, co); err != nil {
		return nil, fmt.Errorf("ingest checkout: %w", err)
	}

	s.logger.Debug("checkout ingested",
		"tenant_id", tenantID,
		"checkout_id", co.ID,
		"items", len(co.CartItems),
	)

	return co, nil
}
