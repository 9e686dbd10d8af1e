package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// defaultStatsWindow applies when the since query parameter is absent.
const defaultStatsWindow = 24 * time.Hour

// MatchStatsService is implemented by matching.Engine.
type MatchStatsService interface {
	Stats(ctx context.Context, tenantID uuid.UUID, since time.Time) (*domain.MatchStats, error)
}

// DeliveryStatsService is implemented by enqueue.Service.
type DeliveryStatsService interface {
	Stats(ctx context.Context, tenantID uuid.UUID) (*domain.EnqueueStats, error)
}

// TenantLookup is implemented by repository.TenantRepository.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// StatsHandler reports match and delivery stats for one tenant.
type StatsHandler struct {
	tenants  TenantLookup
	matches  MatchStatsService
	delivery DeliveryStatsService
	now      func() time.Time
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(tenants TenantLookup, matches MatchStatsService, delivery DeliveryStatsService) *StatsHandler {
	return &StatsHandler{
		tenants:  tenants,
		matches:  matches,
		delivery: delivery,
		now:      time.Now,
	}
}

// StatsResponse response for the tenant stats endpoint
type StatsResponse struct {
	TenantID string               `json:"tenant_id"`
	Since    time.Time            `json:"since"`
	Matching *domain.MatchStats   `json:"matching"`
	Delivery *domain.EnqueueStats `json:"delivery"`
}

// Get GET /v1/stats/:tenantId
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return domain.ErrTenantNotFound
	}

	since := h.now().Add(-defaultStatsWindow)
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
	}

	ctx := c.UserContext()
	if _, err := h.tenants.GetByID(ctx, tenantID); err != nil {
		return err
	}

	matching, err := h.matches.Stats(ctx, tenantID, since)
	if err != nil {
		return err
	}
	delivery, err := h.delivery.Stats(ctx, tenantID)
	if err != nil {
		return err
	}

	return c.JSON(StatsResponse{
		TenantID: tenantID.String(),
		Since:    since,
		Matching: matching,
		Delivery: delivery,
	})
}
