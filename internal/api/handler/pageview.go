package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/click"
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// PageviewService is implemented by click.PageviewService.
type PageviewService interface {
	Ingest(ctx context.Context, tenantID uuid.UUID, in click.PageviewInput, client click.ClientInfo) (*domain.Pageview, error)
}

// CheckoutService is implemented by click.CheckoutService.
type CheckoutService interface {
	Ingest(ctx context.Context, tenantID uuid.UUID, in click.CheckoutInput, client click.ClientInfo) (*domain.Checkout, error)
}

// PageviewHandler serves pageview and checkout ingest.
type PageviewHandler struct {
	pageviews PageviewService
	checkouts CheckoutService
	logger    *slog.Logger
}

// NewPageviewHandler serves the pageview and checkout ingest endpoints.
func NewPageviewHandler(pageviews PageviewService, checkouts CheckoutService, logger *slog.Logger) *PageviewHandler {
	return &PageviewHandler{pageviews: pageviews, checkouts: checkouts, logger: logger}
}

// IngestResponse response for the pageview and checkout ingest endpoints
type IngestResponse struct {
	ID string `json:"id"`
}

// Pageview POST /v1/pageviews/:tenantId
func (h *PageviewHandler) Pageview(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return domain.ErrTenantNotFound
	}

	var in click.PageviewInput
	if err := parseOptionalBody(c, &in); err != nil {
		return err
	}

	created, err := h.pageviews.Ingest(c.UserContext(), tenantID, in, clientInfo(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(IngestResponse{ID: created.ID.String()})
}

// Checkout POST /v1/checkouts/:tenantId
func (h *PageviewHandler) Checkout(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return domain.ErrTenantNotFound
	}

	var in click.CheckoutInput
	if err := parseOptionalBody(c, &in); err != nil {
		return err
	}

	created, err := h.checkouts.Ingest(c.UserContext(), tenantID, in, clientInfo(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(IngestResponse{ID: created.ID.String()})
}

func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	return nil
}

func clientInfo(c *fiber.Ctx) click.ClientInfo {
	return click.ClientInfo{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
