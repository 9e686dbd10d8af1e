package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/click"
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// ClickService is implemented by click.Service.
type ClickService interface {
	Ingest(ctx context.Context, tenantID uuid.UUID, in click.Input, client click.ClientInfo) (*domain.Click, error)
}

// ClickHandler serves click ingest.
type ClickHandler struct {
	service ClickService
	logger  *slog.Logger
}

// NewClickHandler creates a new click handler
func NewClickHandler(service ClickService, logger *slog.Logger) *ClickHandler {
	return &ClickHandler{service: service, logger: logger}
}

// ClickResponse response for the click ingest endpoint
type ClickResponse struct {
	ID string `json:"id"`
}

// Ingest POST /v1/clicks/:tenantId
func (h *ClickHandler) Ingest(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return domain.ErrTenantNotFound
	}

	var in click.Input
	if err := parseOptionalBody(c, &in); err != nil {
		return err
	}

	created, err := h.service.Ingest(c.UserContext(), tenantID, in, clientInfo(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(ClickResponse{ID: created.ID.String()})
}
