package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/gateway"
	"github.com/saturnino-fabrica-de-software/trackai/internal/intake"
)

// IntakeService is implemented by intake.Coordinator.
type IntakeService interface {
	Handle(ctx context.Context, req intake.Request) (*intake.Result, error)
}

// AdapterRegistry resolves the signature header of each gateway.
type AdapterRegistry interface {
	Lookup(g domain.Gateway) (gateway.Adapter, error)
}

// WebhookHandler receives signed gateway webhooks.
type WebhookHandler struct {
	intake   IntakeService
	adapters AdapterRegistry
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(svc IntakeService, adapters AdapterRegistry, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		intake:   svc,
		adapters: adapters,
		logger:   logger,
	}
}

// WebhookResponse response for the webhook intake endpoint
type WebhookResponse struct {
	OK           bool   `json:"ok"`
	WebhookRawID string `json:"webhook_raw_id"`
	ConversionID string `json:"conversion_id"`
	EventID      string `json:"event_id"`
	Duplicate    bool   `json:"duplicate"`
}

// Receive POST /v1/webhooks/:gateway/:tenantId
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return domain.ErrTenantNotFound
	}

	// fasthttp reuses the request buffer after the handler returns.
	body := append([]byte(nil), c.Body()...)

	// The coordinator decides between unknown tenant and unknown gateway.
	name := c.Params("gateway")
	res, err := h.intake.Handle(c.UserContext(), intake.Request{
		TenantID:  tenantID,
		Gateway:   name,
		RawBody:   body,
		Signature: h.signature(c, name),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(WebhookResponse{
		OK:           true,
		WebhookRawID: res.WebhookRawID.String(),
		ConversionID: res.ConversionID.String(),
		EventID:      res.EventID,
		Duplicate:    res.Duplicate,
	})
}

func (h *WebhookHandler) signature(c *fiber.Ctx, name string) string {
	gw, ok := domain.ParseGateway(name)
	if !ok {
		return ""
	}
	adapter, err := h.adapters.Lookup(gw)
	if err != nil {
		return ""
	}
	return c.Get(adapter.SignatureHeader())
}
