// Package intake turns a signed gateway webhook into a persisted conversion.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/audit"
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/enqueue"
	"github.com/saturnino-fabrica-de-software/trackai/internal/gateway"
	"github.com/saturnino-fabrica-de-software/trackai/internal/matching"
	"github.com/saturnino-fabrica-de-software/trackai/internal/pii"
)

// Request is one webhook delivery as received.
type Request struct {
	TenantID  uuid.UUID
	Gateway   string
	RawBody   []byte
	Signature string
}

// Result identifies what the delivery produced.
type Result struct {
	WebhookRawID  uuid.UUID             `json:"webhook_raw_id"`
	ConversionID  uuid.UUID             `json:"conversion_id"`
	EventID       string                `json:"event_id"`
	Duplicate     bool                  `json:"duplicate"`
	MatchStrategy *domain.MatchStrategy `json:"match_strategy,omitempty"`
	EnqueueStatus *enqueue.Status       `json:"enqueue_status,omitempty"`
}

type TenantRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

type AdapterRegistry interface {
	Lookup(g domain.Gateway) (gateway.Adapter, error)
}

type GatewaySecretStore interface {
	GetSecret(ctx context.Context, tenantID uuid.UUID, gw domain.Gateway) (string, error)
}

type WebhookRawRepositoryInterface interface {
	Upsert(ctx context.Context, raw *domain.WebhookRaw) (bool, error)
}

type ConversionRepositoryInterface interface {
	Upsert(ctx context.Context, c *domain.Conversion) (bool, error)
}

type Matcher interface {
	MatchConversion(ctx context.Context, conv *domain.Conversion) (*matching.Result, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, tenantID, conversionID uuid.UUID) enqueue.Result
}

// Archiver is satisfied by *archive.S3Archiver.
type Archiver interface {
	Store(ctx context.Context, raw *domain.WebhookRaw) error
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Tenants     TenantRepositoryInterface
	Adapters    AdapterRegistry
	Secrets     GatewaySecretStore
	WebhookRaws WebhookRawRepositoryInterface
	Conversions ConversionRepositoryInterface
	// Matcher and Enqueuer are optional. Without a Matcher, matching is
	// left to a separate consumer.
	Matcher  Matcher
	Enqueuer Enqueuer
	Archive  Archiver
	Audit    audit.Logger
}

// Coordinator runs a delivery through verify, parse, store, match and enqueue.
type Coordinator struct {
	deps   Deps
	logger *slog.Logger
}

// NewCoordinator defaults Audit to a no-op logger.
func NewCoordinator(deps Deps, logger *slog.Logger) *Coordinator {
	if deps.Audit == nil {
		deps.Audit = &audit.NoOpLogger{}
	}
	return &Coordinator{deps: deps, logger: logger}
}

// Handle verifies, parses and stores one delivery. Redeliveries of the same
// event return the identifiers of the first one with Duplicate set.
func (c *Coordinator) Handle(ctx context.Context, req Request) (*Result, error) {
	tenant, err := c.deps.Tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, domain.ErrTenantInactive
	}

	gw, ok := domain.ParseGateway(req.Gateway)
	if !ok {
		return nil, domain.ErrUnsupportedGateway
	}
	adapter, err := c.deps.Adapters.Lookup(gw)
	if err != nil {
		return nil, domain.ErrUnsupportedGateway.WithError(err)
	}

	if err := c.verify(ctx, tenant.ID, adapter, req); err != nil {
		return nil, err
	}

	ev, err := adapter.Parse(req.RawBody)
	if err != nil {
		return nil, domain.ErrInvalidPayload.WithError(err)
	}

	raw := &domain.WebhookRaw{
		TenantID:       tenant.ID,
		Gateway:        gw,
		GatewayEventID: ev.EventID,
		EventType:      ev.EventType,
		Payload:        json.RawMessage(req.RawBody),
	}
	rawCreated, err := c.deps.WebhookRaws.Upsert(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("store webhook: %w", err)
	}
	if rawCreated {
		c.archive(ctx, raw)
	}

	conv := &domain.Conversion{
		TenantID:         tenant.ID,
		WebhookRawID:     raw.ID,
		HashedConversion: pii.Normalize(ev),
	}
	if _, err := c.deps.Conversions.Upsert(ctx, conv); err != nil {
		return nil, fmt.Errorf("store conversion: %w", err)
	}

	res := &Result{
		WebhookRawID:  raw.ID,
		ConversionID:  conv.ID,
		EventID:       ev.EventID,
		Duplicate:     !rawCreated,
		MatchStrategy: conv.MatchStrategy,
	}

	c.auditDelivery(ctx, conv, res.Duplicate)

	// A matched conversion has been through match and enqueue already.
	if conv.IsMatched() {
		return res, nil
	}

	if c.deps.Matcher != nil {
		m, err := c.deps.Matcher.MatchConversion(ctx, conv)
		if err != nil {
			c.logger.Error("inline matching failed",
				"tenant_id", tenant.ID,
				"conversion_id", conv.ID,
				"error", err,
			)
			return res, nil
		}
		res.MatchStrategy = &m.Strategy
	}

	if c.deps.Enqueuer != nil {
		er := c.deps.Enqueuer.Enqueue(ctx, tenant.ID, conv.ID)
		res.EnqueueStatus = &er.Status
	}

	return res, nil
}

func (c *Coordinator) verify(ctx context.Context, tenantID uuid.UUID, adapter gateway.Adapter, req Request) error {
	secret, err := c.deps.Secrets.GetSecret(ctx, tenantID, adapter.Gateway())
	if errors.Is(err, domain.ErrGatewaySecretNotFound) {
		c.rejected(ctx, tenantID, adapter.Gateway(), err)
		return domain.ErrInvalidSignature.WithError(err)
	}
	if err != nil {
		return fmt.Errorf("load gateway secret: %w", err)
	}

	if err := adapter.Verify(req.RawBody, req.Signature, secret); err != nil {
		c.rejected(ctx, tenantID, adapter.Gateway(), err)
		return domain.ErrInvalidSignature.WithError(err)
	}
	return nil
}

// archive failures are logged only; the row in webhook_raws is the source of truth.
func (c *Coordinator) archive(ctx context.Context, raw *domain.WebhookRaw) {
	if c.deps.Archive == nil {
		return
	}
	if err := c.deps.Archive.Store(ctx, raw); err != nil {
		c.logger.Error("failed to archive webhook",
			"tenant_id", raw.TenantID,
			"webhook_raw_id", raw.ID,
			"error", err,
		)
	}
}

func (c *Coordinator) rejected(ctx context.Context, tenantID uuid.UUID, gw domain.Gateway, cause error) {
	c.logger.Warn("webhook signature rejected",
		"tenant_id", tenantID,
		"gateway", gw,
		"error", cause,
	)
	_ = c.deps.Audit.Log(ctx, audit.Event{
		TenantID:  tenantID,
		EventType: audit.EventSignatureRejected,
		Gateway:   gw.String(),
		Success:   false,
		Error:     cause.Error(),
	})
}

func (c *Coordinator) auditDelivery(ctx context.Context, conv *domain.Conversion, duplicate bool) {
	typ := audit.EventWebhookAccepted
	if duplicate {
		typ = audit.EventWebhookDuplicate
	}
	convID := conv.ID
	_ = c.deps.Audit.Log(ctx, audit.Event{
		TenantID:     conv.TenantID,
		EventType:    typ,
		Gateway:      conv.Gateway.String(),
		EventID:      conv.GatewayEventID,
		ConversionID: &convID,
		Success:      true,
	})
}
