// Package enqueue hands persisted conversions to the dispatch queue.
package enqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/queue"
)

type Status string

const (
	StatusEnqueued Status = "enqueued"
	StatusFailed   Status = "failed"
)

// Result is the outcome of one publish.
type Result struct {
	ConversionID uuid.UUID `json:"conversion_id"`
	MessageID    string    `json:"message_id,omitempty"`
	Status       Status    `json:"status"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	Error        string    `json:"error,omitempty"`
}

// Request names one conversion to enqueue.
type Request struct {
	TenantID     uuid.UUID
	ConversionID uuid.UUID
}

type ConversionRepositoryInterface interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversion, error)
	SetRequestPayload(ctx context.Context, tenantID, id uuid.UUID, payload json.RawMessage) error
	Stats(ctx context.Context, tenantID uuid.UUID) (*domain.EnqueueStats, error)
	ListUnsent(ctx context.Context, before time.Time, limit int) ([]domain.PendingConversion, error)
}

// Service publishes conversions to the CAPI queue.
type Service struct {
	conversions ConversionRepositoryInterface
	queue       queue.Queue
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new enqueue service
func NewService(conversions ConversionRepositoryInterface, q queue.Queue, logger *slog.Logger) *Service {
	return &Service{
		conversions: conversions,
		queue:       q,
		logger:      logger,
		now:         time.Now,
	}
}

// Enqueue publishes one conversion. It never returns an error: a failed
// publish is logged and reported as StatusFailed, and the conversion row is
// left untouched for a later re-enqueue.
func (s *Service) Enqueue(ctx context.Context, tenantID, conversionID uuid.UUID) Result {
	res := Result{ConversionID: conversionID}

	messageID, err := s.publish(ctx, tenantID, conversionID)
	res.EnqueuedAt = s.now()
	if err != nil {
		s.logger.Error("failed to enqueue conversion",
			"tenant_id", tenantID,
			"conversion_id", conversionID,
			"error", err,
		)
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}

	res.Status = StatusEnqueued
	res.MessageID = messageID
	return res
}

func (s *Service) publish(ctx context.Context, tenantID, conversionID uuid.UUID) (string, error) {
	conv, err := s.conversions.GetByID(ctx, tenantID, conversionID)
	if err != nil {
		return "", fmt.Errorf("load conversion: %w", err)
	}

	msg := queue.NewConversionMessage(conv)
	body, err := msg.Marshal()
	if err != nil {
		return "", err
	}

	messageID, err := s.queue.Send(ctx, queue.SendInput{
		Body:            body,
		DeduplicationID: conv.GatewayEventID,
		GroupID:         tenantID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	// Audit copy only; the message is already durable.
	if err := s.conversions.SetRequestPayload(ctx, tenantID, conversionID, json.RawMessage(body)); err != nil {
		s.logger.Warn("failed to store enqueued payload",
			"conversion_id", conversionID,
			"error", err,
		)
	}

	return messageID, nil
}

// EnqueueBatch enqueues concurrently; results keep the request order.
func (s *Service) EnqueueBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	for i, r := range reqs {
		wg.Add(1)
		go func(i int, r Request) {
			defer wg.Done()
			results[i] = s.Enqueue(ctx, r.TenantID, r.ConversionID)
		}(i, r)
	}
	wg.Wait()

	return results
}

// Sweep re-enqueues up to limit matched conversions older than minAge that
// never reached CAPI. Delivery is idempotent on event_id, so a conversion
// still in flight is safe to publish twice.
func (s *Service) Sweep(ctx context.Context, minAge time.Duration, limit int) ([]Result, error) {
	pending, err := s.conversions.ListUnsent(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return nil, fmt.Errorf("sweep unsent conversions: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	reqs := make([]Request, len(pending))
	for i, p := range pending {
		reqs[i] = Request{TenantID: p.TenantID, ConversionID: p.ID}
	}

	results := s.EnqueueBatch(ctx, reqs)

	var failed int
	for _, r := range results {
		if r.Status == StatusFailed {
			failed++
		}
	}
	s.logger.Info("swept unsent conversions",
		"found", len(pending),
		"failed", failed,
	)

	return results, nil
}

// Stats reports delivery progress for the tenant.
func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (*domain.EnqueueStats, error) {
	return s.conversions.Stats(ctx, tenantID)
}
