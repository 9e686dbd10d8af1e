// Package dispatch drains the conversion queue into the Conversions API.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/audit"
	"github.com/saturnino-fabrica-de-software/trackai/internal/capi"
	"github.com/saturnino-fabrica-de-software/trackai/internal/circuitbreaker"
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/queue"
)

// ErrAlreadyRunning is returned by a second Start.
var ErrAlreadyRunning = errors.New("dispatch worker already running")

const dlqGroupID = "capi-dead-letter"

// MinVisibilityTimeout covers one CAPI call with all of its retries and
// backoff, so a message is never handed to a second worker mid-dispatch.
const MinVisibilityTimeout = 60 * time.Second

// Config tunes the polling loop. Zero values take DefaultConfig.
type Config struct {
	PollInterval      time.Duration
	MaxMessages       int32
	VisibilityTimeout time.Duration
	WaitTime          time.Duration
}

// DefaultConfig returns the polling defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Second,
		MaxMessages:       10,
		VisibilityTimeout: MinVisibilityTimeout,
		WaitTime:          10 * time.Second,
	}
}

type ConversionRepositoryInterface interface {
	GetByEventKey(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway, eventID string) (*domain.Conversion, error)
	MarkSent(ctx context.Context, tenantID, id uuid.UUID) error
}

type TenantRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// Sender is satisfied by *capi.Client.
type Sender interface {
	BuildPayload(pixelID string, conv *domain.Conversion) *capi.EventPayload
	ValidatePayload(p *capi.EventPayload) error
	SendEvent(ctx context.Context, tenantID, conversionID uuid.UUID, payload *capi.EventPayload) (*capi.Response, error)
}

// Breaker is satisfied by *circuitbreaker.Breaker.
type Breaker interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	State() circuitbreaker.State
}

// Deps are the collaborators of a Worker. Sink and Audit are optional.
type Deps struct {
	Queue       queue.Queue
	DLQ         queue.Queue
	Conversions ConversionRepositoryInterface
	Tenants     TenantRepositoryInterface
	Sender      Sender
	Attempts    capi.AttemptRecorder
	Breaker     Breaker
	Sink        MetricsSink
	Audit       audit.Logger
}

// Worker drains the CAPI queue and dead-letters exhausted messages.
type Worker struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	metrics Metrics

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWorker fills unset Config fields from DefaultConfig.
func NewWorker(cfg Config, deps Deps, logger *slog.Logger) *Worker {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.VisibilityTimeout < MinVisibilityTimeout {
		cfg.VisibilityTimeout = MinVisibilityTimeout
	}
	if cfg.WaitTime < 0 {
		cfg.WaitTime = def.WaitTime
	}
	if deps.Audit == nil {
		deps.Audit = &audit.NoOpLogger{}
	}

	return &Worker{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With("component", "dispatch_worker"),
		now:     time.Now,
		stopCh:  make(chan struct{}),
		metrics: Metrics{CircuitBreakerState: circuitbreaker.StateClosed},
	}
}

// Start polls until ctx is done or Stop is called. It blocks, and returns
// only after every in-flight message has been handled.
func (w *Worker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	// pollCtx aborts the long poll and the idle wait; message handling keeps
	// ctx so in-flight work is not cut off by Stop.
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-pollCtx.Done():
		}
	}()

	w.logger.Info("dispatch worker started",
		"max_messages", w.cfg.MaxMessages,
		"poll_interval", w.cfg.PollInterval,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-pollCtx.Done():
			w.logger.Info("dispatch worker stopped")
			return nil
		case <-timer.C:
			w.poll(pollCtx, ctx)
			timer.Reset(w.cfg.PollInterval)
		}
	}
}

// Stop is safe to call any number of times, before or after Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Metrics returns a snapshot of the worker counters.
func (w *Worker) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.metrics
	m.CircuitBreakerState = w.deps.Breaker.State()
	return m
}

func (w *Worker) CircuitBreakerState() circuitbreaker.State {
	return w.deps.Breaker.State()
}

func (w *Worker) poll(pollCtx, ctx context.Context) {
	msgs, err := w.deps.Queue.Receive(pollCtx, queue.ReceiveInput{
		MaxMessages:       w.cfg.MaxMessages,
		VisibilityTimeout: w.cfg.VisibilityTimeout,
		WaitTime:          w.cfg.WaitTime,
	})
	if err != nil {
		if pollCtx.Err() == nil {
			w.logger.Error("failed to receive messages", "error", err)
		}
		return
	}
	if len(msgs) == 0 {
		return
	}

	sem := make(chan struct{}, w.cfg.MaxMessages)
	var wg sync.WaitGroup
	for _, msg := range msgs {
		wg.Add(1)
		sem <- struct{}{}
		go func(msg queue.Message) {
			defer wg.Done()
			defer func() { <-sem }()
			w.processMessage(ctx, msg)
		}(msg)
	}
	wg.Wait()
}

// errAlreadySent acknowledges a redelivered message without a second send.
var errAlreadySent = errors.New("conversion already sent")

func (w *Worker) processMessage(ctx context.Context, msg queue.Message) {
	start := w.now()

	cm, err := w.dispatch(ctx, msg)
	switch {
	case err == nil:
		latency := w.now().Sub(start)
		w.mu.Lock()
		w.metrics.SuccessCount++
		w.metrics.TotalLatency += latency
		w.mu.Unlock()

		w.ack(ctx, msg)
		w.audit(ctx, cm, audit.EventConversionDispatched, nil)
		w.logger.Info("conversion dispatched",
			"message_id", msg.ID,
			"tenant_id", cm.TenantID,
			"event_id", cm.Conversion.GatewayEventID,
			"latency_ms", latency.Milliseconds(),
		)
	case errors.Is(err, errAlreadySent):
		w.ack(ctx, msg)
		w.logger.Info("conversion already sent, dropping message",
			"message_id", msg.ID,
			"event_id", cm.Conversion.GatewayEventID,
		)
	default:
		w.mu.Lock()
		w.metrics.FailureCount++
		w.mu.Unlock()

		w.logger.Error("failed to dispatch conversion", "message_id", msg.ID, "error", err)
		if w.deadLetter(ctx, msg) {
			w.audit(ctx, cm, audit.EventConversionDeadLetter, err)
		}
	}

	w.emit(ctx)
}

// dispatch returns the decoded message whenever decoding succeeded, so the
// caller can log and audit failures.
func (w *Worker) dispatch(ctx context.Context, msg queue.Message) (*queue.ConversionMessage, error) {
	cm, err := queue.DecodeConversionMessage(msg.Body)
	if err != nil {
		return nil, err
	}

	snap := cm.Conversion
	existing, err := w.deps.Conversions.GetByEventKey(ctx, cm.TenantID, snap.Gateway, snap.GatewayEventID)
	if err != nil {
		return cm, fmt.Errorf("load conversion: %w", err)
	}
	if existing.SentToCAPI {
		return cm, errAlreadySent
	}

	tenant, err := w.deps.Tenants.GetByID(ctx, cm.TenantID)
	if err != nil {
		return cm, fmt.Errorf("load tenant: %w", err)
	}

	payload := w.deps.Sender.BuildPayload(tenant.PixelID, cm.ToConversion())
	if err := w.deps.Sender.ValidatePayload(payload); err != nil {
		return cm, err
	}

	err = w.deps.Breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := w.deps.Sender.SendEvent(ctx, cm.TenantID, cm.ConversionID, payload)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		w.recordRejected(ctx, cm, err)
		return cm, err
	}
	if err != nil {
		return cm, err
	}

	if err := w.deps.Conversions.MarkSent(ctx, cm.TenantID, cm.ConversionID); err != nil {
		// Already accepted downstream; the platform dedups on event_id.
		w.logger.Error("failed to mark conversion sent",
			"conversion_id", cm.ConversionID,
			"error", err,
		)
	}

	return cm, nil
}

// recordRejected writes attempt 0: the call never left the process.
func (w *Worker) recordRejected(ctx context.Context, cm *queue.ConversionMessage, cause error) {
	if w.deps.Attempts == nil {
		return
	}
	msg := cause.Error()
	convID := cm.ConversionID
	err := w.deps.Attempts.Create(ctx, &domain.DispatchAttempt{
		TenantID:     cm.TenantID,
		ConversionID: &convID,
		EventID:      cm.Conversion.GatewayEventID,
		Attempt:      0,
		Status:       domain.DispatchFailed,
		Error:        &msg,
	})
	if err != nil {
		w.logger.Error("failed to record rejected dispatch", "conversion_id", convID, "error", err)
	}
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.deps.Queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete message", "message_id", msg.ID, "error", err)
	}
}

// deadLetter copies the message to the DLQ and then removes it from the
// primary queue. If the DLQ send fails the message stays and is redelivered
// after its visibility timeout.
func (w *Worker) deadLetter(ctx context.Context, msg queue.Message) bool {
	_, err := w.deps.DLQ.Send(ctx, queue.SendInput{
		Body:            msg.Body,
		DeduplicationID: msg.ID,
		GroupID:         dlqGroupID,
		Attributes:      map[string]string{queue.AttrOriginalMessageID: msg.ID},
	})
	if err != nil {
		w.logger.Error("failed to move message to dlq", "message_id", msg.ID, "error", err)
		return false
	}

	w.ack(ctx, msg)

	w.mu.Lock()
	w.metrics.DLQCount++
	w.mu.Unlock()

	w.logger.Warn("message moved to dlq", "message_id", msg.ID)
	return true
}

func (w *Worker) emit(ctx context.Context) {
	if w.deps.Sink == nil {
		return
	}
	if err := w.deps.Sink.Emit(ctx, w.Metrics()); err != nil {
		w.logger.Warn("failed to emit metrics", "error", err)
	}
}

func (w *Worker) audit(ctx context.Context, cm *queue.ConversionMessage, typ audit.EventType, cause error) {
	if cm == nil {
		return
	}
	convID := cm.ConversionID
	ev := audit.Event{
		TenantID:     cm.TenantID,
		EventType:    typ,
		Gateway:      cm.Conversion.Gateway.String(),
		EventID:      cm.Conversion.GatewayEventID,
		ConversionID: &convID,
		Success:      cause == nil,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	_ = w.deps.Audit.Log(ctx, ev)
}
