package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventWebhookAccepted      EventType = "WEBHOOK_ACCEPTED"
	EventWebhookDuplicate     EventType = "WEBHOOK_DUPLICATE"
	EventSignatureRejected    EventType = "SIGNATURE_REJECTED"
	EventConversionMatched    EventType = "CONVERSION_MATCHED"
	EventConversionDispatched EventType = "CONVERSION_DISPATCHED"
	EventConversionDeadLetter EventType = "CONVERSION_DEAD_LETTERED"
)

// Event is an LGPD audit record of the pipeline. It never carries personal
// data, only identifiers and outcomes.
type Event struct {
	ID           uuid.UUID         `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	TenantID     uuid.UUID         `json:"tenant_id"`
	EventType    EventType         `json:"event_type"`
	Gateway      string            `json:"gateway,omitempty"`
	EventID      string            `json:"gateway_event_id,omitempty"`
	ConversionID *uuid.UUID        `json:"conversion_id,omitempty"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("tenant_id", event.TenantID.String()),
		slog.String("gateway", event.Gateway),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
