package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	conversionID := uuid.New()

	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantGateway   string
		wantHasError  bool
	}{
		{
			name: "webhook accepted",
			event: Event{
				TenantID:  uuid.New(),
				EventType: EventWebhookAccepted,
				Gateway:   "hotmart",
				EventID:   "HP-1",
				Success:   true,
			},
			wantEventType: string(EventWebhookAccepted),
			wantGateway:   "hotmart",
		},
		{
			name: "signature rejected",
			event: Event{
				TenantID:  uuid.New(),
				EventType: EventSignatureRejected,
				Gateway:   "stripe",
				Success:   false,
				Error:     "stale signature",
			},
			wantEventType: string(EventSignatureRejected),
			wantGateway:   "stripe",
			wantHasError:  true,
		},
		{
			name: "conversion matched",
			event: Event{
				TenantID:     uuid.New(),
				EventType:    EventConversionMatched,
				Gateway:      "kiwify",
				ConversionID: &conversionID,
				Success:      true,
				Metadata:     map[string]string{"strategy": "fbc"},
			},
			wantEventType: string(EventConversionMatched),
			wantGateway:   "kiwify",
		},
		{
			name: "dead lettered",
			event: Event{
				TenantID:  uuid.New(),
				EventType: EventConversionDeadLetter,
				Gateway:   "perfectpay",
				Success:   false,
				Error:     "conversions api dispatch failed",
			},
			wantEventType: string(EventConversionDeadLetter),
			wantGateway:   "perfectpay",
			wantHasError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			err := NewSlogLogger(logger).Log(context.Background(), tt.event)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, tt.wantEventType)
			assert.Contains(t, output, tt.wantGateway)
			assert.Contains(t, output, "audit_event")
			assert.Contains(t, output, `"component":"audit"`)

			if tt.wantHasError {
				assert.Contains(t, output, tt.event.Error)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := auditLogger.Log(context.Background(), Event{
		TenantID:  uuid.New(),
		EventType: EventWebhookAccepted,
		Success:   true,
	})
	require.NoError(t, err)

	var logEntry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &logEntry))

	eventID, ok := logEntry["event_id"].(string)
	assert.True(t, ok)
	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)

	var data Event
	require.NoError(t, json.Unmarshal([]byte(logEntry["event_data"].(string)), &data))
	assert.False(t, data.Timestamp.IsZero())
}

func TestSlogLogger_Log_UsesProvidedID(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	expectedID := uuid.New()

	err := auditLogger.Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		TenantID:  uuid.New(),
		EventType: EventConversionDispatched,
		Success:   true,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), expectedID.String())
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}
	for i := 0; i < 10; i++ {
		assert.NoError(t, logger.Log(context.Background(), Event{TenantID: uuid.New(), EventType: EventWebhookDuplicate}))
	}
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}

func TestEvent_JSONSerialization_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{
		TenantID:  uuid.MustParse("660e8400-e29b-41d4-a716-446655440001"),
		EventType: EventWebhookAccepted,
		Success:   true,
	})
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "gateway")
	assert.NotContains(t, jsonStr, "conversion_id")
	assert.NotContains(t, jsonStr, "error")
	assert.NotContains(t, jsonStr, "metadata")
}
