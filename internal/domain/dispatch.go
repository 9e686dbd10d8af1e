package domain

import (
	"time"

	"github.com/google/uuid"
)

type DispatchStatus string

const (
	DispatchSuccess DispatchStatus = "success"
	DispatchFailed  DispatchStatus = "failed"
)

// DispatchAttempt records one delivery attempt to the Conversions API.
// Attempt 0 marks a call rejected before reaching the network.
type DispatchAttempt struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	ConversionID *uuid.UUID     `json:"conversion_id,omitempty"`
	EventID      string         `json:"event_id"`
	Attempt      int            `json:"attempt"`
	Status       DispatchStatus `json:"status"`
	Error        *string        `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// PendingConversion identifies a matched conversion not yet delivered to CAPI.
type PendingConversion struct {
	TenantID uuid.UUID
	ID       uuid.UUID
}

// EnqueueStats summarizes CAPI delivery progress for a tenant.
type EnqueueStats struct {
	Total       int64   `json:"total"`
	SentToCAPI  int64   `json:"sent_to_capi"`
	Pending     int64   `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}
