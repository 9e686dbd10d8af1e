package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchStrategy is the rule that linked a conversion to a click.
type MatchStrategy string

const (
	MatchStrategyFBC       MatchStrategy = "fbc"
	MatchStrategyFBP       MatchStrategy = "fbp"
	MatchStrategyUnmatched MatchStrategy = "unmatched"
)

func (s MatchStrategy) Valid() bool {
	switch s {
	case MatchStrategyFBC, MatchStrategyFBP, MatchStrategyUnmatched:
		return true
	}
	return false
}

// StrategyResult is the outcome of a single lookup attempt.
type StrategyResult string

const (
	StrategyFound    StrategyResult = "found"
	StrategyNotFound StrategyResult = "not_found"
)

// MatchWindow is how far back a click may be to be attributed.
const MatchWindow = 72 * time.Hour

// MatchLog is the append-only audit record of one matching decision.
// A nil result means the strategy was not attempted.
type MatchLog struct {
	ID           uuid.UUID `json:"id"`
	ConversionID uuid.UUID `json:"conversion_id"`
	TenantID     uuid.UUID `json:"tenant_id"`

	FBCAttempted bool            `json:"fbc_attempted"`
	FBCResult    *StrategyResult `json:"fbc_result,omitempty"`
	FBCClickID   *uuid.UUID      `json:"fbc_click_id,omitempty"`

	FBPAttempted bool            `json:"fbp_attempted"`
	FBPResult    *StrategyResult `json:"fbp_result,omitempty"`
	FBPClickID   *uuid.UUID      `json:"fbp_click_id,omitempty"`

	FinalStrategy MatchStrategy `json:"final_strategy"`
	FinalClickID  *uuid.UUID    `json:"final_click_id,omitempty"`

	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// StrategyCount is one row of a match-rate breakdown.
type StrategyCount struct {
	Strategy   MatchStrategy `json:"strategy"`
	Count      int64         `json:"count"`
	Percentage float64       `json:"percentage"`
}

// MatchStats summarizes match logs for a tenant since a point in time.
type MatchStats struct {
	Total      int64           `json:"total"`
	Matched    int64           `json:"matched"`
	MatchRate  float64         `json:"match_rate"`
	ByStrategy []StrategyCount `json:"by_strategy"`
}
