// Package matching attributes a conversion to the ad click that produced it.
//
// Precedence is fbc, then fbp, then unmatched. Only clicks created inside
// [now-72h, now] are eligible and the most recent one wins. Every decision
// is stored with a MatchLog; a conversion is matched at most once.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/audit"
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// ClickRepositoryInterface finds the newest click for an identifier inside a time range.
type ClickRepositoryInterface interface {
	FindLatestByFBC(ctx context.Context, tenantID uuid.UUID, fbc string, from, to time.Time) (*domain.Click, error)
	FindLatestByFBP(ctx context.Context, tenantID uuid.UUID, fbp string, from, to time.Time) (*domain.Click, error)
}

// ConversionRepositoryInterface loads conversions and records their match.
type ConversionRepositoryInterface interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversion, error)
	RecordMatch(ctx context.Context, log *domain.MatchLog) (bool, error)
}

type MatchLogRepositoryInterface interface {
	GetByConversion(ctx context.Context, tenantID, conversionID uuid.UUID) (*domain.MatchLog, error)
	Stats(ctx context.Context, tenantID uuid.UUID, since time.Time) (*domain.MatchStats, error)
}

// Result is the outcome of matching one conversion.
type Result struct {
	ConversionID   uuid.UUID            `json:"conversion_id"`
	MatchedClickID *uuid.UUID           `json:"matched_click_id,omitempty"`
	Strategy       domain.MatchStrategy `json:"match_strategy"`
	MatchLogID     uuid.UUID            `json:"match_log_id"`
	// AlreadyMatched is set when an earlier run decided this conversion.
	AlreadyMatched bool `json:"already_matched"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWindow overrides domain.MatchWindow.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

func WithAudit(l audit.Logger) Option {
	return func(e *Engine) { e.audit = l }
}

// Engine attributes conversions to clicks: fbc first, then fbp, else unmatched.
type Engine struct {
	clicks      ClickRepositoryInterface
	conversions ConversionRepositoryInterface
	logs        MatchLogRepositoryInterface
	logger      *slog.Logger
	audit       audit.Logger
	now         func() time.Time
	window      time.Duration
}

// NewEngine creates a matching engine with a 72h window unless overridden.
func NewEngine(
	clicks ClickRepositoryInterface,
	conversions ConversionRepositoryInterface,
	logs MatchLogRepositoryInterface,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		clicks:      clicks,
		conversions: conversions,
		logs:        logs,
		logger:      logger,
		audit:       &audit.NoOpLogger{},
		now:         time.Now,
		window:      domain.MatchWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match decides the conversion once. Later calls return the stored decision.
func (e *Engine) Match(ctx context.Context, tenantID, conversionID uuid.UUID) (*Result, error) {
	conv, err := e.conversions.GetByID(ctx, tenantID, conversionID)
	if err != nil {
		return nil, err
	}
	return e.MatchConversion(ctx, conv)
}

// MatchConversion runs the strategies for an already loaded conversion.
// A lookup error aborts without writing anything, so the conversion stays
// unmatched and can be retried.
func (e *Engine) MatchConversion(ctx context.Context, conv *domain.Conversion) (*Result, error) {
	if conv.IsMatched() {
		return e.existing(ctx, conv.TenantID, conv.ID)
	}

	start := e.now()
	log := &domain.MatchLog{
		ID:            uuid.New(),
		ConversionID:  conv.ID,
		TenantID:      conv.TenantID,
		FinalStrategy: domain.MatchStrategyUnmatched,
		WindowStart:   start.Add(-e.window),
		WindowEnd:     start,
	}

	if fbc := value(conv.FBC); fbc != "" {
		log.FBCAttempted = true
		click, err := e.clicks.FindLatestByFBC(ctx, conv.TenantID, fbc, log.WindowStart, log.WindowEnd)
		res, err := outcome(click, err)
		if err != nil {
			return nil, fmt.Errorf("match by fbc: %w", err)
		}
		log.FBCResult = &res
		if click != nil {
			log.FBCClickID = &click.ID
			log.FinalStrategy = domain.MatchStrategyFBC
			log.FinalClickID = &click.ID
		}
	}

	if log.FinalStrategy == domain.MatchStrategyUnmatched {
		if fbp := value(conv.FBP); fbp != "" {
			log.FBPAttempted = true
			click, err := e.clicks.FindLatestByFBP(ctx, conv.TenantID, fbp, log.WindowStart, log.WindowEnd)
			res, err := outcome(click, err)
			if err != nil {
				return nil, fmt.Errorf("match by fbp: %w", err)
			}
			log.FBPResult = &res
			if click != nil {
				log.FBPClickID = &click.ID
				log.FinalStrategy = domain.MatchStrategyFBP
				log.FinalClickID = &click.ID
			}
		}
	}

	log.ProcessingTimeMs = e.now().Sub(start).Milliseconds()

	applied, err := e.conversions.RecordMatch(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("record match: %w", err)
	}
	if !applied {
		// Lost a race with another matcher; its decision stands.
		return e.existing(ctx, conv.TenantID, conv.ID)
	}

	e.logger.Info("conversion matched",
		"tenant_id", conv.TenantID,
		"conversion_id", conv.ID,
		"strategy", log.FinalStrategy,
		"processing_ms", log.ProcessingTimeMs,
	)

	convID := conv.ID
	_ = e.audit.Log(ctx, audit.Event{
		TenantID:     conv.TenantID,
		EventType:    audit.EventConversionMatched,
		Gateway:      conv.Gateway.String(),
		EventID:      conv.GatewayEventID,
		ConversionID: &convID,
		Success:      true,
		Metadata:     map[string]string{"strategy": string(log.FinalStrategy)},
	})

	return &Result{
		ConversionID:   conv.ID,
		MatchedClickID: log.FinalClickID,
		Strategy:       log.FinalStrategy,
		MatchLogID:     log.ID,
	}, nil
}

// Stats reports the match rate per strategy since the given time.
func (e *Engine) Stats(ctx context.Context, tenantID uuid.UUID, since time.Time) (*domain.MatchStats, error) {
	return e.logs.Stats(ctx, tenantID, since)
}

func (e *Engine) existing(ctx context.Context, tenantID, conversionID uuid.UUID) (*Result, error) {
	ml, err := e.logs.GetByConversion(ctx, tenantID, conversionID)
	if err != nil {
		return nil, fmt.Errorf("load match log: %w", err)
	}
	return &Result{
		ConversionID:   conversionID,
		MatchedClickID: ml.FinalClickID,
		Strategy:       ml.FinalStrategy,
		MatchLogID:     ml.ID,
		AlreadyMatched: true,
	}, nil
}

func outcome(click *domain.Click, err error) (domain.StrategyResult, error) {
	if errors.Is(err, domain.ErrClickNotFound) {
		return domain.StrategyNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return domain.StrategyFound, nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
