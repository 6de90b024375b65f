// internal/service/pricing/pricing_service.go
package pricing

import (
	"context"
	"fmt"

	"wellnest-service/internal/domain/entitlement"
	"wellnest-service/internal/domain/expert"
	"wellnest-service/internal/domain/subscription"
	xerrors "wellnest-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// CycleSource looks up a subscriber's active subscription cycle.
// Implementations return xerrors.ErrNotFound when no cycle is active.
type CycleSource interface {
	FindActiveBySubscriber(ctx context.Context, subscriberID int64) (*subscription.ActiveCycle, error)
}

// RateSource looks up an expert's rate card.
type RateSource interface {
	FindByID(ctx context.Context, id int64) (*expert.Expert, error)
}

// UsageReader reads a quota counter without consuming from it.
type UsageReader interface {
	GetOrInit(ctx context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string) (*entitlement.Usage, error)
}

// Quote is a price preview. It reserves nothing: the booking service
// re-derives the price at creation time and never trusts a client-held quote.
type Quote struct {
	IsFree        bool   `json:"is_free"`
	OriginalPrice int64  `json:"original_price"`
	FinalPrice    int64  `json:"final_price"`
	Message       string `json:"message"`

	// Cycle carries the entitlement scope the quote was derived from, for
	// the booking service's consume step. Not part of the API payload.
	Cycle *subscription.ActiveCycle `json:"-"`
}

type PricingService struct {
	cycles  CycleSource
	experts RateSource
	usage   UsageReader
	logger  *zap.Logger
}

func NewPricingService(cycles CycleSource, experts RateSource, usage UsageReader, logger *zap.Logger) *PricingService {
	return &PricingService{
		cycles:  cycles,
		experts: experts,
		usage:   usage,
		logger:  logger,
	}
}

// Quote decides whether a session with the expert would be free for the
// subscriber right now. Read-only: safe to call any number of times.
func (s *PricingService) Quote(ctx context.Context, subscriberID, expertID int64) (*Quote, error) {
	exp, err := s.experts.FindByID(ctx, expertID)
	if err != nil {
		return nil, xerrors.Wrap(err, "expert lookup failed")
	}

	q := &Quote{
		OriginalPrice: exp.HourlyRate,
		FinalPrice:    exp.HourlyRate,
		Message:       "standard rate applies",
	}

	cycle, err := s.cycles.FindActiveBySubscriber(ctx, subscriberID)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		q.Message = "no active subscription: standard rate applies"
		return q, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "cycle lookup failed")
	}

	q.Cycle = cycle
	if !cycle.GrantsFreeSessions || cycle.FreeSessionsPerCycle <= 0 {
		q.Message = fmt.Sprintf("plan %q does not include free sessions", cycle.PlanName)
		return q, nil
	}

	usage, err := s.usage.GetOrInit(ctx, subscriberID, entitlement.KindFreeSession, cycle.ScopeKey())
	if err != nil {
		return nil, xerrors.Wrap(err, "usage lookup failed")
	}

	if usage.UnitsConsumed >= cycle.FreeSessionsPerCycle {
		q.Message = fmt.Sprintf("free sessions exhausted for the current cycle (%d of %d used)",
			usage.UnitsConsumed, cycle.FreeSessionsPerCycle)
		return q, nil
	}

	q.IsFree = true
	q.FinalPrice = 0
	q.Message = fmt.Sprintf("free session available (%d of %d remaining this cycle)",
		cycle.FreeSessionsPerCycle-usage.UnitsConsumed, cycle.FreeSessionsPerCycle)

	return q, nil
}
