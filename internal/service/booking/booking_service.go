// internal/service/booking/booking_service.go
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wellnest-service/internal/domain/booking"
	"wellnest-service/internal/domain/entitlement"
	xerrors "wellnest-service/internal/pkg/errors"
	"wellnest-service/internal/service/pricing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// BookingStore persists booking records. UpdateStatus must be an atomic
// compare-and-set on (id, from-state).
type BookingStore interface {
	Create(ctx context.Context, b *booking.Booking) error
	FindByID(ctx context.Context, id string) (*booking.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]*booking.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to booking.Status, meetingLink *string) (*booking.Booking, error)
}

// EntitlementConsumer atomically takes one quota unit if any remain.
type EntitlementConsumer interface {
	TryConsume(ctx context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string, limit int) (consumed bool, unitsUsedAfter int, err error)
}

// Quoter derives the price of a session. The booking service always re-runs
// the quote server-side; a client-supplied price is never accepted.
type Quoter interface {
	Quote(ctx context.Context, subscriberID, expertID int64) (*pricing.Quote, error)
}

// Notifier pushes booking lifecycle events to connected parties. May be nil.
type Notifier interface {
	NotifyBookingEvent(b *booking.Booking, event string)
}

type BookingService struct {
	store        BookingStore
	entitlements EntitlementConsumer
	pricing      Quoter
	notifier     Notifier
	logger       *zap.Logger

	meetingLinkBase string
	now             func() time.Time
}

func NewBookingService(
	store BookingStore,
	entitlements EntitlementConsumer,
	quoter Quoter,
	notifier Notifier,
	meetingLinkBase string,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:           store,
		entitlements:    entitlements,
		pricing:         quoter,
		notifier:        notifier,
		meetingLinkBase: strings.TrimRight(meetingLinkBase, "/"),
		logger:          logger,
		now:             time.Now,
	}
}

// Create books a session with an expert. The price is re-derived here; if the
// quote says free, exactly one entitlement unit is consumed atomically. When
// the quota was exhausted between quote and create (a legitimate race), the
// booking is downgraded to the standard rate instead of failing.
func (s *BookingService) Create(ctx context.Context, requesterID int64, req *booking.CreateBookingRequest) (*booking.Booking, error) {
	if req.ExpertID == requesterID {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "cannot book a session with yourself")
	}

	quote, err := s.pricing.Quote(ctx, requesterID, req.ExpertID)
	if err != nil {
		return nil, err
	}

	b := &booking.Booking{
		ID:            ulid.Make().String(),
		RequesterID:   requesterID,
		ExpertID:      req.ExpertID,
		RequestedTime: req.RequestedTime,
		OriginalPrice: quote.OriginalPrice,
		FinalPrice:    quote.OriginalPrice,
		Status:        booking.StatusPending,
	}

	if quote.IsFree && quote.Cycle != nil {
		scope := quote.Cycle.ScopeKey()
		consumed, used, err := s.entitlements.TryConsume(
			ctx, requesterID, entitlement.KindFreeSession, scope, quote.Cycle.FreeSessionsPerCycle,
		)
		if err != nil {
			// Fail closed: without a durable consume we create nothing,
			// free or paid.
			return nil, xerrors.Wrap(err, "entitlement consumption failed")
		}

		if consumed {
			b.IsFreeSession = true
			b.FinalPrice = 0
			b.EntitlementScope.String = scope
			b.EntitlementScope.Valid = true
			s.logger.Info("free session entitlement consumed",
				zap.Int64("subscriber_id", requesterID),
				zap.String("scope", scope),
				zap.Int("units_used", used),
			)
		} else {
			// Lost the race for the last unit: bill at the standard rate.
			s.logger.Info("free quota exhausted between quote and create, billing at standard rate",
				zap.Int64("subscriber_id", requesterID),
				zap.String("scope", scope),
			)
		}
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	s.notify(b, "booking_created")
	return b, nil
}

// Transition moves a booking to the target state on behalf of actorID.
// Permission rules:
//   - confirm and complete: expert only
//   - cancel: expert or requester; the system actor may cancel pending
//     bookings (expiry sweep)
//
// Cancelling a free booking does not refund the consumed entitlement unit.
func (s *BookingService) Transition(ctx context.Context, bookingID string, actorID int64, target booking.Status) (*booking.Booking, error) {
	if !target.Valid() || target == booking.StatusPending {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid target state %q", target))
	}

	b, err := s.store.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !b.Status.CanTransitionTo(target) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidStateTransition,
			fmt.Sprintf("cannot move booking from %q to %q", b.Status, target))
	}

	if err := s.checkPermission(b, actorID, target); err != nil {
		return nil, err
	}

	var meetingLink *string
	if target == booking.StatusConfirmed {
		link := s.meetingLink(b.ID)
		meetingLink = &link
	}

	// The store re-checks the from-state as a compare-and-set; a concurrent
	// transition surfaces here as ErrInvalidStateTransition.
	updated, err := s.store.UpdateStatus(ctx, b.ID, b.Status, target, meetingLink)
	if err != nil {
		return nil, err
	}

	s.notify(updated, "booking_"+string(target))
	return updated, nil
}

func (s *BookingService) checkPermission(b *booking.Booking, actorID int64, target booking.Status) error {
	if actorID == booking.SystemActorID {
		// The sweeper may only reclaim pending bookings. A booking that
		// moved on since the stale query is a lost race, not a permission
		// problem.
		if target != booking.StatusCancelled {
			return xerrors.Wrap(xerrors.ErrForbidden, "system actor may only cancel bookings")
		}
		if b.Status != booking.StatusPending {
			return xerrors.Wrap(xerrors.ErrInvalidStateTransition, "booking is no longer pending")
		}
		return nil
	}

	switch target {
	case booking.StatusConfirmed, booking.StatusCompleted:
		if actorID != b.ExpertID {
			return xerrors.Wrap(xerrors.ErrForbidden, "only the expert may confirm or complete a booking")
		}
	case booking.StatusCancelled:
		if actorID != b.ExpertID && actorID != b.RequesterID {
			return xerrors.Wrap(xerrors.ErrForbidden, "only a booking party may cancel")
		}
	}

	return nil
}

// Get returns a booking, restricted to its two parties.
func (s *BookingService) Get(ctx context.Context, bookingID string, actorID int64) (*booking.Booking, error) {
	b, err := s.store.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, xerrors.Wrap(xerrors.ErrForbidden, "booking belongs to another user")
	}
	return b, nil
}

// ListByCounterpart returns the user's bookings (as requester or expert),
// newest requested time first.
func (s *BookingService) ListByCounterpart(ctx context.Context, userID int64) ([]*booking.Booking, error) {
	return s.store.ListByUser(ctx, userID)
}

// meetingLink derives the meeting reference deterministically from the
// booking id. Actual video-call token issuance is the call provider's job.
func (s *BookingService) meetingLink(bookingID string) string {
	return fmt.Sprintf("%s/session/%s", s.meetingLinkBase, strings.ToLower(bookingID))
}

func (s *BookingService) notify(b *booking.Booking, event string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyBookingEvent(b, event)
}
