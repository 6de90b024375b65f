package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wellnest-service/internal/domain/booking"
	"wellnest-service/internal/domain/entitlement"
	"wellnest-service/internal/domain/expert"
	"wellnest-service/internal/domain/subscription"
	xerrors "wellnest-service/internal/pkg/errors"
	"wellnest-service/internal/service/pricing"
)

// fakeEntitlements mirrors the postgres store's contract: TryConsume is
// atomic per (subscriber, kind, scope), counters never reset within a scope.
type fakeEntitlements struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeEntitlements() *fakeEntitlements {
	return &fakeEntitlements{counts: make(map[string]int)}
}

func usageKey(subscriberID int64, kind entitlement.Kind, scopeKey string) string {
	return fmt.Sprintf("%d|%s|%s", subscriberID, kind, scopeKey)
}

func (f *fakeEntitlements) TryConsume(_ context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string, limit int) (bool, int, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if limit <= 0 {
		return false, 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := usageKey(subscriberID, kind, scopeKey)
	if f.counts[key] >= limit {
		return false, f.counts[key], nil
	}
	f.counts[key]++
	return true, f.counts[key], nil
}

func (f *fakeEntitlements) GetOrInit(_ context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string) (*entitlement.Usage, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return &entitlement.Usage{
		SubscriberID:  subscriberID,
		Kind:          kind,
		ScopeKey:      scopeKey,
		UnitsConsumed: f.counts[usageKey(subscriberID, kind, scopeKey)],
	}, nil
}

func (f *fakeEntitlements) used(subscriberID int64, kind entitlement.Kind, scopeKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[usageKey(subscriberID, kind, scopeKey)]
}

// fakeStore keeps bookings in memory with the same compare-and-set semantics
// the postgres repository implements.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*booking.Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[string]*booking.Booking)}
}

func (f *fakeStore) Create(_ context.Context, b *booking.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID int64) ([]*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*booking.Booking
	for _, b := range f.bookings {
		if b.RequesterID == userID || b.ExpertID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedTime.After(out[j].RequestedTime)
	})
	return out, nil
}

func (f *fakeStore) FindStalePending(_ context.Context, cutoff time.Time) ([]*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*booking.Booking
	for _, b := range f.bookings {
		if b.Status == booking.StatusPending && b.CreatedAt.Before(cutoff) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, from, to booking.Status, meetingLink *string) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if b.Status != from {
		return nil, xerrors.ErrInvalidStateTransition
	}

	b.Status = to
	if meetingLink != nil {
		b.MeetingLink.String = *meetingLink
		b.MeetingLink.Valid = true
	}
	b.UpdatedAt = time.Now()

	cp := *b
	return &cp, nil
}

// setCreatedAt backdates a stored booking, for grace-window tests.
func (f *fakeStore) setCreatedAt(id string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		b.CreatedAt = at
	}
}

func (f *fakeStore) get(id string) *booking.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

// fakeCycles serves one active cycle, or ErrNotFound.
type fakeCycles struct {
	cycle *subscription.ActiveCycle
	err   error
}

func (f *fakeCycles) FindActiveBySubscriber(context.Context, int64) (*subscription.ActiveCycle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cycle == nil {
		return nil, xerrors.ErrNotFound
	}
	return f.cycle, nil
}

// fakeExperts serves a fixed rate card.
type fakeExperts struct {
	experts map[int64]*expert.Expert
}

func (f *fakeExperts) FindByID(_ context.Context, id int64) (*expert.Expert, error) {
	e, ok := f.experts[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

// stubQuoter returns a canned quote, for simulating a stale preview.
type stubQuoter struct {
	quote *pricing.Quote
	err   error
}

func (s *stubQuoter) Quote(context.Context, int64, int64) (*pricing.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}
