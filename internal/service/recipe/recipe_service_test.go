package recipe

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wellnest-service/internal/domain/entitlement"
	xerrors "wellnest-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUsage implements UsageStore with the same atomic-consume and
// per-scope-row semantics as the postgres store.
type fakeUsage struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{counts: make(map[string]int)}
}

func key(subscriberID int64, kind entitlement.Kind, scopeKey string) string {
	return fmt.Sprintf("%d|%s|%s", subscriberID, kind, scopeKey)
}

func (f *fakeUsage) GetOrInit(_ context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string) (*entitlement.Usage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &entitlement.Usage{
		SubscriberID:  subscriberID,
		Kind:          kind,
		ScopeKey:      scopeKey,
		UnitsConsumed: f.counts[key(subscriberID, kind, scopeKey)],
	}, nil
}

func (f *fakeUsage) TryConsume(_ context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string, limit int) (bool, int, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if limit <= 0 {
		return false, 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(subscriberID, kind, scopeKey)
	if f.counts[k] >= limit {
		return false, f.counts[k], nil
	}
	f.counts[k]++
	return true, f.counts[k], nil
}

func newTestService(dailyLimit int) (*RecipeService, *fakeUsage) {
	usage := newFakeUsage()
	svc := NewRecipeService(usage, dailyLimit, zap.NewNop())
	return svc, usage
}

func TestRegisterView_CountsDownToZero(t *testing.T) {
	svc, _ := newTestService(3)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		remaining, err := svc.RegisterView(ctx, 7, 100)
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	_, err := svc.RegisterView(ctx, 7, 100)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrQuotaExhausted))
}

func TestRegisterView_ResetsOnNewDay(t *testing.T) {
	svc, usage := newTestService(2)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }

	_, err := svc.RegisterView(ctx, 7, 100)
	require.NoError(t, err)
	_, err = svc.RegisterView(ctx, 7, 101)
	require.NoError(t, err)
	_, err = svc.RegisterView(ctx, 7, 102)
	require.Error(t, err)

	// Next calendar day: a fresh scope, full quota again.
	svc.now = func() time.Time { return day1.Add(24 * time.Hour) }

	remaining, err := svc.RegisterView(ctx, 7, 103)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	// Yesterday's count is historical, not rewritten.
	assert.Equal(t, 2, usage.counts[key(7, entitlement.KindRecipeView, entitlement.DayScope(day1))])
}

func TestRemainingViews_DoesNotConsume(t *testing.T) {
	svc, _ := newTestService(5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		remaining, err := svc.RemainingViews(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 5, remaining)
	}

	_, err := svc.RegisterView(ctx, 7, 100)
	require.NoError(t, err)

	remaining, err := svc.RemainingViews(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}

func TestRegisterView_FailsClosedOnStorageError(t *testing.T) {
	svc, usage := newTestService(5)
	usage.err = xerrors.ErrStorageUnavailable

	_, err := svc.RegisterView(context.Background(), 7, 100)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrStorageUnavailable))
}

func TestRegisterView_ZeroLimitNeverGrants(t *testing.T) {
	svc, _ := newTestService(0)

	_, err := svc.RegisterView(context.Background(), 7, 100)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrQuotaExhausted))
}

func TestDayScope(t *testing.T) {
	at := time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-29", entitlement.DayScope(at))
	assert.Equal(t, "2026-08-30", entitlement.DayScope(at.Add(2*time.Minute)))
}
