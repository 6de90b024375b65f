// internal/service/recipe/recipe_service.go
package recipe

import (
	"context"
	"time"

	"wellnest-service/internal/domain/entitlement"
	xerrors "wellnest-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// UsageStore is the slice of the entitlement store the recipe gate needs.
type UsageStore interface {
	GetOrInit(ctx context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string) (*entitlement.Usage, error)
	TryConsume(ctx context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string, limit int) (bool, int, error)
}

// RecipeService gates free recipe views behind a daily cap. It is the second
// client of the entitlement store: same counter primitive as free sessions,
// scoped by calendar day instead of subscription cycle.
type RecipeService struct {
	usage      UsageStore
	dailyLimit int
	logger     *zap.Logger
	now        func() time.Time
}

func NewRecipeService(usage UsageStore, dailyLimit int, logger *zap.Logger) *RecipeService {
	return &RecipeService{
		usage:      usage,
		dailyLimit: dailyLimit,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterView consumes one free view for today and returns how many remain.
// Returns ErrQuotaExhausted when the daily cap is already spent.
func (s *RecipeService) RegisterView(ctx context.Context, subscriberID, recipeID int64) (int, error) {
	scope := entitlement.DayScope(s.now())

	consumed, used, err := s.usage.TryConsume(ctx, subscriberID, entitlement.KindRecipeView, scope, s.dailyLimit)
	if err != nil {
		return 0, xerrors.Wrap(err, "view consumption failed")
	}
	if !consumed {
		return 0, xerrors.Wrap(xerrors.ErrQuotaExhausted, "daily free view limit reached")
	}

	s.logger.Debug("recipe view registered",
		zap.Int64("subscriber_id", subscriberID),
		zap.Int64("recipe_id", recipeID),
		zap.String("day", scope),
		zap.Int("views_used", used),
	)

	return s.dailyLimit - used, nil
}

// RemainingViews reports today's remaining free views without consuming one.
func (s *RecipeService) RemainingViews(ctx context.Context, subscriberID int64) (int, error) {
	scope := entitlement.DayScope(s.now())

	u, err := s.usage.GetOrInit(ctx, subscriberID, entitlement.KindRecipeView, scope)
	if err != nil {
		return 0, xerrors.Wrap(err, "usage lookup failed")
	}

	remaining := s.dailyLimit - u.UnitsConsumed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
