// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"

	"wellnest-service/internal/domain/subscription"
	xerrors "wellnest-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// SubscriptionCycleRepository is a read-only view over cycles and plans.
// Rows are written by the external subscription service; this service only
// asks "which cycle is active for this subscriber right now".
type SubscriptionCycleRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionCycleRepository(db *pgxpool.Pool) *SubscriptionCycleRepository {
	return &SubscriptionCycleRepository{db: db}
}

// FindActiveBySubscriber returns the subscriber's active cycle joined with
// the plan's entitlement fields, or ErrNotFound when no cycle is active.
func (r *SubscriptionCycleRepository) FindActiveBySubscriber(ctx context.Context, subscriberID int64) (*subscription.ActiveCycle, error) {
	query := `
		SELECT c.id, c.plan_id, p.name,
		       p.grants_free_sessions, p.free_sessions_per_cycle, p.features,
		       c.period_start, c.period_end
		FROM subscription_cycles c
		JOIN subscription_plans p ON p.id = c.plan_id
		WHERE c.subscriber_id = $1 AND c.status = $2 AND c.period_end > NOW()
		ORDER BY c.period_end DESC
		LIMIT 1`

	var cycle subscription.ActiveCycle
	var features []string

	err := r.db.QueryRow(ctx, query, subscriberID, subscription.StatusActive).Scan(
		&cycle.CycleID, &cycle.PlanID, &cycle.PlanName,
		&cycle.GrantsFreeSessions, &cycle.FreeSessionsPerCycle, pq.Array(&features),
		&cycle.PeriodStart, &cycle.PeriodEnd,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("failed to find active cycle", err)
	}

	cycle.Features = features
	return &cycle, nil
}
