// internal/repository/postgres/entitlement_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"wellnest-service/internal/domain/entitlement"
	xerrors "wellnest-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementRepository persists quota counters keyed by
// (subscriber, kind, scope). One row per scope; rows are never deleted, so a
// rollover to a new scope key leaves the old count retrievable.
type EntitlementRepository struct {
	db *pgxpool.Pool
}

func NewEntitlementRepository(db *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

const usageColumns = `subscriber_id, kind, scope_key, units_consumed, last_reset_at, created_at, updated_at`

// GetOrInit returns the usage row for the scope, creating it with zero units
// on first access. Creation and read are one statement, so there is no window
// where a stale count from a previous scope can be observed.
func (r *EntitlementRepository) GetOrInit(ctx context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string) (*entitlement.Usage, error) {
	query := `
		INSERT INTO entitlement_usage (subscriber_id, kind, scope_key, units_consumed, last_reset_at)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (subscriber_id, kind, scope_key)
		DO UPDATE SET updated_at = NOW()
		RETURNING ` + usageColumns

	var u entitlement.Usage
	err := r.db.QueryRow(ctx, query, subscriberID, kind, scopeKey).Scan(
		&u.SubscriberID, &u.Kind, &u.ScopeKey, &u.UnitsConsumed,
		&u.LastResetAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, storageErr("failed to get usage", err)
	}

	return &u, nil
}

// TryConsume atomically increments the counter for the scope if and only if
// it is still below limit. The guard and the increment are a single statement;
// Postgres serializes concurrent callers on the row lock, so two callers can
// never both take the last unit.
func (r *EntitlementRepository) TryConsume(ctx context.Context, subscriberID int64, kind entitlement.Kind, scopeKey string, limit int) (bool, int, error) {
	if limit <= 0 {
		return false, 0, nil
	}

	query := `
		INSERT INTO entitlement_usage (subscriber_id, kind, scope_key, units_consumed, last_reset_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (subscriber_id, kind, scope_key)
		DO UPDATE SET units_consumed = entitlement_usage.units_consumed + 1, updated_at = NOW()
		WHERE entitlement_usage.units_consumed < $4
		RETURNING units_consumed`

	var units int
	err := r.db.QueryRow(ctx, query, subscriberID, kind, scopeKey, limit).Scan(&units)
	if errors.Is(err, pgx.ErrNoRows) {
		// Guard refused the increment: quota exhausted. Re-read for the
		// caller's benefit; the counter itself was not touched.
		u, gerr := r.GetOrInit(ctx, subscriberID, kind, scopeKey)
		if gerr != nil {
			return false, 0, gerr
		}
		return false, u.UnitsConsumed, nil
	}
	if err != nil {
		return false, 0, storageErr("failed to consume entitlement unit", err)
	}

	return true, units, nil
}

// storageErr tags a database failure so callers can fail closed on it.
func storageErr(msg string, err error) error {
	return fmt.Errorf("%s: %w: %v", msg, xerrors.ErrStorageUnavailable, err)
}
