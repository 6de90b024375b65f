// internal/repository/postgres/expert_repo.go
package postgres

import (
	"context"
	"errors"

	"wellnest-service/internal/domain/expert"
	xerrors "wellnest-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpertRepository reads the expert rate card. Profile management belongs to
// the provider directory service.
type ExpertRepository struct {
	db *pgxpool.Pool
}

func NewExpertRepository(db *pgxpool.Pool) *ExpertRepository {
	return &ExpertRepository{db: db}
}

// FindByID retrieves an expert by id.
func (r *ExpertRepository) FindByID(ctx context.Context, id int64) (*expert.Expert, error) {
	query := `
		SELECT id, display_name, specialty, hourly_rate, status, created_at
		FROM experts
		WHERE id = $1`

	var e expert.Expert
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.DisplayName, &e.Specialty, &e.HourlyRate, &e.Status, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("failed to find expert", err)
	}

	return &e, nil
}
