// internal/repository/postgres/booking_repo.go
package postgres

import (
	"context"
	"errors"
	"time"

	"wellnest-service/internal/domain/booking"
	xerrors "wellnest-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, requester_id, expert_id, requested_time,
	       original_price, final_price, is_free_session,
	       status, meeting_link, entitlement_scope, created_at, updated_at`

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID, &b.RequesterID, &b.ExpertID, &b.RequestedTime,
		&b.OriginalPrice, &b.FinalPrice, &b.IsFreeSession,
		&b.Status, &b.MeetingLink, &b.EntitlementScope, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persists a new booking. The caller sets everything except the
// storage timestamps.
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (
			id, requester_id, expert_id, requested_time,
			original_price, final_price, is_free_session,
			status, meeting_link, entitlement_scope
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		b.ID, b.RequesterID, b.ExpertID, b.RequestedTime,
		b.OriginalPrice, b.FinalPrice, b.IsFreeSession,
		b.Status, b.MeetingLink, b.EntitlementScope,
	).Scan(&b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return storageErr("failed to create booking", err)
	}

	return nil
}

// FindByID retrieves a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("failed to find booking", err)
	}

	return b, nil
}

// ListByUser returns every booking where the user is requester or expert,
// newest requested time first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE requester_id = $1 OR expert_id = $1
		ORDER BY requested_time DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, storageErr("failed to list bookings", err)
	}
	defer rows.Close()

	var out []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr("failed to scan booking", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to list bookings", err)
	}

	return out, nil
}

// FindStalePending returns pending bookings created before cutoff, oldest
// first. Used by the expiry sweeper.
func (r *BookingRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, booking.StatusPending, cutoff)
	if err != nil {
		return nil, storageErr("failed to query stale bookings", err)
	}
	defer rows.Close()

	var out []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr("failed to scan booking", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to query stale bookings", err)
	}

	return out, nil
}

// UpdateStatus moves a booking from one state to another as a single
// compare-and-set write. Concurrent transition attempts serialize here: only
// the write whose `from` state still matches wins; the loser gets
// ErrInvalidStateTransition (or ErrNotFound if the row is gone).
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to booking.Status, meetingLink *string) (*booking.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, meeting_link = COALESCE($4, meeting_link), updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns

	b, err := scanBooking(r.db.QueryRow(ctx, query, id, from, to, meetingLink))
	if errors.Is(err, pgx.ErrNoRows) {
		// The row either vanished or moved state underneath us.
		if _, ferr := r.FindByID(ctx, id); errors.Is(ferr, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, xerrors.ErrInvalidStateTransition
	}
	if err != nil {
		return nil, storageErr("failed to update booking status", err)
	}

	return b, nil
}
