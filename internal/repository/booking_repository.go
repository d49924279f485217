package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// BookingRepo persists bookings.  The bookings table carries a unique
// index over (requester_id, dependent_id, offering_id, session_marker,
// active_slot) where active_slot is 1 for active rows and NULL otherwise,
// so only one active booking can exist per slot while cancelled rows are
// kept for history.  dependent_id is stored as '' when absent so the index
// also covers bookings made for the requester themselves.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// HasActiveBooking reports whether an active booking already occupies the
// slot identified by key.
func (r *BookingRepo) HasActiveBooking(ctx context.Context, key model.BookingKey) (bool, error) {
	const q = `SELECT EXISTS(
                   SELECT 1 FROM bookings
                   WHERE requester_id = ? AND dependent_id = ? AND offering_id = ?
                     AND session_marker = ? AND status = ?)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, key.RequesterID, key.DependentColumn(), key.OfferingID,
		key.SessionMarker, string(model.BookingActive)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active booking: %w", err)
	}
	return exists, nil
}

// CreateBooking inserts b as an active booking.  The ID must already be
// set.  A unique index violation is reported as ErrDuplicate.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Status = model.BookingActive
	const q = `INSERT INTO bookings (id, requester_id, dependent_id, offering_id, session_marker, pool_id, status, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.RequesterID, b.Key().DependentColumn(), b.OfferingID,
		b.SessionMarker, b.PoolID, string(b.Status), b.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("insert booking %s: %w", b.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert booking %s: %w", b.ID, err)
	}
	return nil
}
