package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// LedgerRepo appends rows to credit_ledger.  The table is insert-only.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a new LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// AppendLedgerEntry inserts e and populates its generated ID.
func (r *LedgerRepo) AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var bookingID sql.NullString
	if e.BookingID != nil {
		bookingID = sql.NullString{String: *e.BookingID, Valid: true}
	}
	const q = `INSERT INTO credit_ledger (pool_id, requester_id, organization_id, delta, reason, booking_id, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.PoolID, e.RequesterID, e.OrganizationID, e.Delta,
		string(e.Reason), bookingID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry for pool %s: %w", e.PoolID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append ledger entry for pool %s: %w", e.PoolID, err)
	}
	e.ID = uint64(id)
	return nil
}
