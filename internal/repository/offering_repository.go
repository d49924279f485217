package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// OfferingRepo reads the scheduling metadata the reservation workflow
// depends on.  Offerings and sessions are maintained by the studio admin
// tooling; this repository never writes them.
type OfferingRepo struct {
	db *sql.DB
}

// NewOfferingRepo returns a new OfferingRepo bound to the given database.
func NewOfferingRepo(db *sql.DB) *OfferingRepo { return &OfferingRepo{db: db} }

// GetOffering returns the offering or ErrNotFound.
func (r *OfferingRepo) GetOffering(ctx context.Context, id string) (*model.Offering, error) {
	const q = `SELECT id, organization_id, title, required_product_id, accepts_credits
               FROM offerings WHERE id = ?`
	var (
		o        model.Offering
		required sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.OrganizationID, &o.Title, &required, &o.AcceptsCredits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get offering %s: %w", id, err)
	}
	if required.Valid {
		pid := required.String
		o.RequiredProductID = &pid
	}
	return &o, nil
}

// SessionExists reports whether marker is a session of the offering.
func (r *OfferingRepo) SessionExists(ctx context.Context, offeringID, marker string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM offering_sessions WHERE offering_id = ? AND session_marker = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, offeringID, marker).Scan(&exists); err != nil {
		return false, fmt.Errorf("check session %s/%s: %w", offeringID, marker, err)
	}
	return exists, nil
}

// ListSessions returns the sessions of an offering ordered by start time.
func (r *OfferingRepo) ListSessions(ctx context.Context, offeringID string) ([]model.Session, error) {
	const q = `SELECT offering_id, session_marker, starts_at
               FROM offering_sessions
               WHERE offering_id = ?
               ORDER BY starts_at ASC, session_marker ASC`
	rows, err := r.db.QueryContext(ctx, q, offeringID)
	if err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", offeringID, err)
	}
	defer rows.Close()
	sessions := []model.Session{}
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.OfferingID, &s.Marker, &s.StartsAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", offeringID, err)
	}
	return sessions, nil
}
