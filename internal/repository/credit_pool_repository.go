package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// CreditPoolRepo reads and mutates credit_pools.  credits_used is only
// ever written by ConsumeCredit and ReleaseCredit, each a single
// conditional UPDATE whose guard is evaluated by MySQL on the row itself.
type CreditPoolRepo struct {
	db *sql.DB
}

// NewCreditPoolRepo returns a new CreditPoolRepo bound to the given database.
func NewCreditPoolRepo(db *sql.DB) *CreditPoolRepo { return &CreditPoolRepo{db: db} }

const poolColumns = `id, owner_id, organization_id, product_id, credits_total, credits_used, expires_at, status, created_at, updated_at`

// ListCandidatePools returns the paid, unexpired pools of the owner within
// the organization, restricted to the product when q.ProductID is set.
// Pools are ordered soonest expiry first with never-expiring pools last,
// then oldest first.  Full pools are included; picking one with capacity
// is the caller's job.
func (r *CreditPoolRepo) ListCandidatePools(ctx context.Context, q model.PoolQuery) ([]model.CreditPool, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + poolColumns + `
                    FROM credit_pools
                    WHERE owner_id = ? AND organization_id = ? AND status = ?
                      AND (expires_at IS NULL OR expires_at > ?)`)
	args := []interface{}{q.OwnerID, q.OrganizationID, string(model.PoolPaid), q.Now.UTC()}
	if q.ProductID != nil {
		sb.WriteString(` AND product_id = ?`)
		args = append(args, *q.ProductID)
	}
	sb.WriteString(` ORDER BY expires_at IS NULL, expires_at ASC, created_at ASC, id ASC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list candidate pools: %w", err)
	}
	defer rows.Close()
	var pools []model.CreditPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit pool: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidate pools: %w", err)
	}
	return pools, nil
}

// ConsumeCredit is the compare-and-swap: it increments credits_used by one
// only if the stored row still has a free credit, is paid and has not
// expired at now.  The guard and the increment are one statement, so the
// affected-row count is the CAS result: true means this caller won the
// credit, false means another request took it first or the pool was voided.
func (r *CreditPoolRepo) ConsumeCredit(ctx context.Context, poolID string, now time.Time) (bool, error) {
	const q = `UPDATE credit_pools
               SET credits_used = credits_used + 1, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = ? AND credits_used + 1 <= credits_total
                 AND (expires_at IS NULL OR expires_at > ?)`
	res, err := r.db.ExecContext(ctx, q, poolID, string(model.PoolPaid), now.UTC())
	if err != nil {
		return false, fmt.Errorf("consume credit on pool %s: %w", poolID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume credit on pool %s: %w", poolID, err)
	}
	return n == 1, nil
}

// ReleaseCredit gives one credit back to the pool.  It carries no
// capacity guard, only a floor so a repeated call can never push
// credits_used below zero.  false means the floor stopped the write.
func (r *CreditPoolRepo) ReleaseCredit(ctx context.Context, poolID string) (bool, error) {
	const q = `UPDATE credit_pools
               SET credits_used = credits_used - 1, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND credits_used >= 1`
	res, err := r.db.ExecContext(ctx, q, poolID)
	if err != nil {
		return false, fmt.Errorf("release credit on pool %s: %w", poolID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release credit on pool %s: %w", poolID, err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPool(s rowScanner) (model.CreditPool, error) {
	var (
		p         model.CreditPool
		productID sql.NullString
		expiresAt sql.NullTime
		status    string
	)
	if err := s.Scan(&p.ID, &p.OwnerID, &p.OrganizationID, &productID, &p.CreditsTotal,
		&p.CreditsUsed, &expiresAt, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.CreditPool{}, err
	}
	if productID.Valid {
		pid := productID.String
		p.ProductID = &pid
	}
	if expiresAt.Valid {
		exp := expiresAt.Time.UTC()
		p.ExpiresAt = &exp
	}
	p.Status = model.PoolStatus(status)
	return p, nil
}
