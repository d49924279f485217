package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// DependentRepo answers ownership questions about dependent profiles
// (children or other people a member books for).
type DependentRepo struct{ DB *sql.DB }

func NewDependentRepo(db *sql.DB) *DependentRepo { return &DependentRepo{DB: db} }

// IsDependentOf reports whether dependentID is an active dependent of guardianID.
func (r *DependentRepo) IsDependentOf(ctx context.Context, guardianID, dependentID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM dependents WHERE id=? AND guardian_id=? AND is_active=1)",
		dependentID, guardianID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check dependent %s: %w", dependentID, err)
	}
	return exists, nil
}
