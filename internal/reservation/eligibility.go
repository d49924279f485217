package reservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// Resolver finds the credit pools a member may spend for an offering.
type Resolver struct {
	pools PoolStore
	read  readPolicy
}

func newResolver(pools PoolStore, read readPolicy) *Resolver {
	return &Resolver{pools: pools, read: read}
}

// Candidates returns the eligible pools for q in spending order: soonest
// expiry first, never-expiring pools after all expiring ones, ties broken
// by creation time (oldest first).  Pools without remaining credits are
// kept; SelectPool skips them.  The store is expected to filter and order
// already, the resolver re-applies both so the contract does not depend
// on the SQL.
func (r *Resolver) Candidates(ctx context.Context, q model.PoolQuery) ([]model.CreditPool, error) {
	var pools []model.CreditPool
	err := r.read.do(ctx, func(ctx context.Context) error {
		var err error
		pools, err = r.pools.ListCandidatePools(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve eligible pools: %w", err)
	}
	out := pools[:0]
	for _, p := range pools {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	sortCandidates(out)
	return out, nil
}

// SelectPool returns the first candidate with a free credit that has not
// already lost a race in this request.
func SelectPool(candidates []model.CreditPool, skip map[string]bool) (model.CreditPool, bool) {
	for _, p := range candidates {
		if skip[p.ID] || !p.HasCapacity() {
			continue
		}
		return p, true
	}
	return model.CreditPool{}, false
}

func sortCandidates(pools []model.CreditPool) {
	sort.SliceStable(pools, func(i, j int) bool { return spendsBefore(pools[i], pools[j]) })
}

func spendsBefore(a, b model.CreditPool) bool {
	switch {
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return true
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return false
	case a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ExpiresAt.Before(*b.ExpiresAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
