package model

import "time"

// PoolStatus is the payment state of a credit pool.  Only paid pools can
// be spent against.
type PoolStatus string

const (
	PoolPending PoolStatus = "pending"
	PoolPaid    PoolStatus = "paid"
	PoolVoid    PoolStatus = "void"
)

// CreditPool represents one purchased class pass: a bundle of credits owned
// by a member and scoped to the issuing organization, optionally restricted
// to a single product.  CreditsTotal is fixed once the purchase is
// confirmed; CreditsUsed only moves through the conditional consume and
// the floored release in the repository layer.  Rows are never deleted.
//
// Fields:
//  ID             – primary key (UUID).
//  OwnerID        – identity of the member who bought the pass.
//  OrganizationID – issuing studio.
//  ProductID      – optional product restriction (nil = any offering).
//  CreditsTotal   – credits purchased.
//  CreditsUsed    – credits consumed, 0 ≤ CreditsUsed ≤ CreditsTotal.
//  ExpiresAt      – nil means the pass never expires.
//  Status         – pending, paid or void.
//  CreatedAt      – purchase confirmation time; tie-breaker for ordering.
//  UpdatedAt      – last mutation.
type CreditPool struct {
	ID             string     // credit_pools.id
	OwnerID        string     // credit_pools.owner_id
	OrganizationID string     // credit_pools.organization_id
	ProductID      *string    // credit_pools.product_id (nullable)
	CreditsTotal   int        // credit_pools.credits_total
	CreditsUsed    int        // credit_pools.credits_used
	ExpiresAt      *time.Time // credit_pools.expires_at (nullable)
	Status         PoolStatus // credit_pools.status
	CreatedAt      time.Time  // credit_pools.created_at
	UpdatedAt      time.Time  // credit_pools.updated_at
}

// Remaining returns the number of unspent credits.
func (p CreditPool) Remaining() int {
	if r := p.CreditsTotal - p.CreditsUsed; r > 0 {
		return r
	}
	return 0
}

// HasCapacity reports whether at least one credit is left.
func (p CreditPool) HasCapacity() bool { return p.CreditsUsed < p.CreditsTotal }

// ExpiredAt reports whether the pool is past its expiry at now.  A pool
// expiring exactly at now is treated as expired.
func (p CreditPool) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// PoolQuery selects the pools a member may spend for one offering.
type PoolQuery struct {
	OwnerID        string
	OrganizationID string
	ProductID      *string // offering's required product; nil = no restriction
	Now            time.Time
}

// Matches applies the eligibility filter to a single pool.
func (q PoolQuery) Matches(p CreditPool) bool {
	if p.OwnerID != q.OwnerID || p.OrganizationID != q.OrganizationID {
		return false
	}
	if p.Status != PoolPaid || p.ExpiredAt(q.Now) {
		return false
	}
	if q.ProductID != nil {
		return p.ProductID != nil && *p.ProductID == *q.ProductID
	}
	return true
}
