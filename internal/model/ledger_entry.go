package model

import "time"

// LedgerReason explains a credit movement.
type LedgerReason string

const (
	ReasonReservation LedgerReason = "reservation"
	ReasonReversal    LedgerReason = "reversal"
)

// LedgerEntry is an append-only audit row for one credit movement.  Delta
// is -1 for a consumption and +1 for a reversal.  Entries are written off
// the request path; a missing entry is an audit gap, never a correctness
// problem for the pool itself.
type LedgerEntry struct {
	ID             uint64       // credit_ledger.id
	PoolID         string       // credit_ledger.pool_id
	RequesterID    string       // credit_ledger.requester_id
	OrganizationID string       // credit_ledger.organization_id
	Delta          int          // credit_ledger.delta
	Reason         LedgerReason // credit_ledger.reason
	BookingID      *string      // credit_ledger.booking_id (nullable)
	CreatedAt      time.Time    // credit_ledger.created_at
}
