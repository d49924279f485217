package reservation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/driesverstreepen/studio-reservations/internal/metrics"
	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// Reservation is one credit taken from a pool for one booking attempt.  It
// is the handle the compensator uses to give that exact credit back.
type Reservation struct {
	PoolID         string
	RequesterID    string
	OrganizationID string
	BookingID      string
	Amount         int
	ReservedAt     time.Time

	released atomic.Bool
}

// Released reports whether the credit has been handed back.
func (r *Reservation) Released() bool { return r.released.Load() }

// Coordinator performs the compare-and-swap decrement of a single pool.
type Coordinator struct {
	pools  PoolStore
	ledger *Recorder
	now    func() time.Time
}

func NewCoordinator(pools PoolStore, ledger *Recorder, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{pools: pools, ledger: ledger, now: now}
}

// Reserve issues exactly one conditional write against pool.ID.  A lost
// race returns ErrLostRace; callers retry by re-reading candidates, never
// by repeating the write.  Store errors are returned as-is: the write may
// or may not have been applied and must not be replayed.
func (c *Coordinator) Reserve(ctx context.Context, pool model.CreditPool, requesterID, bookingID string) (*Reservation, error) {
	now := c.now().UTC()
	won, err := c.pools.ConsumeCredit(ctx, pool.ID, now)
	if err != nil {
		return nil, fmt.Errorf("reserve credit: %w", err)
	}
	if !won {
		metrics.CASConflicts.Inc()
		return nil, ErrLostRace
	}
	res := &Reservation{
		PoolID:         pool.ID,
		RequesterID:    requesterID,
		OrganizationID: pool.OrganizationID,
		BookingID:      bookingID,
		Amount:         1,
		ReservedAt:     now,
	}
	c.ledger.Record(ledgerEntry(res, -res.Amount, model.ReasonReservation, now))
	return res, nil
}

func ledgerEntry(res *Reservation, delta int, reason model.LedgerReason, at time.Time) model.LedgerEntry {
	bookingID := res.BookingID
	return model.LedgerEntry{
		PoolID:         res.PoolID,
		RequesterID:    res.RequesterID,
		OrganizationID: res.OrganizationID,
		Delta:          delta,
		Reason:         reason,
		BookingID:      &bookingID,
		CreatedAt:      at,
	}
}
