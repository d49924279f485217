package reservation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/logger"
	"github.com/driesverstreepen/studio-reservations/internal/metrics"
	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// Compensator hands a reserved credit back after the booking write failed.
type Compensator struct {
	pools   PoolStore
	ledger  *Recorder
	timeout time.Duration
	now     func() time.Time
}

func NewCompensator(pools PoolStore, ledger *Recorder, timeout time.Duration, now func() time.Time) *Compensator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Compensator{pools: pools, ledger: ledger, timeout: timeout, now: now}
}

// Compensate releases res exactly once.  Later calls for the same
// reservation are no-ops, and the store write never takes credits_used
// below zero.  The release runs on a context detached from the caller so
// a cancelled request still gets its credit back.  It reports whether a
// credit was actually released.
func (c *Compensator) Compensate(ctx context.Context, res *Reservation) bool {
	log := logger.FromContext(ctx).With(
		zap.String("pool_id", res.PoolID),
		zap.String("booking_id", res.BookingID),
	)
	if !res.released.CompareAndSwap(false, true) {
		log.Debug("credit already released")
		return false
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	released, err := c.pools.ReleaseCredit(cctx, res.PoolID)
	if err != nil {
		metrics.Compensations.WithLabelValues("failed").Inc()
		log.Error("credit release failed, pool needs reconciliation", zap.Error(err))
		return false
	}
	if !released {
		metrics.Compensations.WithLabelValues("floor").Inc()
		log.Warn("credit release skipped, pool already at zero")
		return false
	}
	metrics.Compensations.WithLabelValues("released").Inc()
	log.Info("credit released after failed booking")
	c.ledger.Record(ledgerEntry(res, res.Amount, model.ReasonReversal, c.now().UTC()))
	return true
}
