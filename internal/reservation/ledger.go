package reservation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/metrics"
	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// Recorder appends ledger entries off the request path.  Record never
// blocks and never fails the caller; entries that cannot be queued or
// written are logged and counted.
type Recorder struct {
	store   LedgerStore
	log     *zap.Logger
	timeout time.Duration

	entries chan model.LedgerEntry
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(store LedgerStore, log *zap.Logger, buffer int, timeout time.Duration) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer < 1 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	r := &Recorder{
		store:   store,
		log:     log.Named("ledger"),
		timeout: timeout,
		entries: make(chan model.LedgerEntry, buffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues e for writing.
func (r *Recorder) Record(e model.LedgerEntry) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(e, "recorder closed")
		return
	}
	select {
	case r.entries <- e:
	default:
		r.drop(e, "queue full")
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for e := range r.entries {
		r.append(e)
	}
}

func (r *Recorder) append(e model.LedgerEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.LedgerAppendFailures.Inc()
			r.log.Error("ledger append panicked", zap.Any("panic", rec), zap.String("pool_id", e.PoolID))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.AppendLedgerEntry(ctx, &e); err != nil {
		metrics.LedgerAppendFailures.Inc()
		r.log.Error("ledger append failed",
			zap.Error(err),
			zap.String("pool_id", e.PoolID),
			zap.Int("delta", e.Delta),
			zap.String("reason", string(e.Reason)),
		)
	}
}

func (r *Recorder) drop(e model.LedgerEntry, why string) {
	metrics.LedgerDropped.Inc()
	r.log.Warn("ledger entry dropped",
		zap.String("why", why),
		zap.String("pool_id", e.PoolID),
		zap.Int("delta", e.Delta),
		zap.String("reason", string(e.Reason)),
	)
}
