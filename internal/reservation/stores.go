package reservation

import (
	"context"
	"time"

	"github.com/driesverstreepen/studio-reservations/internal/model"
	"github.com/driesverstreepen/studio-reservations/internal/queue"
)

// PoolStore is the credit pool side of the relational store.  Each method
// is one independent network call.
type PoolStore interface {
	ListCandidatePools(ctx context.Context, q model.PoolQuery) ([]model.CreditPool, error)
	// ConsumeCredit increments credits_used by one iff a credit is still
	// free, the pool is paid and unexpired at now, evaluated atomically on
	// the row.  It reports whether the row changed.
	ConsumeCredit(ctx context.Context, poolID string, now time.Time) (bool, error)
	// ReleaseCredit decrements credits_used by one unless it is already zero.
	ReleaseCredit(ctx context.Context, poolID string) (bool, error)
}

// BookingStore checks and creates bookings.  CreateBooking must fail with
// an error wrapping repository.ErrDuplicate when the slot is taken.
type BookingStore interface {
	HasActiveBooking(ctx context.Context, key model.BookingKey) (bool, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
}

// LedgerStore appends audit rows.
type LedgerStore interface {
	AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error
}

// Catalog exposes offering and session metadata.  GetOffering returns
// repository.ErrNotFound for unknown ids.
type Catalog interface {
	GetOffering(ctx context.Context, id string) (*model.Offering, error)
	SessionExists(ctx context.Context, offeringID, marker string) (bool, error)
	ListSessions(ctx context.Context, offeringID string) ([]model.Session, error)
}

// Dependents answers whether a dependent profile belongs to a member.
type Dependents interface {
	IsDependentOf(ctx context.Context, guardianID, dependentID string) (bool, error)
}

// Notifier delivers booking confirmations.  Delivery is best-effort.
type Notifier interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}
