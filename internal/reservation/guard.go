package reservation

import (
	"context"
	"fmt"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// DuplicateGuard is the advisory pre-check that keeps a credit from being
// spent on a request the booking insert would reject anyway.  The unique
// index on bookings stays the final authority.
type DuplicateGuard struct {
	bookings BookingStore
	read     readPolicy
}

func newDuplicateGuard(bookings BookingStore, read readPolicy) *DuplicateGuard {
	return &DuplicateGuard{bookings: bookings, read: read}
}

// AlreadyBooked reports whether an active booking exists for key.
func (g *DuplicateGuard) AlreadyBooked(ctx context.Context, key model.BookingKey) (bool, error) {
	var booked bool
	err := g.read.do(ctx, func(ctx context.Context) error {
		var err error
		booked, err = g.bookings.HasActiveBooking(ctx, key)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return booked, nil
}
