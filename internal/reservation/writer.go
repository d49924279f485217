package reservation

import (
	"context"
	"fmt"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// BookingWriter persists the booking for a won reservation.  Any failure
// to do so hands the credit back before the error is returned.
type BookingWriter struct {
	bookings    BookingStore
	compensator *Compensator
}

func NewBookingWriter(bookings BookingStore, compensator *Compensator) *BookingWriter {
	return &BookingWriter{bookings: bookings, compensator: compensator}
}

func (w *BookingWriter) Write(ctx context.Context, res *Reservation, key model.BookingKey) (b *model.Booking, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("create booking: panic: %v", r)
		}
		if err != nil {
			b = nil
			w.compensator.Compensate(ctx, res)
		}
	}()

	b = &model.Booking{
		ID:            res.BookingID,
		RequesterID:   key.RequesterID,
		DependentID:   key.DependentID,
		OfferingID:    key.OfferingID,
		SessionMarker: key.SessionMarker,
		PoolID:        res.PoolID,
	}
	if err = w.bookings.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return b, nil
}
