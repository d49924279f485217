package model

import "time"

// BookingStatus is the lifecycle state of a booking.  Cancellation is
// handled outside the reservation workflow.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a confirmed occupation of one session slot by one member,
// optionally on behalf of a dependent.  At most one active booking exists
// per BookingKey; the bookings table enforces this with a unique index.
//
// Fields:
//  ID            – primary key (UUID), allocated before the credit is reserved.
//  RequesterID   – member who booked.
//  DependentID   – optional dependent the booking is for.
//  OfferingID    – offering (lesson/program) booked.
//  SessionMarker – the specific session slot within the offering.
//  PoolID        – credit pool that paid for the booking.
//  Status        – active or cancelled.
//  CreatedAt     – creation timestamp.
type Booking struct {
	ID            string        // bookings.id
	RequesterID   string        // bookings.requester_id
	DependentID   *string       // bookings.dependent_id ('' in the table when absent)
	OfferingID    string        // bookings.offering_id
	SessionMarker string        // bookings.session_marker
	PoolID        string        // bookings.pool_id
	Status        BookingStatus // bookings.status
	CreatedAt     time.Time     // bookings.created_at
}

// Key returns the uniqueness tuple of the booking.
func (b Booking) Key() BookingKey {
	return BookingKey{
		RequesterID:   b.RequesterID,
		DependentID:   b.DependentID,
		OfferingID:    b.OfferingID,
		SessionMarker: b.SessionMarker,
	}
}

// BookingKey identifies a slot occupation: (requester, dependent-or-null,
// offering, session marker).
type BookingKey struct {
	RequesterID   string
	DependentID   *string
	OfferingID    string
	SessionMarker string
}

// DependentColumn renders the nullable dependent as the non-null column
// value used by the unique index.
func (k BookingKey) DependentColumn() string {
	if k.DependentID == nil {
		return ""
	}
	return *k.DependentID
}
