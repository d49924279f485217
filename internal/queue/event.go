// Package queue defines the booking.confirmed message and the RabbitMQ
// publisher and consumer that carry it.
package queue

import "time"

// BookingConfirmedQueue is the durable queue confirmations are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once a booking has been written.  It
// carries enough for a notifier to address the member without reading the
// primary database.
type BookingConfirmedEvent struct {
	BookingID        string    `json:"booking_id"`
	RequesterID      string    `json:"requester_id"`
	DependentID      *string   `json:"dependent_id,omitempty"`
	OrganizationID   string    `json:"organization_id"`
	OfferingID       string    `json:"offering_id"`
	OfferingTitle    string    `json:"offering_title"`
	SessionMarker    string    `json:"session_marker"`
	PoolID           string    `json:"pool_id"`
	CreditsRemaining int       `json:"credits_remaining"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}
