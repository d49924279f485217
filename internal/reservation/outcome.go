package reservation

// Outcome is what the requester sees for a well-formed request.
type Outcome string

const (
	OutcomeBooked              Outcome = "booked"
	OutcomeInsufficientBalance Outcome = "insufficientBalance"
	OutcomeAlreadyBooked       Outcome = "alreadyBooked"
	OutcomeBookingFailed       Outcome = "bookingFailed"
)

// Result of a reserve-and-book attempt.  BookingID and PoolID are only set
// when the outcome is OutcomeBooked.
type Result struct {
	Outcome          Outcome
	BookingID        string
	PoolID           string
	CreditsRemaining int
}
