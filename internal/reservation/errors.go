package reservation

import "errors"

// Request validation failures.  All of them are returned before any
// state-changing call is made.
var (
	ErrInvalidRequest       = errors.New("invalid reservation request")
	ErrOfferingNotFound     = errors.New("offering not found")
	ErrCreditsNotAccepted   = errors.New("offering does not accept credit bookings")
	ErrUnknownSession       = errors.New("session marker is not part of the offering")
	ErrOrganizationMismatch = errors.New("offering belongs to another organization")
	ErrDependentNotOwned    = errors.New("dependent does not belong to requester")
)

// ErrLostRace is returned by the coordinator when the conditional write
// affected no row: the last credit went to a concurrent request or the
// pool stopped being eligible between read and write.
var ErrLostRace = errors.New("credit pool changed before reservation")
