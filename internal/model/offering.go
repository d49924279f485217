package model

import "time"

// Offering is the slice of a studio lesson/program the reservation
// workflow needs: who owns it, which product a pass must be for, and
// whether credits are accepted at all.
type Offering struct {
	ID                string  // offerings.id
	OrganizationID    string  // offerings.organization_id
	Title             string  // offerings.title
	RequiredProductID *string // offerings.required_product_id (nullable)
	AcceptsCredits    bool    // offerings.accepts_credits
}

// Session is one bookable slot of an offering, addressed by its marker
// (for example "2026-10-20T18:00").
type Session struct {
	OfferingID string    `json:"offering_id"`
	Marker     string    `json:"session_marker"`
	StartsAt   time.Time `json:"starts_at"`
}
