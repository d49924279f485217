// Package reservation spends one prepaid credit on one session booking.
//
// The credit pool row is only ever changed by two single-statement writes:
// a conditional increment of credits_used that applies only while a credit
// is free, and a floored decrement used to hand a credit back when the
// booking insert fails.  No transaction spans the workflow.  Reads may be
// retried once on transient errors; writes are never replayed.
package reservation
