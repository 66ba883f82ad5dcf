package calculator

import "errors"

// Calculation errors. All are synchronous and deterministic: retrying
// with the same input reproduces the same error, so callers must reject
// the triggering mutation instead of retrying.
var (
	// ErrEmptyParticipants is returned for an expense with no
	// participants.
	ErrEmptyParticipants = errors.New("expense has no participants")

	// ErrInvalidStrategy is returned when a split strategy cannot
	// produce shares: percentages that do not sum to 100%, exact
	// allocations that do not sum to the expense total, a non-positive
	// amount, an unknown kind, or duplicate participants.
	ErrInvalidStrategy = errors.New("invalid split strategy")

	// ErrNonMember is returned when an expense's payer, a participant,
	// or a settlement party is not a member of its group.
	ErrNonMember = errors.New("profile is not a group member")

	// ErrInvalidSettlement is returned for a recorded settlement with a
	// non-positive amount or identical payer and receiver.
	ErrInvalidSettlement = errors.New("invalid settlement")

	// ErrInvariantViolation indicates a logic defect: balances that do
	// not sum to zero or a plan that fails to resolve them. It is never
	// corrected silently.
	ErrInvariantViolation = errors.New("settlement invariant violated")
)
