package models

// SplitKind selects how an expense total is divided among participants.
type SplitKind string

const (
	// SplitEqual divides the total evenly, distributing any remainder
	// cents one at a time in ascending profile-ID order.
	SplitEqual SplitKind = "equal"

	// SplitPercentage divides the total by per-participant percentages
	// expressed in basis points (hundredths of a percent). Allocations
	// must sum to exactly 10000.
	SplitPercentage SplitKind = "percentage"

	// SplitExact uses per-participant cent amounts verbatim. Allocations
	// must sum to exactly the expense amount.
	SplitExact SplitKind = "exact"
)

// Valid reports whether k is one of the defined split kinds.
func (k SplitKind) Valid() bool {
	switch k {
	case SplitEqual, SplitPercentage, SplitExact:
		return true
	}
	return false
}

// Expense represents a single shared expense within a group.
//
// The expense is self-contained input for the split calculator: the
// strategy kind and its per-participant allocations travel with it.
// Editing or deleting an expense invalidates every derived value for its
// group; the coordinator recomputes from the full expense set.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is a short human-readable label (e.g. "Groceries").
	Description string

	// Amount is the total in minor currency units. Must be positive.
	Amount int64

	// PayerID is the profile that advanced the money. Must be a group
	// member; the payer may or may not be a participant.
	PayerID string

	// Split selects the division strategy.
	Split SplitKind

	// Participants is the ordered list of profile IDs sharing the
	// expense. Order is preserved for display; share math uses ascending
	// profile-ID order for deterministic remainder distribution.
	Participants []string

	// Allocations carries the per-participant strategy values, keyed by
	// profile ID: basis points for SplitPercentage, cents for SplitExact.
	// Empty for SplitEqual.
	Allocations map[string]int64

	// CreatedAt and UpdatedAt are Unix timestamps maintained by the
	// store.
	CreatedAt int64
	UpdatedAt int64
}
