package models

// Settlement is a recorded settle-up payment between two group members.
// Unlike the derived plan, settlements are authoritative user actions:
// they are persisted alongside expenses and offset balances when the
// ledger is folded. Recording one moves the payer's balance up and the
// receiver's down by the paid amount.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromID is the profile that paid (debtor settling up).
	FromID string

	// ToID is the profile that received the payment.
	ToID string

	// Amount is the payment in minor currency units, always positive.
	Amount int64

	// Note is an optional description for the payment.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}

// Transfer represents one pairwise payment in a settlement plan:
// FromID must pay ToID the given amount to help zero out balances.
type Transfer struct {
	// FromID is the profile that owes (negative balance).
	FromID string

	// ToID is the profile that is owed (positive balance).
	ToID string

	// Amount is the payment in minor currency units, always positive.
	Amount int64
}

// Snapshot is the derived state the coordinator publishes for a group
// after every recomputation: net balances plus the settlement plan that
// resolves them.
//
// A snapshot is only valid against the expense and settlement sets it
// was computed from. It is cached, never persisted.
type Snapshot struct {
	// GroupID is the group this snapshot belongs to.
	GroupID string

	// Balances maps every group member to their net position in minor
	// currency units. Positive: the group owes them. Negative: they owe
	// the group. The values always sum to zero.
	Balances map[string]int64

	// Plan is the ordered list of transfers that settles Balances.
	// At most one fewer transfers than there are non-zero balances.
	Plan []Transfer

	// ComputedAt is the Unix timestamp (nanoseconds) of the
	// recomputation that produced this snapshot.
	ComputedAt int64
}
