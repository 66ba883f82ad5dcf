package calculator

import (
	"fmt"

	"github.com/evenly-app/evenly/internal/models"
)

// ValidateExpense checks an expense against its group before any balance
// work happens: the payer and every participant must be group members,
// and the split strategy must yield shares. A failed validation leaves
// all derived state untouched, so callers reject the triggering mutation
// outright.
func ValidateExpense(group *models.Group, exp *models.Expense) error {
	if !exp.Split.Valid() {
		return fmt.Errorf("expense %s: unknown split kind %q: %w", exp.ID, exp.Split, ErrInvalidStrategy)
	}
	if !group.HasMember(exp.PayerID) {
		return fmt.Errorf("expense %s: payer %s: %w", exp.ID, exp.PayerID, ErrNonMember)
	}
	for _, p := range exp.Participants {
		if !group.HasMember(p) {
			return fmt.Errorf("expense %s: participant %s: %w", exp.ID, p, ErrNonMember)
		}
	}
	_, err := ComputeShares(exp)
	return err
}

// ValidateSettlement checks a recorded settle-up payment against its
// group: both parties must be members, distinct, and the amount
// positive.
func ValidateSettlement(group *models.Group, st *models.Settlement) error {
	if st.Amount <= 0 {
		return fmt.Errorf("settlement %s: amount must be positive, got %d: %w", st.ID, st.Amount, ErrInvalidSettlement)
	}
	if st.FromID == st.ToID {
		return fmt.Errorf("settlement %s: payer and receiver are both %s: %w", st.ID, st.FromID, ErrInvalidSettlement)
	}
	if !group.HasMember(st.FromID) {
		return fmt.Errorf("settlement %s: payer %s: %w", st.ID, st.FromID, ErrNonMember)
	}
	if !group.HasMember(st.ToID) {
		return fmt.Errorf("settlement %s: receiver %s: %w", st.ID, st.ToID, ErrNonMember)
	}
	return nil
}

// ComputeBalances folds the group's full expense and settlement sets
// into a net balance per member: the payer of each expense gains the
// advanced total, every participant loses their computed share, and
// each recorded settlement moves its amount from receiver to payer. A
// payer who also participates nets out to total minus their own share
// in the same pass.
//
// The result contains an entry for every group member, zero included,
// and always sums to exactly zero. Recomputation is deliberately
// full-set rather than incremental: group expense counts are small and a
// fold from the source of truth cannot drift.
func ComputeBalances(group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (map[string]int64, error) {
	balances := make(map[string]int64, len(group.Members))
	for _, m := range group.Members {
		balances[m] = 0
	}

	for _, exp := range expenses {
		if exp.GroupID != group.ID {
			return nil, fmt.Errorf("expense %s belongs to group %s, not %s: %w", exp.ID, exp.GroupID, group.ID, ErrNonMember)
		}
		if err := ValidateExpense(group, exp); err != nil {
			return nil, err
		}

		shares, err := ComputeShares(exp)
		if err != nil {
			return nil, err
		}

		balances[exp.PayerID] += exp.Amount
		for id, share := range shares {
			balances[id] -= share
		}
	}

	for _, st := range settlements {
		if st.GroupID != group.ID {
			return nil, fmt.Errorf("settlement %s belongs to group %s, not %s: %w", st.ID, st.GroupID, group.ID, ErrNonMember)
		}
		if err := ValidateSettlement(group, st); err != nil {
			return nil, err
		}

		// The debtor paid out of pocket, the creditor got repaid.
		balances[st.FromID] += st.Amount
		balances[st.ToID] -= st.Amount
	}

	// Defensive: the fold preserves zero-sum whenever ComputeShares
	// holds its exactness guarantee.
	var sum int64
	for _, b := range balances {
		sum += b
	}
	if sum != 0 {
		return nil, fmt.Errorf("group %s: balances sum to %d: %w", group.ID, sum, ErrInvariantViolation)
	}

	return balances, nil
}
