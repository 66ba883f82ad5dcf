package calculator

import (
	"fmt"

	"github.com/evenly-app/evenly/internal/models"
)

// ComputePlan computes the pairwise transfers that zero out the given
// balances using greedy debt minimization: repeatedly match the debtor
// owing the most against the creditor owed the most, transfer the
// smaller magnitude, and drop whichever party reaches zero. Ties are
// broken by ascending profile ID, so identical balances always produce
// an identical plan.
//
// The input must sum to zero. The plan contains at most one fewer
// transfers than there are non-zero balances; for exactly two non-zero
// balances it degenerates to a single transfer of the smaller magnitude.
func ComputePlan(balances map[string]int64) ([]models.Transfer, error) {
	working := make(map[string]int64, len(balances))
	var sum int64
	var open int
	for id, b := range balances {
		if b != 0 {
			working[id] = b
			open++
		}
		sum += b
	}
	if sum != 0 {
		return nil, fmt.Errorf("balances sum to %d, not zero: %w", sum, ErrInvariantViolation)
	}
	if open == 0 {
		return nil, nil
	}

	plan := make([]models.Transfer, 0, open-1)
	for len(working) > 0 {
		debtor, creditor := pickExtremes(working)
		if debtor == "" || creditor == "" {
			// Zero-sum input cannot leave only one side populated.
			return nil, fmt.Errorf("unmatched balances remain: %w", ErrInvariantViolation)
		}

		amount := -working[debtor]
		if working[creditor] < amount {
			amount = working[creditor]
		}

		plan = append(plan, models.Transfer{FromID: debtor, ToID: creditor, Amount: amount})

		working[debtor] += amount
		working[creditor] -= amount
		if working[debtor] == 0 {
			delete(working, debtor)
		}
		if working[creditor] == 0 {
			delete(working, creditor)
		}
	}

	return plan, nil
}

// pickExtremes scans the working balances for the largest debtor and the
// largest creditor, tie-breaking by ascending profile ID. Re-selecting
// every iteration (rather than walking pre-sorted lists) keeps the
// documented selection rule exact after partial reductions. Group sizes
// are small, so the quadratic scan is irrelevant.
func pickExtremes(working map[string]int64) (debtor, creditor string) {
	var owes, owed int64
	for id, b := range working {
		switch {
		case b < 0:
			if -b > owes || (-b == owes && (debtor == "" || id < debtor)) {
				owes = -b
				debtor = id
			}
		case b > 0:
			if b > owed || (b == owed && (creditor == "" || id < creditor)) {
				owed = b
				creditor = id
			}
		}
	}
	return debtor, creditor
}

// VerifyPlan replays the transfers against a copy of the balances and
// reports ErrInvariantViolation unless every balance reaches exactly
// zero. It is a defensive check for callers that want plan/balance
// consistency asserted rather than assumed.
func VerifyPlan(balances map[string]int64, plan []models.Transfer) error {
	replay := make(map[string]int64, len(balances))
	for id, b := range balances {
		replay[id] = b
	}
	for _, t := range plan {
		if t.Amount <= 0 {
			return fmt.Errorf("transfer %s -> %s has non-positive amount %d: %w", t.FromID, t.ToID, t.Amount, ErrInvariantViolation)
		}
		replay[t.FromID] += t.Amount
		replay[t.ToID] -= t.Amount
	}
	for id, b := range replay {
		if b != 0 {
			return fmt.Errorf("profile %s left with balance %d after replay: %w", id, b, ErrInvariantViolation)
		}
	}
	return nil
}
