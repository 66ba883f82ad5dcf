// Package calculator implements the settlement engine core: share
// computation per expense, net balance aggregation per group, and greedy
// minimum-transfer settlement planning. Everything here is a pure
// function over int64 cent amounts; no I/O, no stored state.
package calculator

import (
	"fmt"
	"math"
	"sort"

	"github.com/evenly-app/evenly/internal/models"
)

// basisPointsTotal is the required sum of percentage allocations
// (hundredths of a percent).
const basisPointsTotal = 10_000

// maxPercentageAmount bounds amounts that can be scaled by basis points
// without the int64 product overflowing.
const maxPercentageAmount = math.MaxInt64 / basisPointsTotal

// ComputeShares computes each participant's owed portion of the expense
// in cents. The returned shares always sum to exactly exp.Amount;
// remainder cents from integer division are handed out one at a time in
// ascending profile-ID order, so identical input yields an identical
// split.
//
// The payer is not treated specially here: their own share (if they
// participate) nets out against the advanced total when balances are
// aggregated.
func ComputeShares(exp *models.Expense) (map[string]int64, error) {
	if len(exp.Participants) == 0 {
		return nil, fmt.Errorf("expense %s: %w", exp.ID, ErrEmptyParticipants)
	}
	if exp.Amount <= 0 {
		return nil, fmt.Errorf("expense %s: amount must be positive, got %d: %w", exp.ID, exp.Amount, ErrInvalidStrategy)
	}

	ordered, err := orderedParticipants(exp)
	if err != nil {
		return nil, err
	}

	switch exp.Split {
	case models.SplitEqual:
		return equalShares(exp.Amount, ordered), nil
	case models.SplitPercentage:
		return percentageShares(exp, ordered)
	case models.SplitExact:
		return exactShares(exp, ordered)
	default:
		return nil, fmt.Errorf("expense %s: unknown split kind %q: %w", exp.ID, exp.Split, ErrInvalidStrategy)
	}
}

// orderedParticipants returns the participant IDs sorted ascending,
// rejecting duplicates.
func orderedParticipants(exp *models.Expense) ([]string, error) {
	ordered := make([]string, len(exp.Participants))
	copy(ordered, exp.Participants)
	sort.Strings(ordered)
	for i := 1; i < len(ordered); i++ {
		if ordered[i] == ordered[i-1] {
			return nil, fmt.Errorf("expense %s: duplicate participant %s: %w", exp.ID, ordered[i], ErrInvalidStrategy)
		}
	}
	return ordered, nil
}

// equalShares divides total evenly. base = total/N floored; the first
// total%N participants in ascending ID order get one extra cent, so no
// participant receives more than one extra unit.
func equalShares(total int64, ordered []string) map[string]int64 {
	n := int64(len(ordered))
	base := total / n
	remainder := total - base*n

	shares := make(map[string]int64, len(ordered))
	for i, id := range ordered {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[id] = share
	}
	return shares
}

// percentageShares divides total by per-participant basis points. Each
// floor division loses less than one cent, so the remainder is at most
// len(ordered)-1 cents and the equal-split remainder rule applies.
func percentageShares(exp *models.Expense, ordered []string) (map[string]int64, error) {
	if exp.Amount > maxPercentageAmount {
		return nil, fmt.Errorf("expense %s: amount %d exceeds percentage-split maximum %d: %w", exp.ID, exp.Amount, int64(maxPercentageAmount), ErrInvalidStrategy)
	}

	var sum int64
	for _, id := range ordered {
		bp, ok := exp.Allocations[id]
		if !ok || bp <= 0 {
			return nil, fmt.Errorf("expense %s: participant %s has no positive percentage: %w", exp.ID, id, ErrInvalidStrategy)
		}
		sum += bp
	}
	if sum != basisPointsTotal {
		return nil, fmt.Errorf("expense %s: percentages sum to %d basis points, want %d: %w", exp.ID, sum, basisPointsTotal, ErrInvalidStrategy)
	}

	shares := make(map[string]int64, len(ordered))
	var distributed int64
	for _, id := range ordered {
		share := exp.Amount * exp.Allocations[id] / basisPointsTotal
		shares[id] = share
		distributed += share
	}

	remainder := exp.Amount - distributed
	for i := int64(0); i < remainder; i++ {
		shares[ordered[i]]++
	}
	return shares, nil
}

// exactShares uses the allocations verbatim after checking they cover
// every participant and sum to the expense total.
func exactShares(exp *models.Expense, ordered []string) (map[string]int64, error) {
	shares := make(map[string]int64, len(ordered))
	var sum int64
	for _, id := range ordered {
		amount, ok := exp.Allocations[id]
		if !ok || amount < 0 {
			return nil, fmt.Errorf("expense %s: participant %s has no valid exact amount: %w", exp.ID, id, ErrInvalidStrategy)
		}
		shares[id] = amount
		sum += amount
	}
	if sum != exp.Amount {
		return nil, fmt.Errorf("expense %s: exact shares sum to %d, want %d: %w", exp.ID, sum, exp.Amount, ErrInvalidStrategy)
	}
	return shares, nil
}
