// Package engine coordinates recomputation of derived settlement state.
//
// The coordinator is the only stateful part of the settlement core. It
// owns a per-group cache of the latest Snapshot and guarantees that any
// expense mutation completes a full ledger-then-planner recomputation
// before the triggering call returns: a caller reading balances right
// after a save, edit or delete always sees them refreshed.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evenly-app/evenly/internal/calculator"
	"github.com/evenly-app/evenly/internal/metrics"
	"github.com/evenly-app/evenly/internal/models"
)

// Publisher receives every freshly computed snapshot. It stands in for
// the presentation layer; implementations must be fast since they run
// inside the mutation path.
type Publisher interface {
	Publish(ctx context.Context, snap *models.Snapshot)
}

// groupState serializes recomputation for one group. Two concurrent
// edits to the same group cannot interleave; different groups proceed
// independently.
type groupState struct {
	mu   sync.Mutex
	snap *models.Snapshot
}

// Coordinator recomputes and caches derived state per group.
type Coordinator struct {
	mu        sync.Mutex
	groups    map[string]*groupState
	publisher Publisher
}

// New creates a Coordinator. publisher may be nil if nobody subscribes.
func New(publisher Publisher) *Coordinator {
	return &Coordinator{
		groups:    make(map[string]*groupState),
		publisher: publisher,
	}
}

// ExpenseCreated recomputes the group's snapshot after an expense was
// created. expenses and settlements are the full current sets for the
// group, mutation already applied.
func (c *Coordinator) ExpenseCreated(ctx context.Context, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	return c.recompute(ctx, "created", group, expenses, settlements)
}

// ExpenseEdited recomputes the group's snapshot after an expense edit.
func (c *Coordinator) ExpenseEdited(ctx context.Context, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	return c.recompute(ctx, "edited", group, expenses, settlements)
}

// ExpenseDeleted recomputes the group's snapshot after an expense was
// removed. The deleted expense is simply absent from the set; no
// special-casing, recomputation is always full-set.
func (c *Coordinator) ExpenseDeleted(ctx context.Context, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	return c.recompute(ctx, "deleted", group, expenses, settlements)
}

// SettlementRecorded recomputes the group's snapshot after a settle-up
// payment was persisted.
func (c *Coordinator) SettlementRecorded(ctx context.Context, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	return c.recompute(ctx, "settled", group, expenses, settlements)
}

// SettlementRemoved recomputes the group's snapshot after a recorded
// payment was deleted.
func (c *Coordinator) SettlementRemoved(ctx context.Context, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	return c.recompute(ctx, "unsettled", group, expenses, settlements)
}

// Refresh recomputes without a mutation trigger, for read paths that
// have no cached snapshot yet and for roster changes that invalidate
// the cached one.
func (c *Coordinator) Refresh(ctx context.Context, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	return c.recompute(ctx, "view", group, expenses, settlements)
}

// Current returns the cached snapshot for the group, if any.
func (c *Coordinator) Current(groupID string) (*models.Snapshot, bool) {
	state := c.state(groupID)
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.snap == nil {
		return nil, false
	}
	return state.snap, true
}

// Drop evicts the group's cached state, typically after group deletion.
func (c *Coordinator) Drop(groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groups, groupID)
}

func (c *Coordinator) state(groupID string) *groupState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.groups[groupID]
	if !ok {
		state = &groupState{}
		c.groups[groupID] = state
	}
	return state
}

// recompute runs the ledger and the planner over the expense and
// settlement sets while holding the group's lock. On error the cached
// snapshot is left untouched so readers keep observing the last
// consistent state.
func (c *Coordinator) recompute(ctx context.Context, trigger string, group *models.Group, expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
	state := c.state(group.ID)
	state.mu.Lock()
	defer state.mu.Unlock()

	start := time.Now()
	metrics.RecomputeTotal.WithLabelValues(trigger).Inc()

	balances, err := calculator.ComputeBalances(group, expenses, settlements)
	if err != nil {
		metrics.RecomputeErrors.WithLabelValues(trigger).Inc()
		return nil, err
	}

	plan, err := calculator.ComputePlan(balances)
	if err != nil {
		metrics.RecomputeErrors.WithLabelValues(trigger).Inc()
		return nil, err
	}

	if err := calculator.VerifyPlan(balances, plan); err != nil {
		// A plan that fails replay is a logic defect, not bad input.
		metrics.RecomputeErrors.WithLabelValues(trigger).Inc()
		slog.Error("Recomputed plan failed replay verification",
			"group_id", group.ID,
			"trigger", trigger,
			"error", err,
		)
		return nil, err
	}

	snap := &models.Snapshot{
		GroupID:    group.ID,
		Balances:   balances,
		Plan:       plan,
		ComputedAt: time.Now().UnixNano(),
	}
	state.snap = snap

	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	metrics.PlanTransfers.Observe(float64(len(plan)))

	slog.Debug("Snapshot recomputed",
		"group_id", group.ID,
		"trigger", trigger,
		"expenses", len(expenses),
		"settlements", len(settlements),
		"transfers", len(plan),
	)

	if c.publisher != nil {
		c.publisher.Publish(ctx, snap)
	}
	return snap, nil
}
