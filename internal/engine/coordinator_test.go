package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/evenly-app/evenly/internal/calculator"
	"github.com/evenly-app/evenly/internal/models"
)

// recordingPublisher collects every published snapshot.
type recordingPublisher struct {
	mu    sync.Mutex
	snaps []*models.Snapshot
}

func (p *recordingPublisher) Publish(_ context.Context, snap *models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

func twoPersonGroup() *models.Group {
	return &models.Group{ID: "g1", Name: "Flat", Members: []string{"alice", "bob"}}
}

func equalExpense(id string, amount int64) *models.Expense {
	return &models.Expense{
		ID: id, GroupID: "g1", Amount: amount, PayerID: "alice",
		Split: models.SplitEqual, Participants: []string{"alice", "bob"},
	}
}

func TestCoordinator_CreateEditDelete(t *testing.T) {
	pub := &recordingPublisher{}
	coord := New(pub)
	group := twoPersonGroup()
	ctx := context.Background()

	// Create: 100.00 split 50/50, alice paid.
	snap, err := coord.ExpenseCreated(ctx, group, []*models.Expense{equalExpense("e1", 10000)}, nil)
	if err != nil {
		t.Fatalf("ExpenseCreated failed: %v", err)
	}
	if snap.Balances["alice"] != 5000 || snap.Balances["bob"] != -5000 {
		t.Errorf("balances after create = %v, want alice +5000, bob -5000", snap.Balances)
	}
	if len(snap.Plan) != 1 || snap.Plan[0].FromID != "bob" || snap.Plan[0].Amount != 5000 {
		t.Errorf("plan after create = %v, want [bob -> alice 5000]", snap.Plan)
	}

	// Edit: the same expense becomes 120.00; no stale 50.00 transfer
	// may survive.
	snap, err = coord.ExpenseEdited(ctx, group, []*models.Expense{equalExpense("e1", 12000)}, nil)
	if err != nil {
		t.Fatalf("ExpenseEdited failed: %v", err)
	}
	if snap.Balances["alice"] != 6000 || snap.Balances["bob"] != -6000 {
		t.Errorf("balances after edit = %v, want alice +6000, bob -6000", snap.Balances)
	}
	if len(snap.Plan) != 1 || snap.Plan[0].Amount != 6000 {
		t.Errorf("plan after edit = %v, want a single 6000 transfer", snap.Plan)
	}

	// Delete the only expense: balances reset, plan empties.
	snap, err = coord.ExpenseDeleted(ctx, group, nil, nil)
	if err != nil {
		t.Fatalf("ExpenseDeleted failed: %v", err)
	}
	for id, b := range snap.Balances {
		if b != 0 {
			t.Errorf("balance[%s] = %d after delete, want 0", id, b)
		}
	}
	if len(snap.Plan) != 0 {
		t.Errorf("plan after delete = %v, want empty", snap.Plan)
	}

	if pub.count() != 3 {
		t.Errorf("publisher saw %d snapshots, want 3", pub.count())
	}

	// The cache serves the latest snapshot.
	cached, ok := coord.Current("g1")
	if !ok {
		t.Fatal("Current() found no snapshot")
	}
	if cached.ComputedAt != snap.ComputedAt {
		t.Error("Current() returned a stale snapshot")
	}
}

func TestCoordinator_RejectionKeepsPriorSnapshot(t *testing.T) {
	coord := New(nil)
	group := twoPersonGroup()
	ctx := context.Background()

	good, err := coord.ExpenseCreated(ctx, group, []*models.Expense{equalExpense("e1", 10000)}, nil)
	if err != nil {
		t.Fatalf("ExpenseCreated failed: %v", err)
	}

	bad := &models.Expense{
		ID: "e2", GroupID: "g1", Amount: 5000, PayerID: "alice",
		Split: models.SplitPercentage, Participants: []string{"alice", "bob"},
		Allocations: map[string]int64{"alice": 9000, "bob": 2000},
	}
	_, err = coord.ExpenseCreated(ctx, group, []*models.Expense{equalExpense("e1", 10000), bad}, nil)
	if !errors.Is(err, calculator.ErrInvalidStrategy) {
		t.Fatalf("error = %v, want ErrInvalidStrategy", err)
	}

	cached, ok := coord.Current("g1")
	if !ok {
		t.Fatal("prior snapshot was evicted by a rejected mutation")
	}
	if cached.ComputedAt != good.ComputedAt {
		t.Error("rejected mutation replaced the cached snapshot")
	}
}

func TestCoordinator_SettleUpZeroesBalances(t *testing.T) {
	coord := New(nil)
	group := twoPersonGroup()
	ctx := context.Background()
	expenses := []*models.Expense{equalExpense("e1", 10000)}

	if _, err := coord.ExpenseCreated(ctx, group, expenses, nil); err != nil {
		t.Fatalf("ExpenseCreated failed: %v", err)
	}

	// Bob pays the suggested 50.00; everything zeroes out.
	paid := []*models.Settlement{{ID: "s1", GroupID: "g1", FromID: "bob", ToID: "alice", Amount: 5000}}
	snap, err := coord.SettlementRecorded(ctx, group, expenses, paid)
	if err != nil {
		t.Fatalf("SettlementRecorded failed: %v", err)
	}
	for id, b := range snap.Balances {
		if b != 0 {
			t.Errorf("balance[%s] = %d after settle-up, want 0", id, b)
		}
	}
	if len(snap.Plan) != 0 {
		t.Errorf("plan after settle-up = %v, want empty", snap.Plan)
	}

	// Removing the payment restores the original debt.
	snap, err = coord.SettlementRemoved(ctx, group, expenses, nil)
	if err != nil {
		t.Fatalf("SettlementRemoved failed: %v", err)
	}
	if snap.Balances["bob"] != -5000 {
		t.Errorf("balance[bob] = %d after removal, want -5000", snap.Balances["bob"])
	}
}

func TestCoordinator_Drop(t *testing.T) {
	coord := New(nil)
	group := twoPersonGroup()

	if _, err := coord.Refresh(context.Background(), group, nil, nil); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	coord.Drop("g1")
	if _, ok := coord.Current("g1"); ok {
		t.Error("Current() still finds a snapshot after Drop")
	}
}

// TestCoordinator_SerializedPerGroup hammers one group from many
// goroutines; every observed snapshot must be internally consistent
// (zero-sum balances, plan replaying to zero), never a mix of two edits.
func TestCoordinator_SerializedPerGroup(t *testing.T) {
	coord := New(nil)
	group := twoPersonGroup()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		amount := int64(1000 * (i + 1))
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := coord.ExpenseEdited(ctx, group, []*models.Expense{equalExpense("e1", amount)}, nil)
			if err != nil {
				t.Errorf("ExpenseEdited failed: %v", err)
				return
			}
			var sum int64
			for _, b := range snap.Balances {
				sum += b
			}
			if sum != 0 {
				t.Errorf("snapshot balances sum to %d", sum)
			}
			if err := calculator.VerifyPlan(snap.Balances, snap.Plan); err != nil {
				t.Errorf("snapshot plan inconsistent: %v", err)
			}
		}()
	}
	wg.Wait()
}
