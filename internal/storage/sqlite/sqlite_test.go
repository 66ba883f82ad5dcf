package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Profiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile := &models.Profile{Name: "Alice"}
	if err := store.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	if profile.ID == "" {
		t.Error("Expected profile ID to be generated")
	}
	if profile.CreatedAt == 0 {
		t.Error("Expected CreatedAt to be set")
	}

	got, err := store.GetProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", got.Name)
	}

	if _, err := store.GetProfile(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetProfile error = %v, want ErrNotFound", err)
	}

	store.CreateProfile(ctx, &models.Profile{Name: "Bob"})
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("got %d profiles, want 2", len(profiles))
	}
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Roommates", Members: []string{"alice", "bob"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID == "" {
		t.Error("Expected group ID to be generated")
	}

	t.Run("GetGroup preserves member order", func(t *testing.T) {
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !reflect.DeepEqual(got.Members, []string{"alice", "bob"}) {
			t.Errorf("Members = %v, want [alice bob]", got.Members)
		}
	})

	t.Run("AddGroupMembers skips existing", func(t *testing.T) {
		if err := store.AddGroupMembers(ctx, group.ID, []string{"bob", "carol"}); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !reflect.DeepEqual(got.Members, []string{"alice", "bob", "carol"}) {
			t.Errorf("Members = %v, want [alice bob carol]", got.Members)
		}
	})

	t.Run("UpdateGroup replaces members", func(t *testing.T) {
		group.Name = "Flat"
		group.Members = []string{"alice", "dave"}
		if err := store.UpdateGroup(ctx, group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		got, _ := store.GetGroup(ctx, group.ID)
		if got.Name != "Flat" || !reflect.DeepEqual(got.Members, []string{"alice", "dave"}) {
			t.Errorf("after update got %q %v", got.Name, got.Members)
		}
	})

	t.Run("DeleteGroup cascades", func(t *testing.T) {
		exp := &models.Expense{
			GroupID: group.ID, Description: "Rent", Amount: 100000,
			PayerID: "alice", Split: models.SplitEqual,
			Participants: []string{"alice", "dave"},
		}
		if err := store.CreateExpense(ctx, exp); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup error = %v, want ErrNotFound", err)
		}
		if _, err := store.GetExpense(ctx, exp.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetExpense error = %v, want ErrNotFound after cascade", err)
		}
	})

	t.Run("DeleteGroup on missing group", func(t *testing.T) {
		if err := store.DeleteGroup(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("DeleteGroup error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStore_Settlements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Flat", Members: []string{"alice", "bob"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	st := &models.Settlement{
		GroupID: group.ID, FromID: "bob", ToID: "alice",
		Amount: 5000, Note: "Venmo",
	}
	if err := store.CreateSettlement(ctx, st); err != nil {
		t.Fatalf("CreateSettlement failed: %v", err)
	}
	if st.ID == "" {
		t.Error("Expected settlement ID to be generated")
	}
	if st.CreatedAt == 0 {
		t.Error("Expected CreatedAt to be set")
	}

	t.Run("GetSettlement round-trips", func(t *testing.T) {
		got, err := store.GetSettlement(ctx, st.ID)
		if err != nil {
			t.Fatalf("GetSettlement failed: %v", err)
		}
		if got.FromID != "bob" || got.ToID != "alice" || got.Amount != 5000 || got.Note != "Venmo" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("GetSettlement missing", func(t *testing.T) {
		if _, err := store.GetSettlement(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetSettlement error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListSettlementsByGroup is stable", func(t *testing.T) {
		store.CreateSettlement(ctx, &models.Settlement{
			GroupID: group.ID, FromID: "alice", ToID: "bob", Amount: 1200,
		})
		first, err := store.ListSettlementsByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListSettlementsByGroup failed: %v", err)
		}
		if len(first) != 2 {
			t.Fatalf("got %d settlements, want 2", len(first))
		}
		second, _ := store.ListSettlementsByGroup(ctx, group.ID)
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Errorf("order changed between listings at %d", i)
			}
		}
	})

	t.Run("DeleteSettlement", func(t *testing.T) {
		if err := store.DeleteSettlement(ctx, st.ID); err != nil {
			t.Fatalf("DeleteSettlement failed: %v", err)
		}
		if _, err := store.GetSettlement(ctx, st.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetSettlement error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteSettlement(ctx, st.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("DeleteSettlement error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteGroup cascades to settlements", func(t *testing.T) {
		remaining, _ := store.ListSettlementsByGroup(ctx, group.ID)
		if len(remaining) != 1 {
			t.Fatalf("got %d settlements before cascade, want 1", len(remaining))
		}
		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetSettlement(ctx, remaining[0].ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetSettlement error = %v, want ErrNotFound after cascade", err)
		}
	})
}

func TestSQLiteStore_Expenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", Members: []string{"alice", "bob", "carol"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	t.Run("round-trips each split kind", func(t *testing.T) {
		expenses := []*models.Expense{
			{
				GroupID: group.ID, Description: "Dinner", Amount: 9000,
				PayerID: "alice", Split: models.SplitEqual,
				Participants: []string{"alice", "bob", "carol"},
			},
			{
				GroupID: group.ID, Description: "Hotel", Amount: 20000,
				PayerID: "bob", Split: models.SplitPercentage,
				Participants: []string{"alice", "bob"},
				Allocations:  map[string]int64{"alice": 7000, "bob": 3000},
			},
			{
				GroupID: group.ID, Description: "Taxi", Amount: 1500,
				PayerID: "carol", Split: models.SplitExact,
				Participants: []string{"bob", "carol"},
				Allocations:  map[string]int64{"bob": 900, "carol": 600},
			},
		}
		for _, exp := range expenses {
			if err := store.CreateExpense(ctx, exp); err != nil {
				t.Fatalf("CreateExpense(%s) failed: %v", exp.Description, err)
			}
			got, err := store.GetExpense(ctx, exp.ID)
			if err != nil {
				t.Fatalf("GetExpense(%s) failed: %v", exp.Description, err)
			}
			if got.Split != exp.Split || got.Amount != exp.Amount || got.PayerID != exp.PayerID {
				t.Errorf("%s: got %+v", exp.Description, got)
			}
			if !reflect.DeepEqual(got.Participants, exp.Participants) {
				t.Errorf("%s: Participants = %v, want %v", exp.Description, got.Participants, exp.Participants)
			}
			if !reflect.DeepEqual(got.Allocations, exp.Allocations) {
				t.Errorf("%s: Allocations = %v, want %v", exp.Description, got.Allocations, exp.Allocations)
			}
		}
	})

	t.Run("ListExpensesByGroup is stable", func(t *testing.T) {
		first, err := store.ListExpensesByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListExpensesByGroup failed: %v", err)
		}
		if len(first) != 3 {
			t.Fatalf("got %d expenses, want 3", len(first))
		}
		second, _ := store.ListExpensesByGroup(ctx, group.ID)
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Errorf("order changed between listings at %d", i)
			}
		}
	})

	t.Run("UpdateExpense replaces strategy", func(t *testing.T) {
		exps, _ := store.ListExpensesByGroup(ctx, group.ID)
		exp := exps[0]
		exp.Amount = 12000
		exp.Split = models.SplitExact
		exp.Participants = []string{"alice", "bob"}
		exp.Allocations = map[string]int64{"alice": 7000, "bob": 5000}
		if err := store.UpdateExpense(ctx, exp); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		got, _ := store.GetExpense(ctx, exp.ID)
		if got.Amount != 12000 || got.Split != models.SplitExact {
			t.Errorf("after update got %+v", got)
		}
		if !reflect.DeepEqual(got.Allocations, exp.Allocations) {
			t.Errorf("Allocations = %v, want %v", got.Allocations, exp.Allocations)
		}
		if got.UpdatedAt < got.CreatedAt {
			t.Error("UpdatedAt was not bumped")
		}
	})

	t.Run("DeleteExpense", func(t *testing.T) {
		exps, _ := store.ListExpensesByGroup(ctx, group.ID)
		if err := store.DeleteExpense(ctx, exps[0].ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, exps[0].ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetExpense error = %v, want ErrNotFound", err)
		}
		remaining, _ := store.ListExpensesByGroup(ctx, group.ID)
		if len(remaining) != 2 {
			t.Errorf("got %d expenses after delete, want 2", len(remaining))
		}
	})
}
