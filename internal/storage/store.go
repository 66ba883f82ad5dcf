// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/evenly-app/evenly/internal/models"
)

// ErrNotFound is returned when a profile, group, expense or settlement
// does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for the settlement service.
// Only source-of-truth state lives here: profiles, groups, expenses and
// recorded settle-up settlements. Derived state (shares, balances,
// settlement plans) is recomputed by the engine and never persisted.
//
// The abstraction allows swapping backends without touching the service
// layer.
type Store interface {
	// CreateProfile persists a new profile, populating ID and CreatedAt.
	CreateProfile(ctx context.Context, profile *models.Profile) error

	// GetProfile retrieves a profile by ID.
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)

	// ListProfiles returns all profiles ordered by name.
	ListProfiles(ctx context.Context) ([]*models.Profile, error)

	// CreateGroup persists a new group, populating ID and CreatedAt.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group, including its member list.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns all groups.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// UpdateGroup replaces the group's name and member list.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group and all of its expenses.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddGroupMembers appends member profile IDs not already present.
	AddGroupMembers(ctx context.Context, groupID string, profileIDs []string) error

	// CreateExpense persists a new expense, populating ID, CreatedAt and
	// UpdatedAt.
	CreateExpense(ctx context.Context, exp *models.Expense) error

	// GetExpense retrieves an expense with its participants and
	// allocations.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// UpdateExpense replaces an expense's mutable fields and bumps
	// UpdatedAt.
	UpdateExpense(ctx context.Context, exp *models.Expense) error

	// DeleteExpense removes an expense.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup returns the group's full expense set in stable
	// order (created_at, then id) so recomputation input is
	// deterministic.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// CreateSettlement persists a recorded settle-up payment, populating
	// ID and CreatedAt.
	CreateSettlement(ctx context.Context, st *models.Settlement) error

	// GetSettlement retrieves a recorded settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByGroup returns the group's recorded settlements in
	// stable order (created_at, then id).
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// DeleteSettlement removes a recorded settlement.
	DeleteSettlement(ctx context.Context, settlementID string) error

	// Close releases any resources held by the store.
	Close() error
}
