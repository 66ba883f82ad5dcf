package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// CreateExpense persists a new expense with its participant rows.
func (s *SQLiteStore) CreateExpense(ctx context.Context, exp *models.Expense) error {
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if exp.CreatedAt == 0 {
		exp.CreatedAt = now
	}
	exp.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses (id, group_id, description, amount, payer_id, split_kind, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		exp.ID, exp.GroupID, exp.Description, exp.Amount, exp.PayerID, string(exp.Split), exp.CreatedAt, exp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, exp); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with participants and allocations.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	exp := &models.Expense{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, description, amount, payer_id, split_kind, created_at, updated_at FROM expenses WHERE id = ?",
		expenseID,
	).Scan(&exp.ID, &exp.GroupID, &exp.Description, &exp.Amount, &exp.PayerID, &kind, &exp.CreatedAt, &exp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	exp.Split = models.SplitKind(kind)

	if err := s.loadShares(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// UpdateExpense replaces the expense's mutable fields and participant
// rows, bumping updated_at.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, exp *models.Expense) error {
	exp.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET description = ?, amount = ?, payer_id = ?, split_kind = ?, updated_at = ? WHERE id = ?",
		exp.Description, exp.Amount, exp.PayerID, string(exp.Split), exp.UpdatedAt, exp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", exp.ID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", exp.ID); err != nil {
		return fmt.Errorf("failed to clear expense shares: %w", err)
	}
	if err := insertShares(ctx, tx, exp); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense; share rows cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// ListExpensesByGroup returns the group's expenses ordered by
// (created_at, id) so the recomputation input is deterministic.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, group_id, description, amount, payer_id, split_kind, created_at, updated_at FROM expenses WHERE group_id = ? ORDER BY created_at, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		exp := &models.Expense{}
		var kind string
		if err := rows.Scan(&exp.ID, &exp.GroupID, &exp.Description, &exp.Amount, &exp.PayerID, &kind, &exp.CreatedAt, &exp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		exp.Split = models.SplitKind(kind)
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, exp := range expenses {
		if err := s.loadShares(ctx, exp); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// loadShares populates Participants (in stored order) and Allocations.
func (s *SQLiteStore) loadShares(ctx context.Context, exp *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT profile_id, value FROM expense_shares WHERE expense_id = ? ORDER BY position",
		exp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense shares: %w", err)
	}
	defer rows.Close()

	exp.Participants = nil
	exp.Allocations = nil
	for rows.Next() {
		var profileID string
		var value int64
		if err := rows.Scan(&profileID, &value); err != nil {
			return fmt.Errorf("failed to scan expense share: %w", err)
		}
		exp.Participants = append(exp.Participants, profileID)
		if exp.Split != models.SplitEqual {
			if exp.Allocations == nil {
				exp.Allocations = make(map[string]int64)
			}
			exp.Allocations[profileID] = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense shares: %w", err)
	}
	return nil
}

func insertShares(ctx context.Context, tx *sql.Tx, exp *models.Expense) error {
	for i, profileID := range exp.Participants {
		value := exp.Allocations[profileID] // zero for equal splits
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, profile_id, position, value) VALUES (?, ?, ?, ?)",
			exp.ID, profileID, i, value,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense share: %w", err)
		}
	}
	return nil
}
