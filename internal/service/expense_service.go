package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/evenly-app/evenly/internal/calculator"
	"github.com/evenly-app/evenly/internal/engine"
	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// ExpenseService serves expense CRUD. Every mutation validates against
// the group before the store write (a rejected expense leaves prior
// state untouched) and triggers the coordinator afterwards, so the
// response already carries the refreshed balances and settlement plan.
type ExpenseService struct {
	store storage.Store
	coord *engine.Coordinator
}

// NewExpenseService creates an ExpenseService with the given storage
// backend and coordinator.
func NewExpenseService(store storage.Store, coord *engine.Coordinator) *ExpenseService {
	return &ExpenseService{store: store, coord: coord}
}

// Register mounts the expense routes on the router.
func (s *ExpenseService) Register(r *mux.Router) {
	r.HandleFunc("/api/groups/{id}/expenses", s.CreateExpense).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{id}/expenses", s.ListExpenses).Methods(http.MethodGet)
	r.HandleFunc("/api/expenses/{id}", s.GetExpense).Methods(http.MethodGet)
	r.HandleFunc("/api/expenses/{id}", s.UpdateExpense).Methods(http.MethodPut)
	r.HandleFunc("/api/expenses/{id}", s.DeleteExpense).Methods(http.MethodDelete)
	r.HandleFunc("/api/split/preview", s.PreviewSplit).Methods(http.MethodPost)
}

// mutationResponse pairs the affected expense with the refreshed
// derived state for its group.
type mutationResponse struct {
	Expense  *expensePayload  `json:"expense,omitempty"`
	Snapshot *snapshotPayload `json:"snapshot"`
}

// CreateExpense handles POST /api/groups/{id}/expenses.
func (s *ExpenseService) CreateExpense(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	var req expensePayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		slog.Error("CreateExpense failed - group not found", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	exp := &models.Expense{
		GroupID:      groupID,
		Description:  req.Description,
		Amount:       req.AmountCents,
		PayerID:      req.PayerID,
		Split:        models.SplitKind(req.Split),
		Participants: req.Participants,
		Allocations:  req.Allocations,
	}

	// Reject before the store write; prior derived state stays intact.
	if err := calculator.ValidateExpense(group, exp); err != nil {
		slog.Error("CreateExpense validation failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.CreateExpense(r.Context(), exp); err != nil {
		slog.Error("CreateExpense failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	snap, err := s.recompute(r, group, func(expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
		return s.coord.ExpenseCreated(r.Context(), group, expenses, settlements)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Expense created",
		"expense_id", exp.ID,
		"group_id", groupID,
		"amount_cents", exp.Amount,
		"split", exp.Split,
	)
	writeJSON(w, http.StatusCreated, mutationResponse{
		Expense:  expenseToPayload(exp),
		Snapshot: snapshotToPayload(snap),
	})
}

// GetExpense handles GET /api/expenses/{id}.
func (s *ExpenseService) GetExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	exp, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		slog.Error("GetExpense failed", "expense_id", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseToPayload(exp))
}

// ListExpenses handles GET /api/groups/{id}/expenses.
func (s *ExpenseService) ListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, err)
		return
	}
	expenses, err := s.store.ListExpensesByGroup(r.Context(), groupID)
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}
	out := make([]*expensePayload, len(expenses))
	for i, exp := range expenses {
		out[i] = expenseToPayload(exp)
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateExpense handles PUT /api/expenses/{id}. The group association
// is immutable; amount, payer, strategy and participants may change.
func (s *ExpenseService) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req expensePayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	existing, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		slog.Error("UpdateExpense failed - expense not found", "expense_id", id, "error", err)
		writeError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), existing.GroupID)
	if err != nil {
		slog.Error("UpdateExpense failed - group not found", "group_id", existing.GroupID, "error", err)
		writeError(w, err)
		return
	}

	exp := &models.Expense{
		ID:           existing.ID,
		GroupID:      existing.GroupID,
		Description:  req.Description,
		Amount:       req.AmountCents,
		PayerID:      req.PayerID,
		Split:        models.SplitKind(req.Split),
		Participants: req.Participants,
		Allocations:  req.Allocations,
		CreatedAt:    existing.CreatedAt,
	}

	if err := calculator.ValidateExpense(group, exp); err != nil {
		slog.Error("UpdateExpense validation failed", "expense_id", id, "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.UpdateExpense(r.Context(), exp); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", id, "error", err)
		writeError(w, err)
		return
	}

	snap, err := s.recompute(r, group, func(expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
		return s.coord.ExpenseEdited(r.Context(), group, expenses, settlements)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Expense updated", "expense_id", id, "group_id", group.ID, "amount_cents", exp.Amount)
	writeJSON(w, http.StatusOK, mutationResponse{
		Expense:  expenseToPayload(exp),
		Snapshot: snapshotToPayload(snap),
	})
}

// DeleteExpense handles DELETE /api/expenses/{id}. The deleted expense
// is simply absent from the recomputed set.
func (s *ExpenseService) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		slog.Error("DeleteExpense failed - expense not found", "expense_id", id, "error", err)
		writeError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), existing.GroupID)
	if err != nil {
		slog.Error("DeleteExpense failed - group not found", "group_id", existing.GroupID, "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.DeleteExpense(r.Context(), id); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", id, "error", err)
		writeError(w, err)
		return
	}

	snap, err := s.recompute(r, group, func(expenses []*models.Expense, settlements []*models.Settlement) (*models.Snapshot, error) {
		return s.coord.ExpenseDeleted(r.Context(), group, expenses, settlements)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Expense deleted", "expense_id", id, "group_id", group.ID)
	writeJSON(w, http.StatusOK, mutationResponse{Snapshot: snapshotToPayload(snap)})
}

// PreviewSplit handles POST /api/split/preview: a pure ComputeShares
// call for the dashboard's "how would this split look" view. Nothing is
// persisted and no derived state changes.
func (s *ExpenseService) PreviewSplit(w http.ResponseWriter, r *http.Request) {
	var req expensePayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	exp := &models.Expense{
		Description:  req.Description,
		Amount:       req.AmountCents,
		PayerID:      req.PayerID,
		Split:        models.SplitKind(req.Split),
		Participants: req.Participants,
		Allocations:  req.Allocations,
	}

	shares, err := calculator.ComputeShares(exp)
	if err != nil {
		slog.Error("PreviewSplit failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"shares": shares})
}

// recompute reloads the group's expense and settlement sets and runs
// the given coordinator trigger; the HTTP response is only written
// after it completes, which is what makes mutations read-your-writes.
func (s *ExpenseService) recompute(r *http.Request, group *models.Group, trigger func([]*models.Expense, []*models.Settlement) (*models.Snapshot, error)) (*models.Snapshot, error) {
	expenses, settlements, err := loadGroupState(r, s.store, group.ID)
	if err != nil {
		slog.Error("Recompute failed - could not load group state", "group_id", group.ID, "error", err)
		return nil, err
	}
	snap, err := trigger(expenses, settlements)
	if err != nil {
		slog.Error("Recompute failed", "group_id", group.ID, "error", err)
		return nil, err
	}
	return snap, nil
}
