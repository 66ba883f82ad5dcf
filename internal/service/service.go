// Package service exposes the settlement engine over a JSON HTTP API.
//
// Services are thin: they validate input at the boundary, delegate to
// the store and the recalculation coordinator, and translate calculation
// errors to HTTP statuses. Every expense mutation completes its
// group's recomputation before the response is written, so clients
// always read refreshed balances immediately after a save, edit or
// delete.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/evenly-app/evenly/internal/calculator"
	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// transferPayload is the wire form of a settlement transfer. Amounts are
// integers in minor currency units everywhere on the API.
type transferPayload struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents int64  `json:"amount_cents"`
}

// snapshotPayload is the wire form of a group's derived state.
type snapshotPayload struct {
	GroupID     string            `json:"group_id"`
	Balances    map[string]int64  `json:"balances"`
	Settlements []transferPayload `json:"settlements"`
	ComputedAt  int64             `json:"computed_at"`
}

func snapshotToPayload(snap *models.Snapshot) *snapshotPayload {
	out := &snapshotPayload{
		GroupID:     snap.GroupID,
		Balances:    snap.Balances,
		Settlements: make([]transferPayload, len(snap.Plan)),
		ComputedAt:  snap.ComputedAt,
	}
	for i, t := range snap.Plan {
		out.Settlements[i] = transferPayload{From: t.FromID, To: t.ToID, AmountCents: t.Amount}
	}
	return out
}

// settlementPayload is the wire form of a recorded settle-up payment.
type settlementPayload struct {
	ID          string `json:"id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

func settlementToPayload(st *models.Settlement) *settlementPayload {
	return &settlementPayload{
		ID:          st.ID,
		GroupID:     st.GroupID,
		From:        st.FromID,
		To:          st.ToID,
		AmountCents: st.Amount,
		Note:        st.Note,
		CreatedAt:   st.CreatedAt,
	}
}

// expensePayload is the wire form of an expense.
type expensePayload struct {
	ID           string           `json:"id,omitempty"`
	GroupID      string           `json:"group_id,omitempty"`
	Description  string           `json:"description"`
	AmountCents  int64            `json:"amount_cents"`
	PayerID      string           `json:"payer_id"`
	Split        string           `json:"split"`
	Participants []string         `json:"participants"`
	Allocations  map[string]int64 `json:"allocations,omitempty"`
	CreatedAt    int64            `json:"created_at,omitempty"`
	UpdatedAt    int64            `json:"updated_at,omitempty"`
}

func expenseToPayload(exp *models.Expense) *expensePayload {
	return &expensePayload{
		ID:           exp.ID,
		GroupID:      exp.GroupID,
		Description:  exp.Description,
		AmountCents:  exp.Amount,
		PayerID:      exp.PayerID,
		Split:        string(exp.Split),
		Participants: exp.Participants,
		Allocations:  exp.Allocations,
		CreatedAt:    exp.CreatedAt,
		UpdatedAt:    exp.UpdatedAt,
	}
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps an error to its HTTP status and writes a JSON error
// body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

// statusForError maps calculation and storage errors to HTTP statuses:
// malformed strategies are client errors, non-member references are
// unprocessable, invariant violations are internal defects.
func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calculator.ErrEmptyParticipants),
		errors.Is(err, calculator.ErrInvalidStrategy),
		errors.Is(err, calculator.ErrInvalidSettlement):
		return http.StatusBadRequest
	case errors.Is(err, calculator.ErrNonMember):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// loadGroupState fetches the group's expense and settlement sets, the
// full recomputation input.
func loadGroupState(r *http.Request, store storage.Store, groupID string) ([]*models.Expense, []*models.Settlement, error) {
	expenses, err := store.ListExpensesByGroup(r.Context(), groupID)
	if err != nil {
		return nil, nil, err
	}
	settlements, err := store.ListSettlementsByGroup(r.Context(), groupID)
	if err != nil {
		return nil, nil, err
	}
	return expenses, settlements, nil
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
