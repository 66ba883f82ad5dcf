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

// SettlementService records and removes settle-up payments. A recorded
// settlement is an authoritative user action, not derived state: it is
// persisted like an expense and offsets balances on the next fold, so
// paying off a suggested transfer drives both parties toward zero.
type SettlementService struct {
	store storage.Store
	coord *engine.Coordinator
}

// NewSettlementService creates a SettlementService with the given
// storage backend and coordinator.
func NewSettlementService(store storage.Store, coord *engine.Coordinator) *SettlementService {
	return &SettlementService{store: store, coord: coord}
}

// Register mounts the settlement routes on the router. The plain GET on
// /settlements (the suggested plan) lives with the group views; the
// routes here cover the recorded payments themselves.
func (s *SettlementService) Register(r *mux.Router) {
	r.HandleFunc("/api/groups/{id}/settlements", s.RecordSettlement).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{id}/settlements/recorded", s.ListSettlements).Methods(http.MethodGet)
	r.HandleFunc("/api/settlements/{id}", s.DeleteSettlement).Methods(http.MethodDelete)
}

// settlementMutationResponse pairs the recorded payment with the
// refreshed derived state for its group.
type settlementMutationResponse struct {
	Settlement *settlementPayload `json:"settlement,omitempty"`
	Snapshot   *snapshotPayload   `json:"snapshot"`
}

// RecordSettlement handles POST /api/groups/{id}/settlements.
func (s *SettlementService) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	var req settlementPayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		slog.Error("RecordSettlement failed - group not found", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	st := &models.Settlement{
		GroupID: groupID,
		FromID:  req.From,
		ToID:    req.To,
		Amount:  req.AmountCents,
		Note:    req.Note,
	}

	// Reject before the store write; prior derived state stays intact.
	if err := calculator.ValidateSettlement(group, st); err != nil {
		slog.Error("RecordSettlement validation failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.CreateSettlement(r.Context(), st); err != nil {
		slog.Error("RecordSettlement failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	expenses, settlements, err := loadGroupState(r, s.store, groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.coord.SettlementRecorded(r.Context(), group, expenses, settlements)
	if err != nil {
		slog.Error("RecordSettlement recomputation failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Settlement recorded",
		"settlement_id", st.ID,
		"group_id", groupID,
		"from", st.FromID,
		"to", st.ToID,
		"amount_cents", st.Amount,
	)
	writeJSON(w, http.StatusCreated, settlementMutationResponse{
		Settlement: settlementToPayload(st),
		Snapshot:   snapshotToPayload(snap),
	})
}

// ListSettlements handles GET /api/groups/{id}/settlements/recorded.
func (s *SettlementService) ListSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, err)
		return
	}
	settlements, err := s.store.ListSettlementsByGroup(r.Context(), groupID)
	if err != nil {
		slog.Error("ListSettlements failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}
	out := make([]*settlementPayload, len(settlements))
	for i, st := range settlements {
		out[i] = settlementToPayload(st)
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteSettlement handles DELETE /api/settlements/{id}. Removing a
// recorded payment restores the debt it had offset.
func (s *SettlementService) DeleteSettlement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := s.store.GetSettlement(r.Context(), id)
	if err != nil {
		slog.Error("DeleteSettlement failed - settlement not found", "settlement_id", id, "error", err)
		writeError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), existing.GroupID)
	if err != nil {
		slog.Error("DeleteSettlement failed - group not found", "group_id", existing.GroupID, "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.DeleteSettlement(r.Context(), id); err != nil {
		slog.Error("DeleteSettlement failed", "settlement_id", id, "error", err)
		writeError(w, err)
		return
	}

	expenses, settlements, err := loadGroupState(r, s.store, group.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.coord.SettlementRemoved(r.Context(), group, expenses, settlements)
	if err != nil {
		slog.Error("DeleteSettlement recomputation failed", "group_id", group.ID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Settlement deleted", "settlement_id", id, "group_id", group.ID)
	writeJSON(w, http.StatusOK, settlementMutationResponse{Snapshot: snapshotToPayload(snap)})
}
