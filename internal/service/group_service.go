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

// GroupService serves group CRUD plus the derived read views: current
// balances and suggested settlements.
type GroupService struct {
	store storage.Store
	coord *engine.Coordinator
}

// NewGroupService creates a GroupService with the given storage backend
// and coordinator.
func NewGroupService(store storage.Store, coord *engine.Coordinator) *GroupService {
	return &GroupService{store: store, coord: coord}
}

// Register mounts the group routes on the router.
func (s *GroupService) Register(r *mux.Router) {
	r.HandleFunc("/api/groups", s.CreateGroup).Methods(http.MethodPost)
	r.HandleFunc("/api/groups", s.ListGroups).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{id}", s.GetGroup).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{id}", s.UpdateGroup).Methods(http.MethodPut)
	r.HandleFunc("/api/groups/{id}", s.DeleteGroup).Methods(http.MethodDelete)
	r.HandleFunc("/api/groups/{id}/members", s.AddMembers).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{id}/balances", s.GetBalances).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{id}/settlements", s.GetSettlements).Methods(http.MethodGet)
}

type groupPayload struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at,omitempty"`
}

func groupToPayload(g *models.Group) groupPayload {
	return groupPayload{ID: g.ID, Name: g.Name, Members: g.Members, CreatedAt: g.CreatedAt}
}

// CreateGroup handles POST /api/groups.
func (s *GroupService) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupPayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	group := &models.Group{Name: req.Name, Members: req.Members}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))
	writeJSON(w, http.StatusCreated, groupToPayload(group))
}

// GetGroup handles GET /api/groups/{id}.
func (s *GroupService) GetGroup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	group, err := s.store.GetGroup(r.Context(), id)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToPayload(group))
}

// ListGroups handles GET /api/groups.
func (s *GroupService) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		writeError(w, err)
		return
	}
	out := make([]groupPayload, len(groups))
	for i, g := range groups {
		out[i] = groupToPayload(g)
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateGroup handles PUT /api/groups/{id}. Shrinking the member list
// under existing expenses is rejected: recomputation would hit a
// non-member reference, so the prior roster must stay until those
// expenses are edited or deleted.
func (s *GroupService) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req groupPayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if _, err := s.store.GetGroup(r.Context(), id); err != nil {
		slog.Error("UpdateGroup failed", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	group := &models.Group{ID: id, Name: req.Name, Members: req.Members}

	expenses, settlements, err := loadGroupState(r, s.store, id)
	if err != nil {
		slog.Error("UpdateGroup failed to load group state", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	// Preflight with a pure fold: the coordinator cache must never hold
	// a roster that has not been committed yet.
	if _, err := calculator.ComputeBalances(group, expenses, settlements); err != nil {
		slog.Error("UpdateGroup rejected", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.UpdateGroup(r.Context(), group); err != nil {
		slog.Error("UpdateGroup failed", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	updated, err := s.store.GetGroup(r.Context(), id)
	if err != nil {
		slog.Error("UpdateGroup failed to reload group", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	if _, err := s.coord.Refresh(r.Context(), updated, expenses, settlements); err != nil {
		slog.Error("UpdateGroup failed to refresh snapshot", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Group updated", "group_id", id)
	writeJSON(w, http.StatusOK, groupToPayload(updated))
}

// DeleteGroup handles DELETE /api/groups/{id}.
func (s *GroupService) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteGroup(r.Context(), id); err != nil {
		slog.Error("DeleteGroup failed", "group_id", id, "error", err)
		writeError(w, err)
		return
	}
	s.coord.Drop(id)
	slog.Info("Group deleted", "group_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddMembers handles POST /api/groups/{id}/members.
func (s *GroupService) AddMembers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Members []string `json:"members"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if err := s.store.AddGroupMembers(r.Context(), id, req.Members); err != nil {
		slog.Error("AddMembers failed", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// The cached snapshot was computed for the old roster; refresh so the
	// next balances read already carries the new members at zero.
	expenses, settlements, err := loadGroupState(r, s.store, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.coord.Refresh(r.Context(), group, expenses, settlements); err != nil {
		slog.Error("AddMembers failed to refresh snapshot", "group_id", id, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Members added", "group_id", id, "members_count", len(group.Members))
	writeJSON(w, http.StatusOK, groupToPayload(group))
}

// GetBalances handles GET /api/groups/{id}/balances.
func (s *GroupService) GetBalances(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToPayload(snap))
}

// GetSettlements handles GET /api/groups/{id}/settlements.
func (s *GroupService) GetSettlements(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToPayload(snap))
}

// snapshot serves the cached snapshot when one exists; otherwise it
// recomputes from the stored expense and settlement sets. Mutations
// keep the cache fresh, so the recompute path only runs on the first
// read after startup.
func (s *GroupService) snapshot(r *http.Request, groupID string) (*models.Snapshot, error) {
	if snap, ok := s.coord.Current(groupID); ok {
		return snap, nil
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		slog.Error("Snapshot failed - group not found", "group_id", groupID, "error", err)
		return nil, err
	}
	expenses, settlements, err := loadGroupState(r, s.store, groupID)
	if err != nil {
		slog.Error("Snapshot failed - could not load group state", "group_id", groupID, "error", err)
		return nil, err
	}
	snap, err := s.coord.Refresh(r.Context(), group, expenses, settlements)
	if err != nil {
		slog.Error("Snapshot recomputation failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return snap, nil
}
