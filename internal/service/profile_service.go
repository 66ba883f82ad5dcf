package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// ProfileService serves participant identities. Profiles are reference
// data for the settlement core; there is no update or delete because a
// profile referenced by an expense is immutable.
type ProfileService struct {
	store storage.Store
}

// NewProfileService creates a ProfileService with the given storage
// backend.
func NewProfileService(store storage.Store) *ProfileService {
	return &ProfileService{store: store}
}

// Register mounts the profile routes on the router.
func (s *ProfileService) Register(r *mux.Router) {
	r.HandleFunc("/api/profiles", s.CreateProfile).Methods(http.MethodPost)
	r.HandleFunc("/api/profiles", s.ListProfiles).Methods(http.MethodGet)
	r.HandleFunc("/api/profiles/{id}", s.GetProfile).Methods(http.MethodGet)
}

type profilePayload struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// CreateProfile handles POST /api/profiles.
func (s *ProfileService) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profilePayload
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	profile := &models.Profile{Name: req.Name}
	if err := s.store.CreateProfile(r.Context(), profile); err != nil {
		slog.Error("CreateProfile failed", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Profile created", "profile_id", profile.ID, "name", profile.Name)
	writeJSON(w, http.StatusCreated, profilePayload{
		ID:        profile.ID,
		Name:      profile.Name,
		CreatedAt: profile.CreatedAt,
	})
}

// GetProfile handles GET /api/profiles/{id}.
func (s *ProfileService) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	profile, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		slog.Error("GetProfile failed", "profile_id", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profilePayload{
		ID:        profile.ID,
		Name:      profile.Name,
		CreatedAt: profile.CreatedAt,
	})
}

// ListProfiles handles GET /api/profiles.
func (s *ProfileService) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		slog.Error("ListProfiles failed", "error", err)
		writeError(w, err)
		return
	}
	out := make([]profilePayload, len(profiles))
	for i, p := range profiles {
		out[i] = profilePayload{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}
