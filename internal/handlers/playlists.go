package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

// PlaylistHandler implements user-owned ordered collections of videos.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	Users     UserStore
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/playlist requests.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" || req.Description == "" {
		respondError(ctx, w, http.StatusBadRequest, "Name and description are required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     caller.ID,
		Videos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		logging.FromContext(ctx).Error("playlist insert failed", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	created, err := h.Playlists.FindByID(ctx, playlist.ID)
	if err != nil {
		logging.FromContext(ctx).Error("playlist read-back failed", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while creating the playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, created, "Playlist created successfully")
}

// ListByUser handles GET /api/v1/playlist/user/{userId} requests.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := strings.TrimSpace(r.PathValue("userId"))
	if userID == "" {
		respondError(ctx, w, http.StatusBadRequest, "User id is missing")
		return
	}

	if _, err := h.Users.FindByID(ctx, userID); err != nil {
		respondStoreError(ctx, w, err, "User does not exist!")
		return
	}

	playlists, err := h.Playlists.ListByOwner(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("playlist list query failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respondData(ctx, w, http.StatusOK, playlists, "User playlists fetched successfully")
}

// Get handles GET /api/v1/playlist/{playlistId} requests.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID := strings.TrimSpace(r.PathValue("playlistId"))
	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, playlist, "Playlist fetched successfully")
}

// AddVideo handles PATCH /api/v1/playlist/add/{videoId}/{playlistId} requests.
// Adding a video already in the playlist is a no-op.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	playlistID := strings.TrimSpace(r.PathValue("playlistId"))
	videoID := strings.TrimSpace(r.PathValue("videoId"))

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}
	if playlist.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this playlist")
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlistID, videoID); err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}

	updated, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Video added to playlist successfully")
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/{videoId}/{playlistId}
// requests.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	playlistID := strings.TrimSpace(r.PathValue("playlistId"))
	videoID := strings.TrimSpace(r.PathValue("videoId"))

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}
	if playlist.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this playlist")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlistID, videoID); err != nil {
		respondStoreError(ctx, w, err, "Video is not in this playlist")
		return
	}

	updated, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Video removed from playlist successfully")
}

// Update handles PATCH /api/v1/playlist/{playlistId} requests.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	playlistID := strings.TrimSpace(r.PathValue("playlistId"))
	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}
	if playlist.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this playlist")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" && req.Description == "" {
		respondError(ctx, w, http.StatusBadRequest, "Name or description is required")
		return
	}

	updated, err := h.Playlists.Update(ctx, playlistID, req.Name, req.Description)
	if err != nil {
		respondStoreError(ctx, w, err, "Playlist does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlist/{playlistId} requests.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	playlistID := strings.TrimSpace(r.PathValue("playlistId"))
	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "Unable to delete playlist which does not exist")
		return
	}
	if playlist.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to delete this playlist")
		return
	}

	if err := h.Playlists.Delete(ctx, playlistID); err != nil {
		respondStoreError(ctx, w, err, "Unable to delete playlist which does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Playlist deleted successfully")
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
