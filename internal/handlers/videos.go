package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// VideoHandler implements upload, catalogue listing, and lifecycle management
// for published videos.
type VideoHandler struct {
	Videos    VideoStore
	Users     UserStore
	Media     media.Storage
	UploadDir string
	NowFunc   func() time.Time
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// List handles GET /api/v1/videos requests with pagination, text search, and
// owner filtering.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := repositories.ListVideosParams{
		Page:     queryInt(r, "page", defaultPage),
		Limit:    queryInt(r, "limit", defaultLimit),
		Query:    strings.TrimSpace(r.URL.Query().Get("query")),
		SortBy:   strings.TrimSpace(r.URL.Query().Get("sortBy")),
		SortType: strings.TrimSpace(r.URL.Query().Get("sortType")),
		OwnerID:  strings.TrimSpace(r.URL.Query().Get("userId")),
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	videos, err := h.Videos.List(ctx, params)
	if err != nil {
		logging.FromContext(ctx).Error("video list query failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videos, "Videos fetched successfully")
}

// Publish handles POST /api/v1/videos requests. Both the video file and the
// thumbnail are required multipart parts.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "Title and description are required")
		return
	}

	videoPath, err := saveUpload(r, "videoFile", h.UploadDir)
	if err != nil {
		if errors.Is(err, errMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "Video file is required")
			return
		}
		logger.Error("publish video save failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	thumbPath, err := saveUpload(r, "thumbnail", h.UploadDir)
	if err != nil {
		if errors.Is(err, errMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "Thumbnail file is required")
			return
		}
		logger.Error("publish thumbnail save failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	videoAsset, err := h.Media.Upload(ctx, videoPath)
	if err != nil {
		logger.Error("publish video upload failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Video upload failed")
		return
	}

	thumbAsset, err := h.Media.Upload(ctx, thumbPath)
	if err != nil {
		logger.Error("publish thumbnail upload failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Thumbnail upload failed")
		return
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Title:       title,
		Description: description,
		Duration:    videoAsset.Duration,
		OwnerID:     caller.ID,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("publish video insert failed", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while publishing the video")
		return
	}

	created, err := h.Videos.FindByID(ctx, video.ID)
	if err != nil {
		logger.Error("publish video read-back failed", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while publishing the video")
		return
	}

	respondData(ctx, w, http.StatusOK, created, "Video published successfully")
}

// Get handles GET /api/v1/videos/{videoId} requests. Authenticated viewers get
// a view count bump and a watch history entry; anonymous viewers just read.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "Video id is missing")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	if caller, ok := auth.UserFromContext(ctx); ok {
		if err := h.Videos.IncrementViews(ctx, video.ID); err != nil {
			logger.Warn("failed to bump view count", "error", err, "videoId", video.ID)
		} else {
			video.Views++
		}
		if err := h.Users.AppendWatchHistory(ctx, caller.ID, video.ID); err != nil {
			logger.Warn("failed to append watch history", "error", err, "videoId", video.ID)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "Video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId} requests. Only the owner may
// change title, description, or thumbnail.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}
	if video.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this video")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))

	var thumbnail string
	if thumbPath, err := saveUpload(r, "thumbnail", h.UploadDir); err == nil {
		asset, err := h.Media.Upload(ctx, thumbPath)
		if err != nil {
			logger.Error("update thumbnail upload failed", "error", err, "videoId", videoID)
			respondError(ctx, w, http.StatusBadRequest, "Thumbnail upload failed")
			return
		}
		thumbnail = asset.URL
	} else if !errors.Is(err, errMissingFile) {
		logger.Error("update thumbnail save failed", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	if title == "" && description == "" && thumbnail == "" {
		respondError(ctx, w, http.StatusBadRequest, "Nothing to update")
		return
	}

	updated, err := h.Videos.Update(ctx, videoID, title, description, thumbnail)
	if err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId} requests.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}
	if video.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to delete this video")
		return
	}

	if err := h.Videos.Delete(ctx, videoID); err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId} requests.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}
	if video.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this video")
		return
	}

	updated, err := h.Videos.TogglePublish(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Publish status toggled successfully")
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
