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

// CommentHandler implements the comment thread under a video.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

// List handles GET /api/v1/comments/{videoId} requests with pagination.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "Video id is missing")
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	page := queryInt(r, "page", defaultPage)
	limit := queryInt(r, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}

	comments, err := h.Comments.ListByVideo(ctx, videoID, page, limit)
	if err != nil {
		logging.FromContext(ctx).Error("comment list query failed", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	respondData(ctx, w, http.StatusOK, comments, "Comments fetched successfully")
}

// Create handles POST /api/v1/comments/{videoId} requests.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "Comment content is required")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		Content:   req.Content,
		VideoID:   videoID,
		OwnerID:   caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		logging.FromContext(ctx).Error("comment insert failed", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	created, err := h.Comments.FindByID(ctx, comment.ID)
	if err != nil {
		logging.FromContext(ctx).Error("comment read-back failed", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while adding the comment")
		return
	}

	respondData(ctx, w, http.StatusOK, created, "Comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId} requests.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	commentID := strings.TrimSpace(r.PathValue("commentId"))
	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		respondStoreError(ctx, w, err, "Comment does not exist")
		return
	}
	if comment.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this comment")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "Comment content is required")
		return
	}

	updated, err := h.Comments.Update(ctx, commentID, req.Content)
	if err != nil {
		respondStoreError(ctx, w, err, "Comment does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId} requests.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	commentID := strings.TrimSpace(r.PathValue("commentId"))
	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		respondStoreError(ctx, w, err, "Comment does not exist")
		return
	}
	if comment.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to delete this comment")
		return
	}

	if err := h.Comments.Delete(ctx, commentID); err != nil {
		respondStoreError(ctx, w, err, "Comment does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Comment deleted successfully")
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type commentRequest struct {
	Content string `json:"content"`
}
