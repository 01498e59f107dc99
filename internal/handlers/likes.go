package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

// LikeHandler implements like toggles for videos, comments, and tweets.
// Toggling is a single atomic statement in the store, so concurrent toggles on
// the same subject cannot create duplicate likes.
type LikeHandler struct {
	Likes    LikeStore
	Videos   VideoStore
	Comments CommentStore
	Tweets   TweetStore
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId} requests.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondStoreError(ctx, w, err, "Video does not exist")
		return
	}

	h.toggle(w, r, videoID, "Video", func(ctx context.Context, userID string) (models.Like, bool, error) {
		return h.Likes.ToggleVideoLike(ctx, userID, videoID)
	})
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId} requests.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	commentID := strings.TrimSpace(r.PathValue("commentId"))
	if _, err := h.Comments.FindByID(ctx, commentID); err != nil {
		respondStoreError(ctx, w, err, "Comment does not exist")
		return
	}

	h.toggle(w, r, commentID, "Comment", func(ctx context.Context, userID string) (models.Like, bool, error) {
		return h.Likes.ToggleCommentLike(ctx, userID, commentID)
	})
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId} requests.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweetID := strings.TrimSpace(r.PathValue("tweetId"))
	if _, err := h.Tweets.FindByID(ctx, tweetID); err != nil {
		respondStoreError(ctx, w, err, "Tweet does not exist")
		return
	}

	h.toggle(w, r, tweetID, "Tweet", func(ctx context.Context, userID string) (models.Like, bool, error) {
		return h.Likes.ToggleTweetLike(ctx, userID, tweetID)
	})
}

// LikedVideos handles GET /api/v1/likes/videos requests.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	videos, err := h.Likes.ListLikedVideos(ctx, caller.ID)
	if err != nil {
		logging.FromContext(ctx).Error("liked videos query failed", "error", err, "userId", caller.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videos, "Liked videos fetched successfully")
}

func (h LikeHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	subjectID, subject string,
	fn func(ctx context.Context, userID string) (models.Like, bool, error),
) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	like, liked, err := fn(ctx, caller.ID)
	if err != nil {
		logging.FromContext(ctx).Error("like toggle failed", "error", err, "subjectId", subjectID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if liked {
		respondData(ctx, w, http.StatusOK, like, subject+" liked successfully")
		return
	}
	respondData(ctx, w, http.StatusOK, struct{}{}, subject+" unliked successfully")
}
