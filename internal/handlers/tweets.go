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

// TweetHandler implements short text posts attached to a channel.
type TweetHandler struct {
	Tweets  TweetStore
	Users   UserStore
	NowFunc func() time.Time
}

// Create handles POST /api/v1/tweets requests.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "Tweet content is required")
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		Content:   req.Content,
		OwnerID:   caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		logging.FromContext(ctx).Error("tweet insert failed", "error", err, "tweetId", tweet.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	created, err := h.Tweets.FindByID(ctx, tweet.ID)
	if err != nil {
		logging.FromContext(ctx).Error("tweet read-back failed", "error", err, "tweetId", tweet.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while creating the tweet")
		return
	}

	respondData(ctx, w, http.StatusOK, created, "Tweet created successfully")
}

// ListByUser handles GET /api/v1/tweets/user/{userId} requests.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
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

	tweets, err := h.Tweets.ListByOwner(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("tweet list query failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}

	respondData(ctx, w, http.StatusOK, tweets, "Tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{tweetId} requests. Only the author may
// edit.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	tweetID := strings.TrimSpace(r.PathValue("tweetId"))
	tweet, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		respondStoreError(ctx, w, err, "Tweet does not exist")
		return
	}
	if tweet.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to modify this tweet")
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "Tweet content is required")
		return
	}

	updated, err := h.Tweets.Update(ctx, tweetID, req.Content)
	if err != nil {
		respondStoreError(ctx, w, err, "Tweet does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{tweetId} requests.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	tweetID := strings.TrimSpace(r.PathValue("tweetId"))
	tweet, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		respondStoreError(ctx, w, err, "Tweet does not exist")
		return
	}
	if tweet.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusUnauthorized, "You are not allowed to delete this tweet")
		return
	}

	if err := h.Tweets.Delete(ctx, tweetID); err != nil {
		respondStoreError(ctx, w, err, "Tweet does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Tweet deleted successfully")
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type tweetRequest struct {
	Content string `json:"content"`
}
