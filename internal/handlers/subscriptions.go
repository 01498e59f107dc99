package handlers

import (
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
)

// SubscriptionHandler implements the subscribe/unsubscribe toggle between a
// viewer and a channel.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId} requests.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	channelID := strings.TrimSpace(r.PathValue("channelId"))
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "Channel id is missing")
		return
	}
	if channelID == caller.ID {
		respondError(ctx, w, http.StatusBadRequest, "You cannot subscribe to your own channel")
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		respondStoreError(ctx, w, err, "Channel does not exist")
		return
	}

	sub, subscribed, err := h.Subscriptions.Toggle(ctx, channelID, caller.ID)
	if err != nil {
		logging.FromContext(ctx).Error("subscription toggle failed", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if subscribed {
		respondData(ctx, w, http.StatusOK, sub, "Subscribed successfully")
		return
	}
	respondData(ctx, w, http.StatusOK, struct{}{}, "Unsubscribed successfully")
}
