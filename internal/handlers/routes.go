package handlers

import (
	"net/http"
	"time"

	"github.com/cliptube/backend/internal/media"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Videos        VideoStore
	Tweets        TweetStore
	Comments      CommentStore
	Likes         LikeStore
	Playlists     PlaylistStore
	Subscriptions SubscriptionStore

	Tokens    TokenMinter
	Media     media.Storage
	Limiter   RateLimiter
	UploadDir string
	NowFunc   func() time.Time

	// RequireAuth rejects unauthenticated requests; OptionalAuth attaches the
	// caller when credentials are present and passes through otherwise.
	RequireAuth  func(http.Handler) http.Handler
	OptionalAuth func(http.Handler) http.Handler
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:     deps.Users,
		Tokens:    deps.Tokens,
		Media:     deps.Media,
		Limiter:   deps.Limiter,
		UploadDir: deps.UploadDir,
		NowFunc:   deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:    deps.Videos,
		Users:     deps.Users,
		Media:     deps.Media,
		UploadDir: deps.UploadDir,
		NowFunc:   deps.NowFunc,
	}
	tweets := TweetHandler{Tweets: deps.Tweets, Users: deps.Users, NowFunc: deps.NowFunc}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos, Comments: deps.Comments, Tweets: deps.Tweets}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Users: deps.Users, NowFunc: deps.NowFunc}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}

	required := deps.RequireAuth
	if required == nil {
		required = func(next http.Handler) http.Handler { return next }
	}
	optional := deps.OptionalAuth
	if optional == nil {
		optional = func(next http.Handler) http.Handler { return next }
	}
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, required(fn))
	}
	open := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, optional(fn))
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	protect("POST /api/v1/users/logout", users.Logout)
	protect("POST /api/v1/users/change-password", users.ChangePassword)
	protect("GET /api/v1/users/current-user", users.CurrentUser)
	protect("PATCH /api/v1/users/update-account", users.UpdateAccount)
	protect("PATCH /api/v1/users/avatar", users.UpdateAvatar)
	protect("PATCH /api/v1/users/cover-image", users.UpdateCoverImage)
	open("GET /api/v1/users/c/{username}", users.ChannelProfile)
	protect("GET /api/v1/users/history", users.WatchHistory)

	open("GET /api/v1/videos", videos.List)
	protect("POST /api/v1/videos", videos.Publish)
	open("GET /api/v1/videos/{videoId}", videos.Get)
	protect("PATCH /api/v1/videos/{videoId}", videos.Update)
	protect("DELETE /api/v1/videos/{videoId}", videos.Delete)
	protect("PATCH /api/v1/videos/toggle/publish/{videoId}", videos.TogglePublish)

	protect("POST /api/v1/tweets", tweets.Create)
	open("GET /api/v1/tweets/user/{userId}", tweets.ListByUser)
	protect("PATCH /api/v1/tweets/{tweetId}", tweets.Update)
	protect("DELETE /api/v1/tweets/{tweetId}", tweets.Delete)

	open("GET /api/v1/comments/{videoId}", comments.List)
	protect("POST /api/v1/comments/{videoId}", comments.Create)
	protect("PATCH /api/v1/comments/c/{commentId}", comments.Update)
	protect("DELETE /api/v1/comments/c/{commentId}", comments.Delete)

	protect("POST /api/v1/likes/toggle/v/{videoId}", likes.ToggleVideo)
	protect("POST /api/v1/likes/toggle/c/{commentId}", likes.ToggleComment)
	protect("POST /api/v1/likes/toggle/t/{tweetId}", likes.ToggleTweet)
	protect("GET /api/v1/likes/videos", likes.LikedVideos)

	protect("POST /api/v1/playlist", playlists.Create)
	open("GET /api/v1/playlist/user/{userId}", playlists.ListByUser)
	open("GET /api/v1/playlist/{playlistId}", playlists.Get)
	protect("PATCH /api/v1/playlist/add/{videoId}/{playlistId}", playlists.AddVideo)
	protect("PATCH /api/v1/playlist/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
	protect("PATCH /api/v1/playlist/{playlistId}", playlists.Update)
	protect("DELETE /api/v1/playlist/{playlistId}", playlists.Delete)

	protect("POST /api/v1/subscriptions/c/{channelId}", subscriptions.Toggle)
}
