package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// In-memory store implementations shared by the handler tests. They mirror the
// semantics of the Postgres repositories closely enough for handler-level
// assertions.

type inMemoryUserStore struct {
	users   map[string]models.User
	history map[string][]string
	subs    []models.Subscription

	// videos lets WatchHistory resolve entries the way the SQL join does.
	videos *inMemoryVideoStore
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{
		users:   make(map[string]models.User),
		history: make(map[string][]string),
	}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (models.User, error) {
	for _, user := range s.users {
		if username != "" && strings.EqualFold(user.Username, username) {
			return user, nil
		}
		if email != "" && strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpdateRefreshToken(_ context.Context, id, token string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdateAccount(_ context.Context, id, fullName, email string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	if fullName != "" {
		user.FullName = fullName
	}
	if email != "" {
		user.Email = email
	}
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.Avatar = avatarURL
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdateCoverImage(_ context.Context, id, coverURL string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.CoverImage = coverURL
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	var channel models.User
	found := false
	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			channel = user
			found = true
			break
		}
	}
	if !found {
		return models.ChannelProfile{}, repositories.ErrNotFound
	}

	profile := models.ChannelProfile{
		ID:         channel.ID,
		Username:   channel.Username,
		FullName:   channel.FullName,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
		Email:      channel.Email,
	}
	for _, sub := range s.subs {
		if sub.ChannelID == channel.ID {
			profile.SubscribersCount++
			if viewerID != "" && sub.SubscriberID == viewerID {
				profile.IsSubscribed = true
			}
		}
		if sub.SubscriberID == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

func (s *inMemoryUserStore) WatchHistory(_ context.Context, userID string) ([]models.WatchedVideo, error) {
	if s.videos == nil {
		return nil, nil
	}

	var out []models.WatchedVideo
	for _, videoID := range s.history[userID] {
		video, ok := s.videos.videos[videoID]
		if !ok {
			continue
		}
		owner := s.users[video.OwnerID]
		out = append(out, models.WatchedVideo{
			Video: video,
			Owner: models.VideoOwner{FullName: owner.FullName, Username: owner.Username, Avatar: owner.Avatar},
		})
	}
	return out, nil
}

func (s *inMemoryUserStore) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	s.history[userID] = append(s.history[userID], videoID)
	return nil
}

type inMemoryVideoStore struct {
	videos map[string]models.Video
}

func newInMemoryVideoStore() *inMemoryVideoStore {
	return &inMemoryVideoStore{videos: make(map[string]models.Video)}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) List(_ context.Context, params repositories.ListVideosParams) ([]models.Video, error) {
	var out []models.Video
	for _, video := range s.videos {
		if params.OwnerID != "" && video.OwnerID != params.OwnerID {
			continue
		}
		if params.Query != "" && !strings.Contains(strings.ToLower(video.Title), strings.ToLower(params.Query)) {
			continue
		}
		out = append(out, video)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start := (params.Page - 1) * params.Limit
	if start >= len(out) {
		return nil, nil
	}
	end := start + params.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *inMemoryVideoStore) Update(_ context.Context, id, title, description, thumbnailURL string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}
	if thumbnailURL != "" {
		video.Thumbnail = thumbnailURL
	}
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *inMemoryVideoStore) TogglePublish(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) IncrementViews(_ context.Context, id string) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

type inMemoryTweetStore struct {
	tweets map[string]models.Tweet
}

func newInMemoryTweetStore() *inMemoryTweetStore {
	return &inMemoryTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *inMemoryTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *inMemoryTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *inMemoryTweetStore) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	var out []models.Tweet
	for _, tweet := range s.tweets {
		if tweet.OwnerID == ownerID {
			out = append(out, tweet)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *inMemoryTweetStore) Update(_ context.Context, id, content string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	tweet.Content = content
	s.tweets[id] = tweet
	return tweet, nil
}

func (s *inMemoryTweetStore) Delete(_ context.Context, id string) error {
	if _, ok := s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return nil
}

type inMemoryCommentStore struct {
	comments map[string]models.Comment
}

func newInMemoryCommentStore() *inMemoryCommentStore {
	return &inMemoryCommentStore{comments: make(map[string]models.Comment)}
}

func (s *inMemoryCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.comments[comment.ID] = comment
	return nil
}

func (s *inMemoryCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *inMemoryCommentStore) ListByVideo(_ context.Context, videoID string, page, limit int) ([]models.Comment, error) {
	var out []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start := (page - 1) * limit
	if start >= len(out) {
		return nil, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *inMemoryCommentStore) Update(_ context.Context, id, content string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *inMemoryCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type inMemoryLikeStore struct {
	likes  map[string]models.Like
	videos *inMemoryVideoStore
	nextID int
}

func newInMemoryLikeStore(videos *inMemoryVideoStore) *inMemoryLikeStore {
	return &inMemoryLikeStore{likes: make(map[string]models.Like), videos: videos}
}

func (s *inMemoryLikeStore) ToggleVideoLike(_ context.Context, userID, videoID string) (models.Like, bool, error) {
	return s.toggle(userID, &videoID, nil, nil)
}

func (s *inMemoryLikeStore) ToggleCommentLike(_ context.Context, userID, commentID string) (models.Like, bool, error) {
	return s.toggle(userID, nil, &commentID, nil)
}

func (s *inMemoryLikeStore) ToggleTweetLike(_ context.Context, userID, tweetID string) (models.Like, bool, error) {
	return s.toggle(userID, nil, nil, &tweetID)
}

func (s *inMemoryLikeStore) toggle(userID string, videoID, commentID, tweetID *string) (models.Like, bool, error) {
	match := func(a, b *string) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return *a == *b
	}
	for id, like := range s.likes {
		if like.LikedBy == userID && match(like.VideoID, videoID) && match(like.CommentID, commentID) && match(like.TweetID, tweetID) {
			delete(s.likes, id)
			return models.Like{}, false, nil
		}
	}

	s.nextID++
	like := models.Like{
		ID:        fmt.Sprintf("like-%d", s.nextID),
		LikedBy:   userID,
		VideoID:   videoID,
		CommentID: commentID,
		TweetID:   tweetID,
		CreatedAt: time.Now().UTC(),
	}
	s.likes[like.ID] = like
	return like, true, nil
}

func (s *inMemoryLikeStore) ListLikedVideos(_ context.Context, userID string) ([]models.Video, error) {
	var out []models.Video
	for _, like := range s.likes {
		if like.LikedBy != userID || like.VideoID == nil {
			continue
		}
		if video, ok := s.videos.videos[*like.VideoID]; ok {
			out = append(out, video)
		}
	}
	return out, nil
}

type inMemoryPlaylistStore struct {
	playlists map[string]models.Playlist
}

func newInMemoryPlaylistStore() *inMemoryPlaylistStore {
	return &inMemoryPlaylistStore{playlists: make(map[string]models.Playlist)}
}

func (s *inMemoryPlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *inMemoryPlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *inMemoryPlaylistStore) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	var out []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, playlist)
		}
	}
	return out, nil
}

func (s *inMemoryPlaylistStore) Update(_ context.Context, id, name, description string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	if name != "" {
		playlist.Name = name
	}
	if description != "" {
		playlist.Description = description
	}
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *inMemoryPlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *inMemoryPlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range playlist.Videos {
		if existing == videoID {
			return nil
		}
	}
	playlist.Videos = append(playlist.Videos, videoID)
	s.playlists[playlistID] = playlist
	return nil
}

func (s *inMemoryPlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, existing := range playlist.Videos {
		if existing == videoID {
			playlist.Videos = append(playlist.Videos[:i], playlist.Videos[i+1:]...)
			s.playlists[playlistID] = playlist
			return nil
		}
	}
	return repositories.ErrNotFound
}

type inMemorySubscriptionStore struct {
	users  *inMemoryUserStore
	nextID int
}

func newInMemorySubscriptionStore(users *inMemoryUserStore) *inMemorySubscriptionStore {
	return &inMemorySubscriptionStore{users: users}
}

func (s *inMemorySubscriptionStore) Toggle(_ context.Context, channelID, subscriberID string) (models.Subscription, bool, error) {
	for i, sub := range s.users.subs {
		if sub.ChannelID == channelID && sub.SubscriberID == subscriberID {
			s.users.subs = append(s.users.subs[:i], s.users.subs[i+1:]...)
			return models.Subscription{}, false, nil
		}
	}

	s.nextID++
	sub := models.Subscription{
		ID:           fmt.Sprintf("sub-%d", s.nextID),
		ChannelID:    channelID,
		SubscriberID: subscriberID,
		CreatedAt:    time.Now().UTC(),
	}
	s.users.subs = append(s.users.subs, sub)
	return sub, true, nil
}

type fakeTokenMinter struct {
	pair      models.TokenPair
	mintErr   error
	verifyID  string
	verifyErr error
}

func (f fakeTokenMinter) MintPair(string) (models.TokenPair, error) {
	if f.mintErr != nil {
		return models.TokenPair{}, f.mintErr
	}
	return f.pair, nil
}

func (f fakeTokenMinter) VerifyRefresh(string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.verifyID, nil
}

type fakeMediaStorage struct {
	uploads  int
	err      error
	duration float64
}

func (f *fakeMediaStorage) Upload(_ context.Context, localPath string) (media.UploadResult, error) {
	os.Remove(localPath)
	if f.err != nil {
		return media.UploadResult{}, f.err
	}
	f.uploads++
	return media.UploadResult{
		URL:      fmt.Sprintf("https://cdn.example.com/%s", filepath.Base(localPath)),
		Duration: f.duration,
	}, nil
}
