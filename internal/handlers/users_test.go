package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

func seedUser(t *testing.T, store *inMemoryUserStore, id, username, password string) models.User {
	t.Helper()
	user := models.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		FullName: username + " example",
		Avatar:   "https://cdn.example.com/" + username + ".png",
		Password: mustHash(t, password),
	}
	store.users[id] = user
	return user
}

func authed(r *http.Request, user models.User) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), user))
}

func decodeEnvelope(t *testing.T, body io.Reader) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeErrorEnvelope(t *testing.T, body io.Reader) apiErrorResponse {
	t.Helper()
	var resp apiErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", field, err)
		}
		if _, err := part.Write([]byte("fake-bytes")); err != nil {
			t.Fatalf("write form file %s: %v", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func newUserHandler(store *inMemoryUserStore) UserHandler {
	return UserHandler{
		Users:     store,
		Tokens:    fakeTokenMinter{pair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh"}},
		Media:     &fakeMediaStorage{},
		UploadDir: "",
		NowFunc:   func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestUserHandlerRegister(t *testing.T) {
	store := newInMemoryUserStore()
	handler := newUserHandler(store)
	handler.UploadDir = t.TempDir()

	body, contentType := multipartBody(t, map[string]string{
		"username": "Alice",
		"email":    "alice@example.com",
		"fullname": "Alice Doe",
		"password": "hunter22",
	}, map[string]string{"avatar": "avatar.png"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec.Body)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}

	payload, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var created models.User
	if err := json.Unmarshal(payload, &created); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if created.Username != "alice" {
		t.Fatalf("expected lowercased username, got %q", created.Username)
	}
	if created.Avatar == "" {
		t.Fatal("expected avatar URL to be set")
	}

	// The hash and refresh token must never appear in the serialized payload.
	if strings.Contains(string(payload), "hunter22") || strings.Contains(string(payload), "password") {
		t.Fatalf("credentials leaked in response: %s", payload)
	}
}

func TestUserHandlerRegisterMissingFields(t *testing.T) {
	handler := newUserHandler(newInMemoryUserStore())

	body, contentType := multipartBody(t, map[string]string{"username": "alice"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUserHandlerRegisterMissingAvatar(t *testing.T) {
	handler := newUserHandler(newInMemoryUserStore())
	handler.UploadDir = t.TempDir()

	body, contentType := multipartBody(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"fullname": "Alice Doe",
		"password": "hunter22",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	resp := decodeErrorEnvelope(t, rec.Body)
	if resp.Message != "Avatar file is required" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestUserHandlerRegisterConflict(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)
	handler.UploadDir = t.TempDir()

	body, contentType := multipartBody(t, map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"fullname": "Alice Doe",
		"password": "hunter22",
	}, map[string]string{"avatar": "avatar.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
}

func TestUserHandlerLogin(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "hunter22"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var foundAccess, foundRefresh bool
	for _, cookie := range rec.Result().Cookies() {
		switch cookie.Name {
		case "accessToken":
			foundAccess = cookie.HttpOnly && cookie.Secure && cookie.Value != ""
		case "refreshToken":
			foundRefresh = cookie.HttpOnly && cookie.Secure && cookie.Value != ""
		}
	}
	if !foundAccess || !foundRefresh {
		t.Fatal("expected HttpOnly secure auth cookies to be set")
	}

	if store.users["user-1"].RefreshToken != "refresh" {
		t.Fatalf("expected refresh token to be persisted, got %q", store.users["user-1"].RefreshToken)
	}
}

func TestUserHandlerLoginUnknownUser(t *testing.T) {
	handler := newUserHandler(newInMemoryUserStore())

	body, _ := json.Marshal(loginRequest{Username: "ghost", Password: "whatever"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
	resp := decodeErrorEnvelope(t, rec.Body)
	if resp.Message != "User does not exist!" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestUserHandlerLoginWrongPassword(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	resp := decodeErrorEnvelope(t, rec.Body)
	if resp.Message != "Invalid user credentials!" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestUserHandlerLogoutClearsRefreshToken(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "user-1", "alice", "hunter22")
	store.users["user-1"] = func(u models.User) models.User { u.RefreshToken = "refresh"; return u }(store.users["user-1"])
	handler := newUserHandler(store)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), user)
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if store.users["user-1"].RefreshToken != "" {
		t.Fatal("expected refresh token to be cleared")
	}
}

func TestUserHandlerRefreshRotatesToken(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "user-1", "alice", "hunter22")
	store.users["user-1"] = func(u models.User) models.User { u.RefreshToken = "old-refresh"; return u }(store.users["user-1"])

	handler := newUserHandler(store)
	handler.Tokens = fakeTokenMinter{
		pair:     models.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"},
		verifyID: "user-1",
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if store.users["user-1"].RefreshToken != "new-refresh" {
		t.Fatalf("expected rotated refresh token, got %q", store.users["user-1"].RefreshToken)
	}
}

func TestUserHandlerRefreshRejectsStaleToken(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "user-1", "alice", "hunter22")
	store.users["user-1"] = func(u models.User) models.User { u.RefreshToken = "current-refresh"; return u }(store.users["user-1"])

	handler := newUserHandler(store)
	handler.Tokens = fakeTokenMinter{verifyID: "user-1"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "stale-refresh"})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "hunter22", NewPassword: "correct horse"})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body)), user)
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store.users["user-1"].Password), []byte("correct horse")); err != nil {
		t.Fatal("expected new password to verify")
	}
}

func TestUserHandlerChangePasswordWrongOld(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "wrong", NewPassword: "whatever"})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body)), user)
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUserHandlerUpdateAccount(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)

	body, _ := json.Marshal(updateAccountRequest{FullName: "Alice Cooper"})
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-account", bytes.NewReader(body)), user)
	rec := httptest.NewRecorder()

	handler.UpdateAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if store.users["user-1"].FullName != "Alice Cooper" {
		t.Fatalf("expected full name updated, got %q", store.users["user-1"].FullName)
	}
	if store.users["user-1"].Email != "alice@example.com" {
		t.Fatal("expected email untouched")
	}
}

func TestUserHandlerUpdateAvatar(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "user-1", "alice", "hunter22")
	handler := newUserHandler(store)
	handler.UploadDir = t.TempDir()

	body, contentType := multipartBody(t, nil, map[string]string{"avatar": "new-avatar.png"})
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", body), user)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !strings.Contains(store.users["user-1"].Avatar, "cdn.example.com") {
		t.Fatalf("expected avatar URL to be replaced, got %q", store.users["user-1"].Avatar)
	}
}

func TestUserHandlerChannelProfile(t *testing.T) {
	store := newInMemoryUserStore()
	channel := seedUser(t, store, "channel-1", "creator", "hunter22")
	viewer := seedUser(t, store, "viewer-1", "viewer", "hunter22")
	other := seedUser(t, store, "viewer-2", "other", "hunter22")

	store.subs = []models.Subscription{
		{ID: "sub-1", ChannelID: channel.ID, SubscriberID: viewer.ID},
		{ID: "sub-2", ChannelID: channel.ID, SubscriberID: other.ID},
		{ID: "sub-3", ChannelID: other.ID, SubscriberID: channel.ID},
	}

	handler := newUserHandler(store)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/c/creator", nil), viewer)
	req.SetPathValue("username", "creator")
	rec := httptest.NewRecorder()

	handler.ChannelProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec.Body)
	payload, _ := json.Marshal(resp.Data)
	var profile models.ChannelProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}

	if profile.SubscribersCount != 2 {
		t.Fatalf("expected 2 subscribers, got %d", profile.SubscribersCount)
	}
	if profile.ChannelsSubscribedToCount != 1 {
		t.Fatalf("expected 1 subscribed channel, got %d", profile.ChannelsSubscribedToCount)
	}
	if !profile.IsSubscribed {
		t.Fatal("expected viewer to be marked subscribed")
	}
}

func TestUserHandlerChannelProfileAnonymous(t *testing.T) {
	store := newInMemoryUserStore()
	channel := seedUser(t, store, "channel-1", "creator", "hunter22")
	viewer := seedUser(t, store, "viewer-1", "viewer", "hunter22")
	store.subs = []models.Subscription{{ID: "sub-1", ChannelID: channel.ID, SubscriberID: viewer.ID}}

	handler := newUserHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/c/creator", nil)
	req.SetPathValue("username", "creator")
	rec := httptest.NewRecorder()

	handler.ChannelProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	resp := decodeEnvelope(t, rec.Body)
	payload, _ := json.Marshal(resp.Data)
	var profile models.ChannelProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if profile.IsSubscribed {
		t.Fatal("expected anonymous viewer to not be subscribed")
	}
}

func TestUserHandlerChannelProfileUnknown(t *testing.T) {
	handler := newUserHandler(newInMemoryUserStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ghost", nil)
	req.SetPathValue("username", "ghost")
	rec := httptest.NewRecorder()

	handler.ChannelProfile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
	resp := decodeErrorEnvelope(t, rec.Body)
	if resp.Message != "Channel does not exist" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestUserHandlerWatchHistoryPreservesOrder(t *testing.T) {
	store := newInMemoryUserStore()
	videos := newInMemoryVideoStore()
	store.videos = videos

	owner := seedUser(t, store, "owner-1", "creator", "hunter22")
	viewer := seedUser(t, store, "viewer-1", "viewer", "hunter22")

	for i, id := range []string{"video-a", "video-b", "video-c"} {
		videos.videos[id] = models.Video{ID: id, OwnerID: owner.ID, Title: id, CreatedAt: time.Date(2024, time.January, i+1, 0, 0, 0, 0, time.UTC)}
	}
	store.history[viewer.ID] = []string{"video-b", "video-a", "video-b"}

	handler := newUserHandler(store)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), viewer)
	rec := httptest.NewRecorder()

	handler.WatchHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec.Body)
	payload, _ := json.Marshal(resp.Data)
	var history []models.WatchedVideo
	if err := json.Unmarshal(payload, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}

	want := []string{"video-b", "video-a", "video-b"}
	if len(history) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(history))
	}
	for i, entry := range history {
		if entry.ID != want[i] {
			t.Fatalf("entry %d: expected %q got %q", i, want[i], entry.ID)
		}
		if entry.Owner.Username != "creator" {
			t.Fatalf("entry %d: expected owner projection, got %+v", i, entry.Owner)
		}
	}
}

func TestUserHandlerWatchHistoryEmpty(t *testing.T) {
	store := newInMemoryUserStore()
	store.videos = newInMemoryVideoStore()
	viewer := seedUser(t, store, "viewer-1", "viewer", "hunter22")
	handler := newUserHandler(store)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), viewer)
	rec := httptest.NewRecorder()

	handler.WatchHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}
