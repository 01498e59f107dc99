package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// UserHandler implements registration, the authentication lifecycle, profile
// mutation, and the channel profile / watch history read paths.
type UserHandler struct {
	Users     UserStore
	Tokens    TokenMinter
	Media     media.Storage
	Limiter   RateLimiter
	UploadDir string
	NowFunc   func() time.Time
}

// Register handles POST /api/v1/users/register requests. The avatar file is
// required; the cover image is optional.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests, slow down")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.TrimSpace(r.FormValue("email"))
	fullName := strings.TrimSpace(r.FormValue("fullname"))
	password := strings.TrimSpace(r.FormValue("password"))

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "All fields are required")
		return
	}

	if _, err := h.Users.FindByUsernameOrEmail(ctx, username, email); err == nil {
		respondError(ctx, w, http.StatusConflict, "User with email or username already exists")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register user lookup failed", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "Unable to verify existing accounts")
		return
	}

	avatarPath, err := saveUpload(r, "avatar", h.UploadDir)
	if err != nil {
		if errors.Is(err, errMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "Avatar file is required")
			return
		}
		logger.Error("register avatar save failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	avatar, err := h.Media.Upload(ctx, avatarPath)
	if err != nil {
		logger.Error("register avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Avatar upload failed")
		return
	}

	var coverURL string
	if coverPath, err := saveUpload(r, "coverImage", h.UploadDir); err == nil {
		cover, err := h.Media.Upload(ctx, coverPath)
		if err != nil {
			logger.Error("register cover upload failed", "error", err)
			respondError(ctx, w, http.StatusBadRequest, "Cover image upload failed")
			return
		}
		coverURL = cover.URL
	} else if !errors.Is(err, errMissingFile) {
		logger.Error("register cover save failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "User with email or username already exists")
			return
		}
		logger.Error("register failed to create user", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	created, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		logger.Error("register re-read failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while registering the user")
		return
	}

	respondData(ctx, w, http.StatusCreated, created, "User registered successfully")
}

// Login handles POST /api/v1/users/login requests.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests, slow down")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" && req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "Username or email is required")
		return
	}

	user, err := h.Users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User does not exist!")
			return
		}
		logger.Error("login user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Invalid user credentials!")
		return
	}

	pair, err := h.issueTokens(r, w, user.ID)
	if err != nil {
		return
	}

	respondData(ctx, w, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles POST /api/v1/users/logout requests.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := h.Users.UpdateRefreshToken(ctx, caller.ID, ""); err != nil {
		logging.FromContext(ctx).Error("logout failed to clear refresh token", "error", err, "userId", caller.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	clearAuthCookies(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "User logged out successfully")
}

// Refresh handles POST /api/v1/users/refresh-token requests. The incoming
// refresh token must match the one persisted for the user; a mismatch means
// the token was rotated or reused and the request is rejected.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	incoming := refreshTokenFromRequest(r)
	if incoming == "" {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	userID, err := h.Tokens.VerifyRefresh(incoming)
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	if user.RefreshToken != incoming {
		logger.Warn("refresh token mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Refresh token has expired or is invalid")
		return
	}

	pair, err := h.issueTokens(r, w, user.ID)
	if err != nil {
		return
	}

	respondData(ctx, w, http.StatusOK, pair, "Access token refreshed successfully")
}

// ChangePassword handles POST /api/v1/users/change-password requests.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "Old and new passwords are required")
		return
	}

	user, err := h.Users.FindByID(ctx, caller.ID)
	if err != nil {
		logger.Error("change password lookup failed", "error", err, "userId", caller.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid old password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("change password hash failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		logger.Error("change password update failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user requests.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	respondData(ctx, w, http.StatusOK, caller, "Current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account requests.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FullName == "" && req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "At least one of fullname or email is required")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, caller.ID, req.FullName, req.Email)
	if err != nil {
		respondStoreError(ctx, w, err, "User does not exist!")
		return
	}

	respondData(ctx, w, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar requests.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "Avatar file is missing", "Avatar image updated successfully", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image requests.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "Cover image file is missing", "Cover image updated successfully", h.Users.UpdateCoverImage)
}

func (h UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field, missingMsg, successMsg string,
	update func(ctx context.Context, id, url string) (models.User, error),
) {
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

	path, err := saveUpload(r, field, h.UploadDir)
	if err != nil {
		if errors.Is(err, errMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, missingMsg)
			return
		}
		logger.Error("image save failed", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	asset, err := h.Media.Upload(ctx, path)
	if err != nil {
		logger.Error("image upload failed", "field", field, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Error while uploading image")
		return
	}

	user, err := update(ctx, caller.ID, asset.URL)
	if err != nil {
		respondStoreError(ctx, w, err, "User does not exist!")
		return
	}

	respondData(ctx, w, http.StatusOK, user, successMsg)
}

// ChannelProfile handles GET /api/v1/users/c/{username} requests. Anonymous
// callers are supported; isSubscribed is false for them.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "Username is missing")
		return
	}

	var viewerID string
	if caller, ok := auth.UserFromContext(ctx); ok {
		viewerID = caller.ID
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		respondStoreError(ctx, w, err, "Channel does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history requests.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	// The caller row should always exist post-authentication; a missing row
	// fails loudly instead of dereferencing a ghost user.
	if _, err := h.Users.FindByID(ctx, caller.ID); err != nil {
		respondStoreError(ctx, w, err, "User does not exist!")
		return
	}

	history, err := h.Users.WatchHistory(ctx, caller.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch history query failed", "error", err, "userId", caller.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}

	respondData(ctx, w, http.StatusOK, history, "Watch history fetched successfully")
}

func (h UserHandler) issueTokens(r *http.Request, w http.ResponseWriter, userID string) (models.TokenPair, error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	pair, err := h.Tokens.MintPair(userID)
	if err != nil {
		logger.Error("failed to mint token pair", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while generating tokens")
		return models.TokenPair{}, err
	}

	if err := h.Users.UpdateRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		logger.Error("failed to persist refresh token", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "Something went wrong while generating tokens")
		return models.TokenPair{}, err
	}

	setAuthCookies(w, pair)
	return pair, nil
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func setAuthCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
		})
	}
}

func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}
