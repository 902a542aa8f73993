package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/middlewares"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/utils"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=cliente negocio repartidor"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	Home        string      `json:"home"`
	AccessToken string      `json:"access_token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := models.Role(req.Role)

	exists, err := h.accounts.IsUserExists(r.Context(), req.Email)
	if err != nil {
		logrus.WithError(err).Error("failed to check user existence")
		utils.RespondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}
	if exists {
		utils.RespondError(w, http.StatusConflict, "user already exists")
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		utils.RespondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	userID, err := h.accounts.CreateAccount(r.Context(), strings.TrimSpace(req.Name), req.Email, hashedPassword, role, req.Phone)
	if errors.Is(err, dbhelper.ErrDuplicate) {
		utils.RespondError(w, http.StatusConflict, "user already exists")
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("role", role).Error("failed to create account")
		utils.RespondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.issueSession(w, models.User{ID: userID, Name: req.Name, Email: req.Email, Role: role}, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if errors.Is(err, dbhelper.ErrInvalidCredentials) {
		utils.RespondError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}
	if err != nil {
		logrus.WithError(err).Error("failed to authenticate user")
		utils.RespondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.issueSession(w, user, http.StatusOK)
}

// issueSession signs the token pair and starts loading the user's mirror.
func (h *Handler) issueSession(w http.ResponseWriter, user models.User, status int) {
	accessToken, refreshToken, err := utils.GenerateTokens(user.ID, user.Role)
	if err != nil {
		logrus.WithError(err).Error("failed to generate tokens")
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	h.sessions.Start(user.ID)
	utils.SetRefreshCookie(w, refreshToken)
	utils.RespondJSON(w, status, authResponse{
		UserID:      user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Home:        user.Role.Home(),
		AccessToken: accessToken,
	})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "refresh token missing")
		return
	}
	claims, err := middlewares.ParseToken(cookie.Value, middlewares.RefreshToken)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	// an archived account cannot refresh
	if _, err := h.accounts.GetUser(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, dbhelper.ErrNotFound) {
			utils.ClearRefreshCookie(w)
			utils.RespondError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		logrus.WithError(err).Error("failed to load user for refresh")
		utils.RespondError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(claims.UserID, claims.Role)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	utils.SetRefreshCookie(w, refreshToken)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"access_token": accessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.sessions.End(claims.UserID)
	utils.ClearRefreshCookie(w)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Me returns the signed-in account together with where its role lands.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.accounts.GetUser(r.Context(), claims.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"user": user,
		"home": user.Role.Home(),
	})
}
