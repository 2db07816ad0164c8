package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/rs/zerolog"
)

// UserHandler - обработчики регистрации, входа и пользователей.
type UserHandler struct {
	Service *services.UserService
	Logger  zerolog.Logger
	Timeout time.Duration
}

// NewUserHandler создаёт новый экземпляр UserHandler.
func NewUserHandler(service *services.UserService, logger zerolog.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{Service: service, Logger: logger, Timeout: timeout}
}

// Register обрабатывает регистрацию.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	resp, err := h.Service.Register(ctx, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to register user")
		return
	}
	utils.SendJSON(w, http.StatusCreated, resp)
}

// Login обрабатывает вход.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	resp, err := h.Service.Login(ctx, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to log in")
		return
	}
	utils.SendJSON(w, http.StatusOK, resp)
}

// Profile возвращает профиль текущего пользователя.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	user, err := h.Service.Profile(ctx, actor)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get profile")
		return
	}
	utils.SendJSON(w, http.StatusOK, user)
}

// UpdateProfile изменяет профиль текущего пользователя.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.ProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	user, err := h.Service.UpdateProfile(ctx, actor, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update profile")
		return
	}
	utils.SendJSON(w, http.StatusOK, user)
}

// ListUsers возвращает список пользователей.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	page, err := utils.ParsePage(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	users, err := h.Service.ListUsers(ctx, actor, page)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch users")
		return
	}
	utils.SendJSON(w, http.StatusOK, users)
}

// GetUser возвращает пользователя по ID.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	user, err := h.Service.GetUser(ctx, actor, r.PathValue("userId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get user")
		return
	}
	utils.SendJSON(w, http.StatusOK, user)
}

// UpdateUser меняет роль, отдел или активность пользователя.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.UserUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	user, err := h.Service.UpdateUser(ctx, actor, r.PathValue("userId"), req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update user")
		return
	}
	utils.SendJSON(w, http.StatusOK, user)
}
