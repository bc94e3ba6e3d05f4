package handlers

import (
	"net/http"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/utils"

	"go.uber.org/zap"
)

// AccountHandler - регистрация, вход и профиль.
type AccountHandler struct {
	Service *services.AccountService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewAccountHandler создаёт новый экземпляр AccountHandler.
func NewAccountHandler(service *services.AccountService, logger *zap.Logger, timeout time.Duration) *AccountHandler {
	return &AccountHandler{Service: service, Logger: logger, Timeout: timeout}
}

// Register обрабатывает POST /api/auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	resp, err := h.Service.Register(ctx, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Registration successful.", resp)
}

// Login обрабатывает POST /api/auth/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	resp, err := h.Service.Login(ctx, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Login successful.", resp)
}

func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	user, err := h.Service.GetProfile(ctx, actor)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Profile retrieved.", user)
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.ProfileUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	user, err := h.Service.UpdateProfile(ctx, actor, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Profile updated.", user)
}
