package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fivelearn-engagement/internal/domain"
)

// Register handles account creation
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.auth.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, domain.ErrEmailTaken):
			h.writeError(w, http.StatusConflict, err)
		default:
			h.logger.Error("failed to register", "error", err)
			h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    result,
	})
}

// Login handles credential verification and session creation
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLogin) {
			h.writeError(w, http.StatusUnauthorized, err)
			return
		}
		h.logger.Error("failed to login", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, result)
}

// Logout deletes the caller's session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	if err := h.auth.Logout(r.Context(), userID); err != nil {
		h.logger.Error("failed to logout", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "logged out"})
}

// Refresh mints a fresh credential for the caller
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	result, err := h.auth.Refresh(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to refresh", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, result)
}

// Me returns the caller's account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to get user", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, user)
}
