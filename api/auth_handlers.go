package api

import (
	"net/http"

	"github.com/warp/leave-engine/auth"
)

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates an account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	a, err := h.Credentials.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "User " + a.Name + " registered successfully",
	})
}

// Login exchanges name and password for a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, a, err := h.Credentials.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "Login " + a.Name + " successful",
		Token:   token,
	})
}

// Me returns the caller's account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, err := h.Credentials.Me(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		Message: "User retrieved successfully",
		User:    toUserDTO(*a),
	})
}
