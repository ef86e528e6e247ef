package handler

import (
	"net/http"
	"time"

	"splitledger/internal/domain/user"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      user.Profile `json:"user"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	created, err := h.Users.Register(r.Context(), user.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, "auth.register", err, "email", req.Email)
		return
	}

	h.writeToken(w, http.StatusCreated, created)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	found, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "auth.login", err, "email", req.Email)
		return
	}

	h.writeToken(w, http.StatusOK, found)
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	found, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "auth.me", err, "user_id", userID)
		return
	}

	writeJSON(w, http.StatusOK, found.Profile())
}

func (h *Handlers) writeToken(w http.ResponseWriter, status int, account *user.User) {
	if h.tokens == nil {
		writeError(w, http.StatusInternalServerError, "auth_not_configured", "token issuing not configured")
		return
	}
	token, expiresAt, err := h.tokens.Issue(account.ID, account.Email)
	if err != nil {
		h.log.InternalError("auth: issue token failed", err, "user_id", account.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, status, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      account.Profile(),
	})
}
