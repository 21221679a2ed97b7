package handler

import (
	"net/http"

	"paperTrader/internal/auth"
	"paperTrader/internal/ports"
	"paperTrader/internal/server/middleware"
)

// AuthHandler issues and revokes bearer tokens for wallet-based sign-in.
type AuthHandler struct {
	sessions *auth.Manager
	logger   ports.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(sessions *auth.Manager, logger ports.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// Login exchanges a wallet address for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "walletAddress is required")
		return
	}

	session, err := h.sessions.Login(r.Context(), req.WalletAddress)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Logout revokes the token carried by the request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "no token to revoke")
		return
	}
	h.sessions.Revoke(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
