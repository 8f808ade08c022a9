package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Sathishchary/Electron-Angular-App/internal/auth"
	"github.com/Sathishchary/Electron-Angular-App/internal/service"
)

// AuthHandler exposes the JSON auth API.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin      → POST /auth/login: email/password → token + profile
//   - HandleMe         → GET /auth/me: bearer token → current profile
//   - HandleDisconnect → DELETE /auth/oauth2/{provider}: remove a link
//
// The handler never touches repositories directly — all decisions live in
// the service layer; this layer parses requests and writes responses.
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// loginRequest is the POST /auth/login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates with email and password and returns
// {token, user}.
//
// HTTP: POST /auth/login
//
// Status codes: 200 on success, 400 malformed body, 404 unknown email,
// 401 wrong password.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be valid JSON",
		})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "email is required",
		})
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleMe returns the currently authenticated user's profile, including
// provider links.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth middleware sets the email in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	// Middleware has already validated the JWT and set the email in context.
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	profile, err := h.authService.CurrentUser(r.Context(), email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleDisconnect removes the caller's link for the provider named in the
// URL. Other links and the account itself are untouched.
//
// HTTP: DELETE /auth/oauth2/{provider}
// Auth: Required
//
// Status codes: 200 on success, 404 when the caller has no link for that
// provider.
func (h *AuthHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	provider := chi.URLParam(r, "provider")

	if err := h.authService.DisconnectProvider(r.Context(), email, provider); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "provider disconnected",
	})
}
