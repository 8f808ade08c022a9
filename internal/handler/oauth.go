package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/Sathishchary/Electron-Angular-App/internal/auth"
	"github.com/Sathishchary/Electron-Angular-App/internal/service"
)

// OAuthHandler drives the browser half of the OAuth2 flows.
//
// FLOW:
//
//	GET /auth/oauth2/{provider}/login    → set state cookie, redirect to provider
//	GET /auth/oauth2/{provider}/callback → verify state, exchange code,
//	                                       resolve identity, issue JWT,
//	                                       redirect to the frontend
//
// The frontend never talks to the provider directly; it opens the login URL
// and eventually receives the token as a query parameter on its callback
// route.
type OAuthHandler struct {
	providers   map[string]auth.Provider
	authService *service.AuthService
	frontendURL string
	logger      *slog.Logger
}

// NewOAuthHandler creates an OAuthHandler for the given providers, keyed by
// Provider.Name(). frontendURL is the browser destination after the flow.
func NewOAuthHandler(
	providers map[string]auth.Provider,
	authService *service.AuthService,
	frontendURL string,
	logger *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		providers:   providers,
		authService: authService,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// HandleProviderLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /auth/oauth2/{provider}/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When the provider calls back, HandleProviderCallback verifies the returned
// state matches the cookie, proving the flow was initiated by this server.
func (h *OAuthHandler) HandleProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[chi.URLParam(r, "provider")]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "unknown OAuth2 provider",
		})
		return
	}

	// Random, unguessable state value
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes — long enough to approve, short enough to limit risk
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleProviderCallback completes an OAuth2 login.
//
// HTTP: GET /auth/oauth2/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for an identity assertion
//  3. Resolve the identity to a local user (create/link as needed)
//  4. Issue a JWT and redirect the browser to
//     {frontend}/auth/callback?token=…
//
// ANY failure — denied authorization, bad state, exchange error, resolution
// error — redirects to {frontend}/login?error=oauth2_failed instead of
// rendering JSON: a browser is on the other end of this request, not the
// frontend's fetch code. The underlying cause is logged.
func (h *OAuthHandler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	provider, ok := h.providers[providerName]
	if !ok {
		h.redirectFailure(w, r)
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch or missing state cookie",
			slog.String("provider", providerName),
		)
		h.redirectFailure(w, r)
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// Provider-reported error (user denied authorization)
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied",
			slog.String("provider", providerName),
			slog.String("error", errParam),
		)
		h.redirectFailure(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectFailure(w, r)
		return
	}

	// --- Step 2: Exchange code for an identity assertion ---
	ident, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		h.redirectFailure(w, r)
		return
	}

	// --- Steps 3 & 4: resolve, issue, redirect ---
	result, err := h.authService.LoginWithProvider(r.Context(), ident)
	if err != nil {
		h.logger.Error("oauth callback: identity resolution failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		h.redirectFailure(w, r)
		return
	}

	target := h.frontendURL + "/auth/callback?" + url.Values{"token": {result.Token}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// redirectFailure sends the browser back to the frontend login page with an
// error marker.
func (h *OAuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login?error=oauth2_failed", http.StatusFound)
}
