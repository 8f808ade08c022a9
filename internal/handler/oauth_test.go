package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/Sathishchary/Electron-Angular-App/internal/auth"
	"github.com/Sathishchary/Electron-Angular-App/internal/handler"
	"github.com/Sathishchary/Electron-Angular-App/internal/model"
	"github.com/Sathishchary/Electron-Angular-App/internal/repository/sqlite"
	"github.com/Sathishchary/Electron-Angular-App/internal/service"
)

const testFrontendURL = "http://localhost:4200"

// fakeProvider satisfies auth.Provider without any network calls. Exchange
// returns the configured identity or error regardless of the code.
type fakeProvider struct {
	name        string
	identity    *auth.Identity
	exchangeErr error

	// lastCode records what the handler passed to Exchange.
	lastCode string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://provider.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.Identity, error) {
	p.lastCode = code
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.identity, nil
}

// newOAuthTestRouter mounts the OAuth routes over a real service stack with
// the given fake provider registered as "google".
func newOAuthTestRouter(t *testing.T, provider *fakeProvider) (*chi.Mux, *service.AuthService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}

	users := sqlite.NewUserStore(db)
	links := sqlite.NewProviderLinkStore(db)
	identityService := service.NewIdentityService(users, links, logger)
	authService := service.NewAuthService(
		users, links, identityService, tokens, auth.NewPasswordServiceForTest(4), logger,
	)

	oauthHandler := handler.NewOAuthHandler(
		map[string]auth.Provider{provider.name: provider},
		authService,
		testFrontendURL,
		logger,
	)

	router := chi.NewRouter()
	router.Get("/auth/oauth2/{provider}/login", oauthHandler.HandleProviderLogin)
	router.Get("/auth/oauth2/{provider}/callback", oauthHandler.HandleProviderCallback)
	return router, authService
}

func googleFake() *fakeProvider {
	return &fakeProvider{
		name: model.ProviderGoogle,
		identity: &auth.Identity{
			Provider:   model.ProviderGoogle,
			ExternalID: "g-123",
			Email:      "jane@example.com",
			FirstName:  "Jane",
		},
	}
}

// stateCookie pulls the oauth_state cookie out of a login response.
func stateCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			return c
		}
	}
	t.Fatal("no oauth_state cookie set")
	return nil
}

// =========================================================================
// GET /auth/oauth2/{provider}/login
// =========================================================================

func TestHandleProviderLogin(t *testing.T) {
	router, _ := newOAuthTestRouter(t, googleFake())

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth2/google/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	cookie := stateCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// The redirect must carry the same state the cookie holds
	location, err := url.Parse(rec.Header().Get("Location"))
	assert.NoError(t, err)
	assert.Equal(t, "provider.example.com", location.Host)
	assert.Equal(t, cookie.Value, location.Query().Get("state"))
}

func TestHandleProviderLogin_UnknownProvider(t *testing.T) {
	router, _ := newOAuthTestRouter(t, googleFake())

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth2/github/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown OAuth2 provider")
}

// =========================================================================
// GET /auth/oauth2/{provider}/callback
// =========================================================================

// callback performs the callback request with the given state cookie/params.
func callback(router *chi.Mux, cookie *http.Cookie, params url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/oauth2/google/callback?"+params.Encode(), nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleProviderCallback(t *testing.T) {
	provider := googleFake()
	router, authService := newOAuthTestRouter(t, provider)

	cookie := &http.Cookie{Name: "oauth_state", Value: "state-abc"}
	rec := callback(router, cookie, url.Values{"state": {"state-abc"}, "code": {"code-xyz"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "code-xyz", provider.lastCode)

	// Browser lands on the frontend callback with a working token
	location, err := url.Parse(rec.Header().Get("Location"))
	assert.NoError(t, err)
	assert.Equal(t, testFrontendURL+"/auth/callback", location.Scheme+"://"+location.Host+location.Path)

	token := location.Query().Get("token")
	assert.NotEmpty(t, token)
	email, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)

	// The account was created as a side effect of the first login
	profile, err := authService.CurrentUser(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	assert.Len(t, profile.Providers, 1)
}

func TestHandleProviderCallback_StateMismatch(t *testing.T) {
	router, _ := newOAuthTestRouter(t, googleFake())

	cookie := &http.Cookie{Name: "oauth_state", Value: "state-abc"}
	rec := callback(router, cookie, url.Values{"state": {"state-FORGED"}, "code": {"code-xyz"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login?error=oauth2_failed", rec.Header().Get("Location"))
}

func TestHandleProviderCallback_MissingStateCookie(t *testing.T) {
	router, _ := newOAuthTestRouter(t, googleFake())

	rec := callback(router, nil, url.Values{"state": {"state-abc"}, "code": {"code-xyz"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login?error=oauth2_failed", rec.Header().Get("Location"))
}

func TestHandleProviderCallback_AuthorizationDenied(t *testing.T) {
	// The provider reports the user clicked "deny" — no code to exchange.
	router, _ := newOAuthTestRouter(t, googleFake())

	cookie := &http.Cookie{Name: "oauth_state", Value: "state-abc"}
	rec := callback(router, cookie, url.Values{"state": {"state-abc"}, "error": {"access_denied"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login?error=oauth2_failed", rec.Header().Get("Location"))
}

func TestHandleProviderCallback_ExchangeFails(t *testing.T) {
	provider := googleFake()
	provider.exchangeErr = errors.New("provider unreachable")
	router, _ := newOAuthTestRouter(t, provider)

	cookie := &http.Cookie{Name: "oauth_state", Value: "state-abc"}
	rec := callback(router, cookie, url.Values{"state": {"state-abc"}, "code": {"code-xyz"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login?error=oauth2_failed", rec.Header().Get("Location"))
}

func TestHandleProviderCallback_UnknownProvider(t *testing.T) {
	router, _ := newOAuthTestRouter(t, googleFake())

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth2/github/callback?state=x&code=y", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login?error=oauth2_failed", rec.Header().Get("Location"))
}
