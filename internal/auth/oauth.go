package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/instagram"
)

// Identity is the normalized set of claims an OAuth2 provider asserts about
// a user after a successful authorization. It contains facts only — the
// decision of WHICH local account it maps to belongs to the identity
// resolver (service.IdentityService), not here.
type Identity struct {
	Provider   string // "google", "instagram"
	ExternalID string // provider-assigned user ID, stable per provider
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string

	// EmailSynthesized marks emails we made up because the provider doesn't
	// supply one (Instagram's basic profile). A synthesized email is NOT
	// authoritative: it only collides with a real address by accident, so
	// callers must not treat it as proof of mailbox ownership.
	EmailSynthesized bool

	// Provider OAuth tokens, persisted on the provider link.
	AccessToken  string
	RefreshToken string
	TokenExpiry  *time.Time
}

// Provider abstracts one OAuth2 Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Your server redirects the user to the provider's authorization
//    endpoint, with your ClientID and the requested scopes.
// 2. The user approves (or denies) the authorization request.
// 3. The provider redirects back to your callback URL with a short-lived "code".
// 4. Your server exchanges the code for an access token (server-to-server call).
// 5. Your server uses the access token to fetch the user's profile.
//
// WHY SERVER-SIDE EXCHANGE?
// The code-for-token exchange happens server-to-server, using your
// ClientSecret. The access token never touches the user's browser.
type Provider interface {
	// Name returns the provider identifier ("google", "instagram") used in
	// routes and stored on provider links.
	Name() string
	// AuthURL returns the URL to redirect the user to for authorization.
	// state is a random CSRF value verified on callback.
	AuthURL(state string) string
	// Exchange trades the authorization code for a normalized Identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// GoogleProvider implements Provider for Google Sign-In.
//
// Google's userinfo response carries everything we need directly:
// sub (stable user ID), email, given_name, family_name, picture.
type GoogleProvider struct {
	config *oauth2.Config

	// Overridable in tests to point at an httptest server.
	userInfoURL string
}

// googleUserInfo is the portion of Google's userinfo response we care about.
//
// Endpoint docs: https://developers.google.com/identity/openid-connect/openid-connect
type googleUserInfo struct {
	Sub        string `json:"sub"` // Google's stable user ID
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
//
// You get ClientID and ClientSecret from the Google Cloud console
// ("APIs & Services" → "Credentials" → "OAuth client ID").
// callbackURL must match an authorized redirect URI exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

func (p *GoogleProvider) Name() string { return "google" }

// AuthURL returns the Google authorization URL for the given CSRF state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: code → access token → userinfo → Identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("auth: Google returned an incomplete profile (sub=%q)", info.Sub)
	}

	return &Identity{
		Provider:     p.Name(),
		ExternalID:   info.Sub,
		Email:        info.Email,
		FirstName:    info.GivenName,
		LastName:     info.FamilyName,
		AvatarURL:    info.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  tokenExpiry(token),
	}, nil
}

// InstagramProvider implements Provider for Instagram's basic profile.
//
// Instagram's basic profile API does NOT return an email address — only the
// numeric user ID and the username. We still need an email because it is the
// account business key, so we synthesize "<username>@instagram.local" and
// set Identity.EmailSynthesized. First name defaults to the username so the
// profile isn't completely blank.
type InstagramProvider struct {
	config *oauth2.Config

	// Overridable in tests to point at an httptest server.
	profileURL string
}

// instagramProfile is the /me response from the Instagram graph API.
type instagramProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewInstagramProvider creates an InstagramProvider with the given credentials.
func NewInstagramProvider(clientID, clientSecret, callbackURL string) *InstagramProvider {
	return &InstagramProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"user_profile"},
			Endpoint:     instagram.Endpoint,
		},
		profileURL: "https://graph.instagram.com/me",
	}
}

func (p *InstagramProvider) Name() string { return "instagram" }

// AuthURL returns the Instagram authorization URL for the given CSRF state.
func (p *InstagramProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange completes the flow against Instagram's graph API.
//
// Instagram expects the access token as a query parameter rather than a
// bearer header, so we build the profile request by hand instead of using
// oauth2.Config.Client.
func (p *InstagramProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Instagram OAuth code: %w", err)
	}

	u, err := url.Parse(p.profileURL)
	if err != nil {
		return nil, fmt.Errorf("auth: bad Instagram profile URL: %w", err)
	}
	q := u.Query()
	q.Set("fields", "id,username")
	q.Set("access_token", token.AccessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building Instagram profile request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Instagram profile API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Instagram profile API returned status %d", resp.StatusCode)
	}

	var profile instagramProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decoding Instagram profile response: %w", err)
	}

	if profile.ID == "" || profile.Username == "" {
		return nil, fmt.Errorf("auth: Instagram returned an incomplete profile (id=%q)", profile.ID)
	}

	return &Identity{
		Provider:   p.Name(),
		ExternalID: profile.ID,
		// Placeholder address — see EmailSynthesized doc.
		Email:            profile.Username + "@instagram.local",
		FirstName:        profile.Username,
		EmailSynthesized: true,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		TokenExpiry:      tokenExpiry(token),
	}, nil
}

// tokenExpiry converts the oauth2 token expiry to a nullable timestamp.
// Some providers issue non-expiring tokens; the zero time means "no expiry".
func tokenExpiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	t := token.Expiry
	return &t
}
