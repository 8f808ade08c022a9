package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sathishchary/Electron-Angular-App/internal/apperror"
	"github.com/Sathishchary/Electron-Angular-App/internal/auth"
	"github.com/Sathishchary/Electron-Angular-App/internal/model"
	"github.com/Sathishchary/Electron-Angular-App/internal/repository"
)

// AuthService orchestrates authentication: password login, OAuth2 provider
// login, profile lookup, and provider disconnect. It sits between the HTTP
// handlers and the repositories/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → repositories (DB)
//	                   ↘ IdentityService (resolution)
//	                   ↘ TokenService (JWT)
type AuthService struct {
	users     repository.UserRepository
	links     repository.ProviderLinkRepository
	identity  *IdentityService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	links repository.ProviderLinkRepository,
	identity *IdentityService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		links:     links,
		identity:  identity,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// ProviderInfo is the slice of a provider link exposed in profiles.
// Access/refresh tokens stay server-side.
type ProviderInfo struct {
	ProviderName   string `json:"providerName"`
	ProviderUserID string `json:"providerUserId"`
}

// Profile is the user representation returned by the API: the user record
// plus its provider links.
type Profile struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	AvatarURL string         `json:"avatarUrl"`
	CreatedAt time.Time      `json:"createdAt"`
	Providers []ProviderInfo `json:"oauth2Providers"`
}

// AuthResult bundles the issued JWT with the authenticated user's profile so
// the handler can respond (or redirect) in one step.
type AuthResult struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}

// Login authenticates with email and password.
//
// Returns apperror.ErrNotFound when no account has that email, and
// apperror.ErrUnauthorized when a stored password hash doesn't match.
//
// KNOWN GAP (kept intentionally):
// An account with NO stored password hash — created through OAuth2 only —
// "logs in" with any password. The endpoint exists so such accounts aren't
// locked out of the password form, but it is not a security boundary; see
// the passwordless test documenting this behavior.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user.PasswordHash != "" {
		if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
			s.logger.Warn("password login rejected", slog.String("email", email))
			return nil, apperror.Unauthorized("invalid credentials")
		}
	}

	return s.issueFor(ctx, user)
}

// LoginWithProvider handles a completed OAuth2 callback: the handler
// exchanges the code for an identity assertion, and this method resolves it
// to a local user and issues a session token.
func (s *AuthService) LoginWithProvider(ctx context.Context, ident *auth.Identity) (*AuthResult, error) {
	user, err := s.identity.Resolve(ctx, ident)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via provider",
		slog.String("provider", ident.Provider),
		slog.String("userID", user.ID),
	)

	return s.issueFor(ctx, user)
}

// CurrentUser returns the profile for the authenticated email (the JWT
// subject extracted by the middleware).
func (s *AuthService) CurrentUser(ctx context.Context, email string) (*Profile, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.profileOf(ctx, user)
}

// DisconnectProvider removes the caller's link for the named provider.
//
// Returns apperror.ErrNotFound when the user holds no link for that
// provider. Removing the last sign-in method of a passwordless account is
// NOT prevented — the caller can strand the account. Matches the original
// behavior; revisit if a password-set flow is added.
func (s *AuthService) DisconnectProvider(ctx context.Context, email, providerName string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.links.DeleteByUserAndProvider(ctx, user.ID, providerName); err != nil {
		return err
	}

	s.logger.Info("provider disconnected",
		slog.String("userID", user.ID),
		slog.String("provider", providerName),
	)

	return nil
}

// ValidateToken validates a JWT string and returns the email it encodes.
// Thin delegation so callers only need the service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	email, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return email, nil
}

// issueFor mints a session token for the user and assembles the result.
func (s *AuthService) issueFor(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Email, err)
	}

	profile, err := s.profileOf(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: profile}, nil
}

// profileOf builds the API profile: user fields plus provider links.
func (s *AuthService) profileOf(ctx context.Context, user *model.User) (*Profile, error) {
	links, err := s.links.ListByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: listing provider links for %s: %w", user.ID, err)
	}

	providers := make([]ProviderInfo, 0, len(links))
	for _, l := range links {
		providers = append(providers, ProviderInfo{
			ProviderName:   l.ProviderName,
			ProviderUserID: l.ProviderUserID,
		})
	}

	return &Profile{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
		Providers: providers,
	}, nil
}
