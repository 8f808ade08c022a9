// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The services take repository INTERFACES, not the concrete sqlite.DB —
// tests pass hand-written in-memory fakes (see identity_test.go) and the
// services never import the sqlite package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Sathishchary/Electron-Angular-App/internal/apperror"
	"github.com/Sathishchary/Electron-Angular-App/internal/auth"
	"github.com/Sathishchary/Electron-Angular-App/internal/model"
	"github.com/Sathishchary/Electron-Angular-App/internal/repository"
)

// IdentityService decides which local account an external identity belongs
// to. It is the ONLY place where identity-to-user mapping logic lives.
type IdentityService struct {
	users  repository.UserRepository
	links  repository.ProviderLinkRepository
	logger *slog.Logger
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(
	users repository.UserRepository,
	links repository.ProviderLinkRepository,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:  users,
		links:  links,
		logger: logger,
	}
}

// Resolve maps an external identity assertion to a local user, creating the
// user and/or the provider link as needed.
//
// ALGORITHM (in order, first match wins):
//
//  1. Link lookup by (provider, externalID). A hit means this external
//     identity has logged in before — return its owning user UNCHANGED.
//     Repeat logins never overwrite profile fields; the first assertion wins.
//  2. User lookup by email. A hit means an existing account is adding this
//     provider as a new sign-in method — again no profile overwrite.
//  3. Neither found: create a new user from the assertion, synthesizing a
//     unique username from the email's local part.
//  4. Create the provider link (covers both the step-2 and step-3 paths).
//
// After a successful Resolve the returned user always holds a link for the
// given provider.
//
// RACING FIRST LOGINS:
// Two concurrent first-time logins for the same identity both miss the
// lookups and race to insert. The database's UNIQUE constraints let exactly
// one racer win; the loser sees apperror.Conflict on its insert, re-reads
// the winning row, and resolves to the same user. No duplicate accounts.
func (s *IdentityService) Resolve(ctx context.Context, ident *auth.Identity) (*model.User, error) {
	if ident == nil {
		return nil, apperror.ValidationFailed("identity", "identity assertion is required")
	}
	if ident.Email == "" {
		return nil, apperror.ValidationFailed("email", "identity assertion has no email")
	}
	if ident.ExternalID == "" {
		return nil, apperror.ValidationFailed("externalId", "identity assertion has no external ID")
	}
	if ident.EmailSynthesized {
		// Synthetic addresses (e.g. <username>@instagram.local) are not
		// proof of mailbox ownership. They still work as business keys,
		// but leave a trace for operators.
		s.logger.Warn("resolving identity with synthesized email",
			slog.String("provider", ident.Provider),
			slog.String("email", ident.Email),
		)
	}

	// --- Step 1: known external identity? ---
	link, err := s.links.GetByProviderAndExternalID(ctx, ident.Provider, ident.ExternalID)
	if err == nil {
		return s.users.GetByID(ctx, link.UserID)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/identity: looking up provider link: %w", err)
	}

	// --- Step 2: existing account by email? ---
	user, err := s.users.GetByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		// Existing account gains a new sign-in method below.
	case errors.Is(err, apperror.ErrNotFound):
		// --- Step 3: brand-new account ---
		user, err = s.createUser(ctx, ident)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/identity: looking up user by email: %w", err)
	}

	// --- Step 4: attach the provider link ---
	newLink := &model.ProviderLink{
		UserID:         user.ID,
		ProviderName:   ident.Provider,
		ProviderUserID: ident.ExternalID,
		AccessToken:    ident.AccessToken,
		RefreshToken:   ident.RefreshToken,
		TokenExpiresAt: ident.TokenExpiry,
	}
	if err := s.links.Create(ctx, newLink); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost a race: another request linked this identity between our
			// lookup and our insert. The winning link is authoritative.
			if winner, lookupErr := s.links.GetByProviderAndExternalID(ctx, ident.Provider, ident.ExternalID); lookupErr == nil {
				return s.users.GetByID(ctx, winner.UserID)
			}
			// (user, provider) conflict with a DIFFERENT external ID: the
			// account already uses this provider under another identity.
			return nil, err
		}
		return nil, fmt.Errorf("service/identity: creating provider link: %w", err)
	}

	s.logger.Info("identity resolved",
		slog.String("provider", ident.Provider),
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// createUser persists a new account from a first-time identity assertion.
func (s *IdentityService) createUser(ctx context.Context, ident *auth.Identity) (*model.User, error) {
	username, err := s.uniqueUsername(ctx, usernameFromEmail(ident.Email))
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:     ident.Email,
		Username:  username,
		FirstName: ident.FirstName,
		LastName:  ident.LastName,
		AvatarURL: ident.AvatarURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost the create race on email or username — fall back to the
			// account the winner created.
			if existing, lookupErr := s.users.GetByEmail(ctx, ident.Email); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("service/identity: creating user: %w", err)
	}

	s.logger.Info("user created from identity assertion",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("provider", ident.Provider),
	)

	return user, nil
}

// uniqueUsername appends an increasing integer suffix until the candidate is
// free: "foo", "foo1", "foo2", … The loop terminates because usernames are
// finite strings and each iteration tries a fresh candidate.
func (s *IdentityService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/identity: checking username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

// usernameFromEmail derives the username candidate: the text before "@".
// "user" is the last-resort fallback for degenerate addresses like "@x.com".
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "user"
	}
	return local
}
