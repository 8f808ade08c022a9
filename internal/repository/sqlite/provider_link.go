package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/Sathishchary/Electron-Angular-App/internal/apperror"
	"github.com/Sathishchary/Electron-Angular-App/internal/model"
	"github.com/Sathishchary/Electron-Angular-App/internal/repository"
)

// compile-time check that *ProviderLinkStore implements
// repository.ProviderLinkRepository
var _ repository.ProviderLinkRepository = (*ProviderLinkStore)(nil)

// ProviderLinkStore provides provider-link persistence on top of a shared DB
// handle.
type ProviderLinkStore struct {
	db *DB
}

// NewProviderLinkStore creates a ProviderLinkStore backed by db.
func NewProviderLinkStore(db *DB) *ProviderLinkStore {
	return &ProviderLinkStore{db: db}
}

// Create inserts a new provider link. The ID and timestamps are assigned here.
//
// Either UNIQUE constraint — (provider_name, provider_user_id) or
// (user_id, provider_name) — surfaces as apperror.Conflict. The first means
// another request already claimed this external identity; the second means
// the user already has a link for this provider.
func (s *ProviderLinkStore) Create(ctx context.Context, link *model.ProviderLink) error {
	now := time.Now()
	link.ID = xid.New().String()
	link.CreatedAt = now
	link.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO provider_links (id, user_id, provider_name, provider_user_id, access_token, refresh_token, token_expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ID,
		link.UserID,
		link.ProviderName,
		link.ProviderUserID,
		link.AccessToken,
		link.RefreshToken,
		link.TokenExpiresAt,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		return wrapConstraintErr(err, "provider link", link.ProviderName+":"+link.ProviderUserID)
	}

	return nil
}

// GetByProviderAndExternalID looks up the link for an external identity.
// This is step 1 of identity resolution: a hit means the external identity
// has logged in before and already maps to a local user.
// Returns apperror.ErrNotFound when no such link exists.
func (s *ProviderLinkStore) GetByProviderAndExternalID(ctx context.Context, providerName, externalID string) (*model.ProviderLink, error) {
	var l model.ProviderLink

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, provider_name, provider_user_id, access_token, refresh_token, token_expires_at, created_at, updated_at
		 FROM provider_links WHERE provider_name = ? AND provider_user_id = ?`,
		providerName, externalID,
	).Scan(
		&l.ID,
		&l.UserID,
		&l.ProviderName,
		&l.ProviderUserID,
		&l.AccessToken,
		&l.RefreshToken,
		&l.TokenExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("provider link", providerName+":"+externalID)
		}
		return nil, fmt.Errorf("sqlite: getting provider link %s:%s: %w", providerName, externalID, err)
	}

	return &l, nil
}

// ListByUserID returns all provider links owned by a user, oldest first.
// Used to build the /auth/me profile response.
func (s *ProviderLinkStore) ListByUserID(ctx context.Context, userID string) ([]model.ProviderLink, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, provider_name, provider_user_id, access_token, refresh_token, token_expires_at, created_at, updated_at
		 FROM provider_links WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing provider links for user %s: %w", userID, err)
	}
	defer rows.Close()

	var links []model.ProviderLink
	for rows.Next() {
		var l model.ProviderLink
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.ProviderName,
			&l.ProviderUserID,
			&l.AccessToken,
			&l.RefreshToken,
			&l.TokenExpiresAt,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning provider link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating provider links: %w", err)
	}

	return links, nil
}

// DeleteByUserAndProvider removes the user's link for the named provider —
// the explicit "disconnect" operation. Because (user_id, provider_name) is
// unique, at most one row matches.
// Returns apperror.ErrNotFound when the user has no link for that provider.
func (s *ProviderLinkStore) DeleteByUserAndProvider(ctx context.Context, userID, providerName string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM provider_links WHERE user_id = ? AND provider_name = ?`,
		userID, providerName,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting provider link %s/%s: %w", userID, providerName, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting provider link %s/%s: %w", userID, providerName, err)
	}
	if affected == 0 {
		return apperror.NotFound("provider link", providerName)
	}

	return nil
}
