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

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore provides user persistence on top of a shared DB handle.
// Each entity gets its own store type so the Create/Get method sets don't
// collide on one receiver.
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore backed by db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. The ID and timestamps are assigned here.
//
// A UNIQUE violation on email or username comes back as apperror.Conflict —
// the identity resolver relies on this to detect a lost first-login race
// instead of silently creating a duplicate account.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, username, first_name, last_name, avatar_url, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return wrapConstraintErr(err, "user", user.Email)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email — the lookup behind every
// authenticated request (the JWT subject is the email).
// Returns apperror.ErrNotFound if no user has that email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *UserStore) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, email, username, first_name, last_name, avatar_url, password_hash, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.AvatarURL,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &u, nil
}

// ExistsByUsername reports whether any user already holds the given
// username. Used by the identity resolver's suffix loop when synthesizing a
// free username.
func (s *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return count > 0, nil
}

// Update persists mutable profile fields and refreshes updated_at.
// The email is the immutable business key and is deliberately not updatable.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, first_name = ?, last_name = ?, avatar_url = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return wrapConstraintErr(err, "user", user.ID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}
