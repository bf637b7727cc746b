package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/model"
	"github.com/sakif/travel-journal/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` verifies at compile time that *DB implements the
// repository.UserRepository interface. If a method is missing or has the
// wrong signature, the build fails right here instead of at some distant
// call site.
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user.
//
// DUPLICATE EMAIL DETECTION:
// The users table has UNIQUE(email). Instead of doing SELECT-then-INSERT
// (which races — two concurrent registrations could both pass the SELECT),
// we just INSERT and translate the constraint violation into a Conflict
// error. The database is the single arbiter of uniqueness.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email already registered")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email (the login credential).
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
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

// UpsertUserByEmail inserts a user or, on an existing email, refreshes the name
// and returns the stored record. Used by the OAuth sign-in path — the
// identity provider vouches for the email, so "already registered" is a
// login, not a conflict.
//
// We look up first (to keep the existing internal ID and password hash)
// rather than INSERT OR REPLACE, which would discard both.
func (db *DB) UpsertUserByEmail(ctx context.Context, user *model.User) error {
	existing, err := db.GetUserByEmail(ctx, user.Email)
	if err == nil {
		// Existing account — keep its ID, hash, and timestamps; refresh the name.
		user.ID = existing.ID
		user.PasswordHash = existing.PasswordHash
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = time.Now()

		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
			user.Name, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	return db.CreateUser(ctx, user)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
//
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// stable message prefix ("constraint failed: UNIQUE constraint failed: ...").
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
