// Package repository defines the storage interfaces the service layer
// depends on. The concrete SQLite implementation lives in repository/sqlite;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/travel-journal/internal/model"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// CreateUser inserts a new user. Returns apperror.ErrConflict if the email
	// is already registered.
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByID returns apperror.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail returns apperror.ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertUserByEmail inserts a user or, if the email already exists, refreshes
	// the display name and returns the existing record. Used by the OAuth
	// sign-in path, where the identity provider owns the credential.
	UpsertUserByEmail(ctx context.Context, user *model.User) error
}

// LocationRepository persists locations and their embedded media lists.
//
// EVERY method takes the owning userID and scopes the query to it — a
// location that exists but belongs to someone else behaves exactly like a
// location that doesn't exist (apperror.ErrNotFound).
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	GetByID(ctx context.Context, userID, id string) (*model.Location, error)
	// List returns all of the user's locations, newest first, with media loaded.
	List(ctx context.Context, userID string) ([]model.Location, error)
	// SearchByName returns case-insensitive substring matches, newest first.
	SearchByName(ctx context.Context, userID, pattern string) ([]model.Location, error)
	// Delete removes the location and all its media in one atomic step.
	Delete(ctx context.Context, userID, id string) error

	// AddMedia appends a media item and returns the updated location.
	AddMedia(ctx context.Context, userID, locationID string, media *model.Media) (*model.Location, error)
	// UpdateMediaCaption edits a caption in place (empty string allowed).
	// Returns ErrNotFound if the location or the media item is absent.
	UpdateMediaCaption(ctx context.Context, userID, locationID, mediaID, caption string) (*model.Location, error)
	// RemoveMedia deletes a media item by ID. If the media ID doesn't exist
	// within an owned location, it's a successful no-op returning the
	// unchanged location (idempotent delete).
	RemoveMedia(ctx context.Context, userID, locationID, mediaID string) (*model.Location, error)
}
