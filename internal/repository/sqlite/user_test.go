package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only for this test —
// fast, isolated, destroyed when the connection closes.
//
// t.Helper() makes failures point at the CALLER's line, and t.Cleanup is
// defer scoped to the test (works in subtests too).
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email, name string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: name, PasswordHash: "$2a$04$fakehash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "a@x.com",
		Name:         "Alice",
		PasswordHash: "$2a$04$fakehash",
	}

	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "a@x.com", "Alice")

	dup := &model.User{Email: "a@x.com", Name: "Mallory", PasswordHash: "$2a$04$other"}
	err := db.CreateUser(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() with duplicate email error = %v, want ErrConflict", err)
	}
}

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "a@x.com", "Alice")

	got, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Email != "a@x.com" || got.Name != "Alice" {
		t.Errorf("GetUserByID() = %+v, want the created user", got)
	}
	if got.PasswordHash != created.PasswordHash {
		t.Error("GetUserByID() did not round-trip the password hash")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "a@x.com", "Alice")

	got, err := db.GetUserByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetUserByEmail() ID = %q, want %q", got.ID, created.ID)
	}

	if _, err := db.GetUserByEmail(context.Background(), "nobody@x.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() for unknown email error = %v, want ErrNotFound", err)
	}
}

func TestUpsertUserByEmail_New(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "a@x.com", Name: "Alice"}
	if err := db.UpsertUserByEmail(context.Background(), user); err != nil {
		t.Fatalf("UpsertUserByEmail() error = %v", err)
	}
	if user.ID == "" {
		t.Error("UpsertUserByEmail() did not set ID for a new user")
	}
}

func TestUpsertUserByEmail_Existing(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "a@x.com", "Alice")

	// Upsert with the same email keeps the internal ID and the password
	// hash, but refreshes the display name.
	user := &model.User{Email: "a@x.com", Name: "Alice Renamed"}
	if err := db.UpsertUserByEmail(context.Background(), user); err != nil {
		t.Fatalf("UpsertUserByEmail() error = %v", err)
	}

	if user.ID != created.ID {
		t.Errorf("UpsertUserByEmail() changed the user ID: %q vs %q", user.ID, created.ID)
	}
	if user.PasswordHash != created.PasswordHash {
		t.Error("UpsertUserByEmail() lost the existing password hash")
	}

	got, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Name != "Alice Renamed" {
		t.Errorf("Name = %q, want refreshed %q", got.Name, "Alice Renamed")
	}
}
