// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Users authenticate with email + password. We generate our own internal
// string ID (xid) rather than keying on the email, so a future "change
// email" feature doesn't have to rewrite every foreign key.
//
// WHY PasswordHash WITH json:"-"?
// The bcrypt hash must NEVER leave the server. The `json:"-"` tag tells
// encoding/json to skip the field entirely — even if a handler accidentally
// serializes a whole User, the hash is never written to the response.
//
// Users who sign in through the optional GitHub OAuth flow have an empty
// PasswordHash; password login is rejected for those accounts.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"` // Unique — enforced by the store
	Name         string    `json:"name"`  // Display name
	PasswordHash string    `json:"-"`     // bcrypt hash, never serialized
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
