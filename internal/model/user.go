// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with no behaviour
// attached; the service layer owns the rules.
package model

import "time"

// User represents a registered account.
//
// Username is the external identifier (unique, case-sensitive). We keep an
// internal integer ID as the primary key, but lots and bids reference users
// by username — the original data model carried usernames, not foreign keys,
// and we preserve that.
//
// PasswordHash is the full bcrypt output (salt and cost embedded), stored as
// an opaque string. It is never serialized to JSON.
//
// Paid is carried on the row with a false default. No read path consumes it;
// it exists because the billing flow flips it out-of-band.
type User struct {
	ID           int64     `json:"id"       db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-"        db:"password_hash"`
	Paid         bool      `json:"paid"     db:"paid"`
	IsAdmin      bool      `json:"-"        db:"is_admin"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
