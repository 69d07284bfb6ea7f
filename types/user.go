package types

import "time"

// User represents an account in the credential store.
type User struct {
	// ID is the opaque identifier assigned on insert.
	ID string `json:"id" db:"id"`

	// Username is unique across all records.
	Username string `json:"username" db:"username"`

	// Email is unique across all records and is the login key.
	Email string `json:"email" db:"email"`

	// Password holds whatever the configured password scheme stores:
	// the submitted text for "plain", a bcrypt hash for "bcrypt".
	// This field is never exposed in API responses.
	Password string `json:"-" db:"password"`

	// CreatedAt is the timestamp when the record was inserted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
