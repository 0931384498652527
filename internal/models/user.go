package models

// User is the authenticated caller.
//
// Accounts are managed by an external identity provider; splitsettle only
// sees the claims carried in the caller's token.
type User struct {
	// ID is the unique identifier for the user.
	ID string

	// Name is the display name of the user.
	Name string

	// Email is the user's email address. Used for nudges.
	Email string
}
