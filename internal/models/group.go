package models

import "strings"

// Group represents a reusable roster of members. Splits attached to a group
// are reconciled whenever the roster grows.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Friday dinner").
	Name string `json:"name"`

	// Temporary marks a one-off dining session rather than a recurring group.
	Temporary bool `json:"temporary"`

	// Members is the roster, ordered by join time.
	Members []Member `json:"members"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`
}

// Member is one identity on a group roster.
type Member struct {
	// ID is the member's participant id within the group.
	ID string `json:"id"`

	// UserID references a registered user, if the member has an account.
	UserID string `json:"userId,omitempty"`

	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64 `json:"joinedAt"`
}

// Same reports whether two members describe the same person.
func (m Member) Same(other Member) bool {
	if m.UserID != "" && m.UserID == other.UserID {
		return true
	}
	if m.ID != "" && m.ID == other.ID {
		return true
	}
	if m.Email != "" && strings.EqualFold(m.Email, other.Email) {
		return true
	}
	return false
}
