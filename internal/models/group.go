package models

import "time"

// Visibility controls how users may enter a group.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Group is a named, visibility-scoped collection of members and posts.
// A group never persists with zero members: the last member leaving
// deletes the group and everything scoped to it.
type Group struct {
	ID                  string     `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Description         string     `json:"description,omitempty" db:"description"`
	Visibility          Visibility `json:"visibility" db:"visibility"`
	RequirePostApproval bool       `json:"require_post_approval" db:"require_post_approval"`
	CreatorID           string     `json:"creator_id" db:"creator_id"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// Member is the (group, user) membership record. Membership is unique per
// (group, user) and a non-empty group always has exactly one admin.
type Member struct {
	GroupID  string    `json:"group_id" db:"group_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	Role     Role      `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
