package models

import "time"

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation is a moderator-initiated invite for a user to join a group.
// At most one pending invitation exists per (group, user).
type Invitation struct {
	ID         string           `json:"id" db:"id"`
	GroupID    string           `json:"group_id" db:"group_id"`
	UserID     string           `json:"user_id" db:"user_id"`
	InviterID  string           `json:"inviter_id" db:"inviter_id"`
	Status     InvitationStatus `json:"status" db:"status"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}
