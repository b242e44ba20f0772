package models

import "time"

// RequestStatus is the lifecycle state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// JoinRequest is a user-initiated request to join a private group.
// At most one pending request exists per (group, user); resolved requests
// are kept as history and never mutated again.
type JoinRequest struct {
	ID         string        `json:"id" db:"id"`
	GroupID    string        `json:"group_id" db:"group_id"`
	UserID     string        `json:"user_id" db:"user_id"`
	Message    string        `json:"message,omitempty" db:"message"`
	Status     RequestStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	ResolvedBy string        `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}
