package repository

import (
	"context"

	"github.com/peergrove/groupd/internal/models"
)

// The repositories below are the engine's single commit path. Every method
// is one atomic commit: compound operations (resolving a request together
// with the membership insert, replacing the admin, cascade-deleting a
// group) either fully apply or leave no trace. Implementations serialize
// mutations per group and serve reads from consistent snapshots.
//
// Lookup methods return (nil, nil) when the record does not exist; the
// service layer turns that into a domain NotFound. Mutators return typed
// errors from pkg/errs when the target is missing or the operation would
// break an integrity rule the store enforces itself.

// GroupRepository owns Group and Member records.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) (*models.Group, error)
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	// ListVisible returns every public group plus the private groups the
	// viewer belongs to.
	ListVisible(ctx context.Context, viewerID string) ([]*models.Group, error)
	// DeleteCascade removes the group together with all of its members,
	// join requests, invitations and posts in a single commit. It fails
	// with Conflict unless lastMemberID is the group's sole remaining
	// member at commit time, so a concurrent join can never be swallowed
	// by the cascade.
	DeleteCascade(ctx context.Context, groupID, lastMemberID string) error

	// AddMember inserts the membership, or returns the existing record
	// unchanged when the (group, user) pair is already present.
	AddMember(ctx context.Context, member *models.Member) (*models.Member, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	// ListMembers returns members ordered by join time ascending.
	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)
	// SetMemberRole updates a member's role. The admin row is refused
	// inside the commit (InvalidState): the admin seat only moves through
	// ReplaceAdmin, and the guard holds even when the target was promoted
	// after the caller's checks.
	SetMemberRole(ctx context.Context, groupID, userID string, role models.Role) (*models.Member, error)
	// RemoveMember deletes the membership. The admin row is refused
	// inside the commit (InvalidState) for the same reason.
	RemoveMember(ctx context.Context, groupID, userID string) error
	// ReplaceAdmin removes the departing admin's membership and promotes
	// the successor to admin in one commit. It fails with InvalidState
	// when departing is not the group's admin or the successor is not a
	// member.
	ReplaceAdmin(ctx context.Context, groupID, departingID, successorID string) (*models.Member, error)
}

// RequestRepository owns JoinRequest and Invitation records.
type RequestRepository interface {
	CreateJoinRequest(ctx context.Context, req *models.JoinRequest) (*models.JoinRequest, error)
	GetJoinRequest(ctx context.Context, groupID, requestID string) (*models.JoinRequest, error)
	// PendingJoinRequest returns the pending request for (group, user),
	// if any. Resolved requests are history and never match.
	PendingJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error)
	// ListJoinRequests returns requests ordered by creation time
	// ascending, oldest pending first (a workflow contract).
	ListJoinRequests(ctx context.Context, groupID string) ([]*models.JoinRequest, error)
	// ResolveJoinRequest transitions a pending request and, when
	// newMember is non-nil, inserts the membership in the same commit.
	// A request that is absent or already resolved yields NotFound.
	ResolveJoinRequest(ctx context.Context, groupID, requestID string, status models.RequestStatus, resolvedBy string, newMember *models.Member) (*models.JoinRequest, error)

	CreateInvitation(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)
	GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error)
	PendingInvitation(ctx context.Context, groupID, userID string) (*models.Invitation, error)
	ListInvitations(ctx context.Context, groupID string) ([]*models.Invitation, error)
	// ResolveInvitation mirrors ResolveJoinRequest for invitations.
	ResolveInvitation(ctx context.Context, invitationID string, status models.InvitationStatus, newMember *models.Member) (*models.Invitation, error)
}

// PostRepository owns Post records, their reactions and comments.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListGroupPosts(ctx context.Context, groupID string) ([]*models.Post, error)
	ApprovePost(ctx context.Context, postID string) (*models.Post, error)
	TogglePin(ctx context.Context, postID string) (*models.Post, error)
	ToggleHide(ctx context.Context, postID string) (*models.Post, error)
	// ToggleReaction applies models.ToggleReaction to the post's reaction
	// set as a single commit, so the no-empty-bucket invariant holds in
	// every observable state.
	ToggleReaction(ctx context.Context, postID, userID, emoji string) (*models.Post, error)
	AddComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
}
