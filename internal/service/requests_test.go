package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

func TestRequestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("pending request created", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		req, err := svc.RequestJoin(ctx, group.ID, "bob", "let me in")
		require.NoError(t, err)
		assert.Equal(t, models.RequestPending, req.Status)
		assert.Equal(t, "let me in", req.Message)
	})

	t.Run("public groups do not take requests", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)

		_, err := svc.RequestJoin(ctx, group.ID, "bob", "")
		assert.True(t, errs.IsInvalidState(err))
	})

	t.Run("members cannot request", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, map[string]models.Role{
			"bob": models.RoleMember,
		})

		_, err := svc.RequestJoin(ctx, group.ID, "bob", "")
		assert.True(t, errs.IsInvalidState(err))
	})

	t.Run("second pending request conflicts", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		_, err := svc.RequestJoin(ctx, group.ID, "bob", "first")
		require.NoError(t, err)

		_, err = svc.RequestJoin(ctx, group.ID, "bob", "second")
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("rejected user may request again", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		req, err := svc.RequestJoin(ctx, group.ID, "bob", "")
		require.NoError(t, err)
		_, err = svc.RejectRequest(ctx, "alice", group.ID, req.ID)
		require.NoError(t, err)

		_, err = svc.RequestJoin(ctx, group.ID, "bob", "again")
		assert.NoError(t, err)
	})
}

func TestApproveRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("approval enrolls the requester", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		req, err := svc.RequestJoin(ctx, group.ID, "bob", "")
		require.NoError(t, err)

		resolved, err := svc.ApproveRequest(ctx, "alice", group.ID, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestApproved, resolved.Status)
		assert.Equal(t, "alice", resolved.ResolvedBy)
		require.NotNil(t, resolved.ResolvedAt)

		member, err := svc.Groups.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.Equal(t, models.RoleMember, member.Role)
	})

	t.Run("plain members cannot resolve", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, map[string]models.Role{
			"bob": models.RoleMember,
		})

		req, err := svc.RequestJoin(ctx, group.ID, "carol", "")
		require.NoError(t, err)

		_, err = svc.ApproveRequest(ctx, "bob", group.ID, req.ID)
		assert.True(t, errs.IsForbidden(err))
	})

	t.Run("resolving twice fails", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		req, err := svc.RequestJoin(ctx, group.ID, "bob", "")
		require.NoError(t, err)

		_, err = svc.ApproveRequest(ctx, "alice", group.ID, req.ID)
		require.NoError(t, err)

		_, err = svc.RejectRequest(ctx, "alice", group.ID, req.ID)
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("rejection keeps the requester out", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		req, err := svc.RequestJoin(ctx, group.ID, "bob", "")
		require.NoError(t, err)

		resolved, err := svc.RejectRequest(ctx, "alice", group.ID, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestRejected, resolved.Status)

		member, err := svc.Groups.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		assert.Nil(t, member)
	})
}

func TestInvitations(t *testing.T) {
	ctx := context.Background()

	t.Run("invite then accept enrolls the user", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		inv, err := svc.InviteUser(ctx, "alice", group.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, models.InvitationPending, inv.Status)

		accepted, err := svc.AcceptInvitation(ctx, "bob", inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InvitationAccepted, accepted.Status)

		member, err := svc.Groups.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.Equal(t, models.RoleMember, member.Role)
	})

	t.Run("decline leaves membership untouched", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		inv, err := svc.InviteUser(ctx, "alice", group.ID, "bob")
		require.NoError(t, err)

		declined, err := svc.DeclineInvitation(ctx, "bob", inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InvitationDeclined, declined.Status)

		member, err := svc.Groups.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		assert.Nil(t, member)
	})

	t.Run("only the invited user may resolve", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		inv, err := svc.InviteUser(ctx, "alice", group.ID, "bob")
		require.NoError(t, err)

		_, err = svc.AcceptInvitation(ctx, "mallory", inv.ID)
		assert.True(t, errs.IsForbidden(err))
	})

	t.Run("inviting a member conflicts", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, map[string]models.Role{
			"bob": models.RoleMember,
		})

		_, err := svc.InviteUser(ctx, "alice", group.ID, "bob")
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("double invite conflicts", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		_, err := svc.InviteUser(ctx, "alice", group.ID, "bob")
		require.NoError(t, err)
		_, err = svc.InviteUser(ctx, "alice", group.ID, "bob")
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("accepting twice fails", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

		inv, err := svc.InviteUser(ctx, "alice", group.ID, "bob")
		require.NoError(t, err)

		_, err = svc.AcceptInvitation(ctx, "bob", inv.ID)
		require.NoError(t, err)
		_, err = svc.AcceptInvitation(ctx, "bob", inv.ID)
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestListJoinRequestsOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	group := seedGroup(t, svc, "alice", models.VisibilityPrivate, nil)

	for _, user := range []string{"bob", "carol", "dave"} {
		_, err := svc.RequestJoin(ctx, group.ID, user, "")
		require.NoError(t, err)
	}

	requests, err := svc.ListJoinRequests(ctx, "alice", group.ID)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "bob", requests[0].UserID)
	assert.Equal(t, "carol", requests[1].UserID)
	assert.Equal(t, "dave", requests[2].UserID)

	t.Run("queue is a moderator surface", func(t *testing.T) {
		_, err := svc.ListJoinRequests(ctx, "bob", group.ID)
		assert.True(t, errs.IsForbidden(err))
	})
}
