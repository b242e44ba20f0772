package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peergrove/groupd/internal/metrics"
	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/internal/repository/memory"
	"github.com/peergrove/groupd/pkg/errs"
)

// adminCount is the single-admin property checked after every committed
// departure path.
func adminCount(t *testing.T, svc *Service, groupID string) int {
	t.Helper()
	members, err := svc.Groups.ListMembers(context.Background(), groupID)
	require.NoError(t, err)
	n := 0
	for _, m := range members {
		if m.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

func TestLeaveGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("plain member leaves", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})

		result, err := svc.LeaveGroup(ctx, "bob", group.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeLeft, result.Outcome)

		member, err := svc.Groups.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		assert.Nil(t, member)
		assert.Equal(t, 1, adminCount(t, svc, group.ID))
	})

	t.Run("admin leaves, moderator promoted", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob":   models.RoleModerator,
			"carol": models.RoleMember,
		})

		result, err := svc.LeaveGroup(ctx, "alice", group.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAdminTransferred, result.Outcome)
		assert.Equal(t, "bob", result.NewAdminID)

		promoted, err := svc.Groups.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		require.NotNil(t, promoted)
		assert.Equal(t, models.RoleAdmin, promoted.Role)

		departed, err := svc.Groups.GetMember(ctx, group.ID, "alice")
		require.NoError(t, err)
		assert.Nil(t, departed)
		assert.Equal(t, 1, adminCount(t, svc, group.ID))
	})

	t.Run("admin leaves, members only, succession required", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob":   models.RoleMember,
			"carol": models.RoleMember,
		})

		result, err := svc.LeaveGroup(ctx, "alice", group.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccessionRequired, result.Outcome)

		// Nothing was mutated: the admin is still there.
		admin, err := svc.Groups.GetMember(ctx, group.ID, "alice")
		require.NoError(t, err)
		require.NotNil(t, admin)
		assert.Equal(t, models.RoleAdmin, admin.Role)
	})

	t.Run("last member leaves, group deleted with everything in it", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)
		post, err := svc.CreatePost(ctx, "alice", group.ID, "goodbye", nil, nil)
		require.NoError(t, err)

		result, err := svc.LeaveGroup(ctx, "alice", group.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeGroupDeleted, result.Outcome)

		gone, err := svc.Groups.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		orphan, err := svc.Posts.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Nil(t, orphan)
	})

	t.Run("custom successor policy", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob":   models.RoleModerator,
			"carol": models.RoleModerator,
		})

		svc.ChooseSuccessor = func(moderators []*models.Member) *models.Member {
			return moderators[len(moderators)-1]
		}

		result, err := svc.LeaveGroup(ctx, "alice", group.ID)
		require.NoError(t, err)
		assert.Equal(t, "carol", result.NewAdminID)
	})

	t.Run("non-member cannot leave", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)

		_, err := svc.LeaveGroup(ctx, "ghost", group.ID)
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("join landing during the departure blocks the deletion", func(t *testing.T) {
		l := logrus.New()
		l.SetOutput(io.Discard)
		store := memory.New()
		groups := &lateJoinGroups{Store: store}
		svc := New(l, metrics.New(), groups, store, store)

		group, err := svc.CreateGroup(ctx, "alice", "book club", "weekly reads", models.VisibilityPublic, false)
		require.NoError(t, err)

		// The sole admin leaves, but another user's join commits between
		// the service's reads and the cascade. The commit-time check must
		// turn the deletion into a succession decision.
		result, err := svc.LeaveGroup(ctx, "alice", group.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccessionRequired, result.Outcome)

		still, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		require.NotNil(t, still)

		late, err := store.GetMember(ctx, group.ID, "dana")
		require.NoError(t, err)
		assert.NotNil(t, late)
	})
}

// lateJoinGroups commits a membership right after the first member listing,
// reproducing a join that races a departing admin.
type lateJoinGroups struct {
	*memory.Store
	once sync.Once
}

func (g *lateJoinGroups) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	members, err := g.Store.ListMembers(ctx, groupID)
	g.once.Do(func() {
		g.Store.AddMember(ctx, &models.Member{GroupID: groupID, UserID: "dana", Role: models.RoleMember})
	})
	return members, err
}

func TestTransferAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit transfer to a plain member", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob":   models.RoleMember,
			"carol": models.RoleMember,
		})

		// LeaveGroup demands a choice first.
		result, err := svc.LeaveGroup(ctx, "alice", group.ID)
		require.NoError(t, err)
		require.Equal(t, OutcomeSuccessionRequired, result.Outcome)

		result, err = svc.TransferAdmin(ctx, group.ID, "alice", "carol")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAdminTransferred, result.Outcome)
		assert.Equal(t, "carol", result.NewAdminID)

		departed, err := svc.Groups.GetMember(ctx, group.ID, "alice")
		require.NoError(t, err)
		assert.Nil(t, departed)
		assert.Equal(t, 1, adminCount(t, svc, group.ID))
	})

	t.Run("only the admin may transfer", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleModerator,
		})

		_, err := svc.TransferAdmin(ctx, group.ID, "bob", "bob")
		assert.True(t, errs.IsForbidden(err))
	})

	t.Run("transfer to self refused", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})

		_, err := svc.TransferAdmin(ctx, group.ID, "alice", "alice")
		assert.True(t, errs.IsInvalidState(err))
	})

	t.Run("successor must be a member", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})

		_, err := svc.TransferAdmin(ctx, group.ID, "alice", "ghost")
		assert.True(t, errs.IsInvalidState(err))
	})
}
