package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("member posts into an open group", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})

		post, err := svc.CreatePost(ctx, "bob", group.ID, "hello", nil, nil)
		require.NoError(t, err)
		assert.True(t, post.IsApproved)
		assert.False(t, post.IsPinned)
		assert.False(t, post.IsHidden)
	})

	t.Run("approval gate holds member posts", func(t *testing.T) {
		svc := newTestService(t)
		group, err := svc.CreateGroup(ctx, "alice", "gated", "", models.VisibilityPublic, true)
		require.NoError(t, err)
		_, err = svc.JoinGroup(ctx, group.ID, "bob")
		require.NoError(t, err)

		post, err := svc.CreatePost(ctx, "bob", group.ID, "pending", nil, nil)
		require.NoError(t, err)
		assert.False(t, post.IsApproved)

		// Moderator posts skip the gate.
		own, err := svc.CreatePost(ctx, "alice", group.ID, "mine", nil, nil)
		require.NoError(t, err)
		assert.True(t, own.IsApproved)
	})

	t.Run("non-members cannot post", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)

		_, err := svc.CreatePost(ctx, "ghost", group.ID, "hi", nil, nil)
		assert.True(t, errs.IsForbidden(err))
	})

	t.Run("empty post rejected, attachment-only allowed", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)

		_, err := svc.CreatePost(ctx, "alice", group.ID, "   ", nil, nil)
		assert.True(t, errs.IsValidation(err))

		_, err = svc.CreatePost(ctx, "alice", group.ID, "", []string{"photo.jpg"}, nil)
		assert.NoError(t, err)
	})
}

func TestModerationFlags(t *testing.T) {
	ctx := context.Background()

	t.Run("approve releases a held post", func(t *testing.T) {
		svc := newTestService(t)
		group, err := svc.CreateGroup(ctx, "alice", "gated", "", models.VisibilityPublic, true)
		require.NoError(t, err)
		_, err = svc.JoinGroup(ctx, group.ID, "bob")
		require.NoError(t, err)

		post, err := svc.CreatePost(ctx, "bob", group.ID, "pending", nil, nil)
		require.NoError(t, err)

		approved, err := svc.ApprovePost(ctx, "alice", post.ID)
		require.NoError(t, err)
		assert.True(t, approved.IsApproved)

		// Approving again is a no-op.
		again, err := svc.ApprovePost(ctx, "alice", post.ID)
		require.NoError(t, err)
		assert.True(t, again.IsApproved)
	})

	t.Run("pin and hide toggle back and forth", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)
		post, err := svc.CreatePost(ctx, "alice", group.ID, "toggle me", nil, nil)
		require.NoError(t, err)

		pinned, err := svc.TogglePin(ctx, "alice", post.ID)
		require.NoError(t, err)
		assert.True(t, pinned.IsPinned)

		unpinned, err := svc.TogglePin(ctx, "alice", post.ID)
		require.NoError(t, err)
		assert.False(t, unpinned.IsPinned)

		hidden, err := svc.ToggleHide(ctx, "alice", post.ID)
		require.NoError(t, err)
		assert.True(t, hidden.IsHidden)
	})

	t.Run("plain members cannot moderate", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})
		post, err := svc.CreatePost(ctx, "alice", group.ID, "untouchable", nil, nil)
		require.NoError(t, err)

		_, err = svc.TogglePin(ctx, "bob", post.ID)
		assert.True(t, errs.IsForbidden(err))
		_, err = svc.ToggleHide(ctx, "bob", post.ID)
		assert.True(t, errs.IsForbidden(err))
		_, err = svc.ApprovePost(ctx, "bob", post.ID)
		assert.True(t, errs.IsForbidden(err))
	})
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("author deletes own post", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})
		post, err := svc.CreatePost(ctx, "bob", group.ID, "mine", nil, nil)
		require.NoError(t, err)

		require.NoError(t, svc.DeletePost(ctx, "bob", post.ID))

		gone, err := svc.Posts.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("moderator deletes someone else's post", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob":   models.RoleModerator,
			"carol": models.RoleMember,
		})
		post, err := svc.CreatePost(ctx, "carol", group.ID, "gone soon", nil, nil)
		require.NoError(t, err)

		require.NoError(t, svc.DeletePost(ctx, "bob", post.ID))
	})

	t.Run("plain member cannot delete another's post", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob":   models.RoleMember,
			"carol": models.RoleMember,
		})
		post, err := svc.CreatePost(ctx, "carol", group.ID, "keep out", nil, nil)
		require.NoError(t, err)

		err = svc.DeletePost(ctx, "bob", post.ID)
		assert.True(t, errs.IsForbidden(err))
	})
}

func TestListPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("hidden and unapproved posts are filtered per viewer", func(t *testing.T) {
		svc := newTestService(t)
		group, err := svc.CreateGroup(ctx, "alice", "gated", "", models.VisibilityPublic, true)
		require.NoError(t, err)
		_, err = svc.JoinGroup(ctx, group.ID, "bob")
		require.NoError(t, err)
		_, err = svc.JoinGroup(ctx, group.ID, "carol")
		require.NoError(t, err)

		held, err := svc.CreatePost(ctx, "bob", group.ID, "awaiting approval", nil, nil)
		require.NoError(t, err)
		visible, err := svc.CreatePost(ctx, "alice", group.ID, "announcement", nil, nil)
		require.NoError(t, err)
		hidden, err := svc.CreatePost(ctx, "alice", group.ID, "oops", nil, nil)
		require.NoError(t, err)
		_, err = svc.ToggleHide(ctx, "alice", hidden.ID)
		require.NoError(t, err)

		// Moderator sees everything.
		posts, err := svc.ListPosts(ctx, "alice", group.ID)
		require.NoError(t, err)
		assert.Len(t, posts, 3)

		// The author sees their own held post but not the hidden one.
		posts, err = svc.ListPosts(ctx, "bob", group.ID)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		ids := []string{posts[0].ID, posts[1].ID}
		assert.Contains(t, ids, held.ID)
		assert.Contains(t, ids, visible.ID)

		// A bystander sees only the approved, unhidden post.
		posts, err = svc.ListPosts(ctx, "carol", group.ID)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, visible.ID, posts[0].ID)
	})

	t.Run("pinned posts lead, rest newest first", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)

		var ids []string
		for _, content := range []string{"first", "second", "third"} {
			post, err := svc.CreatePost(ctx, "alice", group.ID, content, nil, nil)
			require.NoError(t, err)
			ids = append(ids, post.ID)
			time.Sleep(time.Millisecond)
		}

		_, err := svc.TogglePin(ctx, "alice", ids[0])
		require.NoError(t, err)

		posts, err := svc.ListPosts(ctx, "alice", group.ID)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, ids[0], posts[0].ID)
		assert.Equal(t, ids[2], posts[1].ID)
		assert.Equal(t, ids[1], posts[2].ID)
	})

	t.Run("non-members get nothing", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)

		_, err := svc.ListPosts(ctx, "ghost", group.ID)
		assert.True(t, errs.IsForbidden(err))
	})
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()

	t.Run("comment lands on the post", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})
		post, err := svc.CreatePost(ctx, "alice", group.ID, "discuss", nil, nil)
		require.NoError(t, err)

		updated, err := svc.AddComment(ctx, "bob", post.ID, "great point")
		require.NoError(t, err)
		require.Len(t, updated.Comments, 1)
		assert.Equal(t, "bob", updated.Comments[0].AuthorID)
		assert.Equal(t, "great point", updated.Comments[0].Content)
	})

	t.Run("hidden post takes no comments from plain members", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, map[string]models.Role{
			"bob": models.RoleMember,
		})
		post, err := svc.CreatePost(ctx, "alice", group.ID, "quiet", nil, nil)
		require.NoError(t, err)
		_, err = svc.ToggleHide(ctx, "alice", post.ID)
		require.NoError(t, err)

		_, err = svc.AddComment(ctx, "bob", post.ID, "hello?")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("empty comment rejected", func(t *testing.T) {
		svc := newTestService(t)
		group := seedGroup(t, svc, "alice", models.VisibilityPublic, nil)
		post, err := svc.CreatePost(ctx, "alice", group.ID, "discuss", nil, nil)
		require.NoError(t, err)

		_, err = svc.AddComment(ctx, "alice", post.ID, "  ")
		assert.True(t, errs.IsValidation(err))
	})
}
