package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// CreatePost publishes a post into a group the author belongs to. In
// groups with post approval turned on, posts by plain members start
// unapproved and wait in the moderation queue; posts by moderators and the
// admin are approved immediately.
func (s *Service) CreatePost(ctx context.Context, authorID, groupID, content string, attachments, taggedUsers []string) (post *models.Post, err error) {
	defer s.observe("create_post", time.Now(), &err)

	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return nil, errs.Validation("post must have content or attachments")
	}

	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	author, err := s.requireMember(ctx, groupID, authorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post, err = s.Posts.CreatePost(ctx, &models.Post{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		AuthorID:    authorID,
		Content:     content,
		Attachments: attachments,
		TaggedUsers: taggedUsers,
		IsApproved:  !group.RequirePostApproval || author.Role.HasModerationRights(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":  groupID,
		"post_id":   post.ID,
		"author_id": authorID,
		"approved":  post.IsApproved,
	}).Info("post created")

	return post, nil
}

// ApprovePost releases a post from the moderation queue. Approving an
// already-approved post is a no-op.
func (s *Service) ApprovePost(ctx context.Context, actorID, postID string) (post *models.Post, err error) {
	defer s.observe("approve_post", time.Now(), &err)

	if _, err = s.moderatablePost(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err = s.Posts.ApprovePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": post.GroupID,
		"post_id":  postID,
		"actor_id": actorID,
	}).Info("post approved")

	return post, nil
}

// TogglePin flips a post's pinned flag. Pinned posts lead every listing of
// their group.
func (s *Service) TogglePin(ctx context.Context, actorID, postID string) (post *models.Post, err error) {
	defer s.observe("toggle_pin", time.Now(), &err)

	if _, err = s.moderatablePost(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err = s.Posts.TogglePin(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": post.GroupID,
		"post_id":  postID,
		"actor_id": actorID,
		"pinned":   post.IsPinned,
	}).Info("post pin toggled")

	return post, nil
}

// ToggleHide flips a post's hidden flag. Hiding keeps the post stored but
// drops it from non-moderator views; unhiding restores it.
func (s *Service) ToggleHide(ctx context.Context, actorID, postID string) (post *models.Post, err error) {
	defer s.observe("toggle_hide", time.Now(), &err)

	if _, err = s.moderatablePost(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err = s.Posts.ToggleHide(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": post.GroupID,
		"post_id":  postID,
		"actor_id": actorID,
		"hidden":   post.IsHidden,
	}).Info("post hide toggled")

	return post, nil
}

// DeletePost permanently removes a post with all of its reactions and
// comments. Allowed for the post's author and for moderators of its group.
func (s *Service) DeletePost(ctx context.Context, actorID, postID string) (err error) {
	defer s.observe("delete_post", time.Now(), &err)

	post, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errs.NotFound("post not found")
	}

	if post.AuthorID != actorID {
		if _, err = s.requireModerator(ctx, post.GroupID, actorID); err != nil {
			return err
		}
	}

	if err = s.Posts.DeletePost(ctx, postID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": post.GroupID,
		"post_id":  postID,
		"actor_id": actorID,
	}).Info("post deleted")

	return nil
}

// AddComment appends a comment to a post the actor can see.
func (s *Service) AddComment(ctx context.Context, actorID, postID, content string) (post *models.Post, err error) {
	defer s.observe("add_comment", time.Now(), &err)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("comment must not be empty")
	}

	if _, err = s.visiblePost(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err = s.Posts.AddComment(ctx, postID, &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  actorID,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": post.GroupID,
		"post_id":  postID,
		"actor_id": actorID,
	}).Info("comment added")

	return post, nil
}

// moderatablePost resolves the post and checks the actor holds moderation
// rights in its group.
func (s *Service) moderatablePost(ctx context.Context, actorID, postID string) (*models.Post, error) {
	post, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.NotFound("post not found")
	}
	if _, err = s.requireModerator(ctx, post.GroupID, actorID); err != nil {
		return nil, err
	}
	return post, nil
}

// visiblePost resolves the post for a member of its group and applies the
// read-side visibility rule. A post the actor cannot see is reported as
// NotFound, indistinguishable from a post that does not exist.
func (s *Service) visiblePost(ctx context.Context, actorID, postID string) (*models.Post, error) {
	post, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.NotFound("post not found")
	}
	actor, err := s.requireMember(ctx, post.GroupID, actorID)
	if err != nil {
		return nil, err
	}
	if !post.VisibleTo(actorID, actor.Role.HasModerationRights()) {
		return nil, errs.NotFound("post not found")
	}
	return post, nil
}
