package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// ToggleReaction adds the actor's reaction with the given emoji, or removes
// it when already present. The toggle is idempotent in pairs: reacting
// twice restores the original state, and an emoji bucket with no reactors
// never survives a commit.
func (s *Service) ToggleReaction(ctx context.Context, actorID, postID, emoji string) (post *models.Post, err error) {
	defer s.observe("toggle_reaction", time.Now(), &err)

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, errs.Validation("emoji must not be empty")
	}

	if _, err = s.visiblePost(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err = s.Posts.ToggleReaction(ctx, postID, actorID, emoji)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": post.GroupID,
		"post_id":  postID,
		"actor_id": actorID,
		"emoji":    emoji,
	}).Info("reaction toggled")

	return post, nil
}
