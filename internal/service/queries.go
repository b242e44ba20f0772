package service

import (
	"context"
	"sort"
	"time"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// ListGroups returns the groups visible to the viewer: every public group
// plus the private groups they belong to.
func (s *Service) ListGroups(ctx context.Context, viewerID string) (groups []*models.Group, err error) {
	defer s.observe("list_groups", time.Now(), &err)
	return s.Groups.ListVisible(ctx, viewerID)
}

// GetGroup returns a single group. Private groups resolve only for their
// members; to anyone else they do not exist.
func (s *Service) GetGroup(ctx context.Context, viewerID, groupID string) (group *models.Group, err error) {
	defer s.observe("get_group", time.Now(), &err)

	group, err = s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Visibility == models.VisibilityPrivate {
		member, err := s.Groups.GetMember(ctx, groupID, viewerID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, errs.NotFound("group not found")
		}
	}
	return group, nil
}

// ListMembers returns a group's roster ordered by role (admin, moderators,
// members) and by join time within a role. Members only.
func (s *Service) ListMembers(ctx context.Context, viewerID, groupID string) (members []*models.Member, err error) {
	defer s.observe("list_members", time.Now(), &err)

	if _, err = s.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}

	members, err = s.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Role != members[j].Role {
			return members[i].Role.DisplayOrder() < members[j].Role.DisplayOrder()
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// ListPosts returns the group's feed as the viewer is allowed to see it:
// hidden and unapproved posts are filtered per the visibility rule, pinned
// posts lead, and the rest run newest first. Members only.
func (s *Service) ListPosts(ctx context.Context, viewerID, groupID string) (posts []*models.Post, err error) {
	defer s.observe("list_posts", time.Now(), &err)

	viewer, err := s.requireMember(ctx, groupID, viewerID)
	if err != nil {
		return nil, err
	}
	moderator := viewer.Role.HasModerationRights()

	all, err := s.Posts.ListGroupPosts(ctx, groupID)
	if err != nil {
		return nil, err
	}

	posts = make([]*models.Post, 0, len(all))
	for _, p := range all {
		if p.VisibleTo(viewerID, moderator) {
			posts = append(posts, p)
		}
	}
	models.SortPosts(posts)
	return posts, nil
}

// GetPost returns a single post subject to the same visibility rule as
// listings.
func (s *Service) GetPost(ctx context.Context, viewerID, postID string) (post *models.Post, err error) {
	defer s.observe("get_post", time.Now(), &err)
	return s.visiblePost(ctx, viewerID, postID)
}
