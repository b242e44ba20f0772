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

// CreateGroup creates a group with the creator auto-enrolled as its sole
// admin.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name, description string, visibility models.Visibility, requirePostApproval bool) (group *models.Group, err error) {
	defer s.observe("create_group", time.Now(), &err)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("group name must not be empty")
	}
	if creatorID == "" {
		return nil, errs.Validation("creator id must not be empty")
	}
	if !visibility.Valid() {
		return nil, errs.Validation("visibility must be public or private")
	}

	now := time.Now()
	group = &models.Group{
		ID:                  uuid.NewString(),
		Name:                name,
		Description:         strings.TrimSpace(description),
		Visibility:          visibility,
		RequirePostApproval: requirePostApproval,
		CreatorID:           creatorID,
		CreatedAt:           now,
	}
	creator := &models.Member{
		GroupID:  group.ID,
		UserID:   creatorID,
		Role:     models.RoleAdmin,
		JoinedAt: now,
	}

	group, err = s.Groups.CreateGroup(ctx, group, creator)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":   group.ID,
		"creator_id": creatorID,
		"visibility": group.Visibility,
	}).Info("group created")

	return group, nil
}

// JoinGroup enrolls the user into a public group with the member role.
// Joining a group the user already belongs to is a no-op returning the
// existing membership. Private groups cannot be entered here: callers must
// go through the join-request workflow.
func (s *Service) JoinGroup(ctx context.Context, groupID, userID string) (member *models.Member, err error) {
	defer s.observe("join_group", time.Now(), &err)

	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Visibility == models.VisibilityPrivate {
		return nil, errs.InvalidState("private groups require a join request")
	}

	member, err = s.Groups.AddMember(ctx, &models.Member{
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("user joined group")
	return member, nil
}

// ChangeRole moves a member between the member and moderator roles. Only
// the admin may invoke it, never against themselves, and never to or from
// the admin role: the admin seat moves only through succession.
func (s *Service) ChangeRole(ctx context.Context, actorID, groupID, userID string, newRole models.Role) (member *models.Member, err error) {
	defer s.observe("change_role", time.Now(), &err)

	if newRole == models.RoleAdmin {
		return nil, errs.InvalidState("the admin role is assigned only through succession")
	}
	if !newRole.Valid() {
		return nil, errs.Validation("unknown role")
	}

	actor, err := s.requireMember(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, errs.Forbidden("only the admin may change roles")
	}
	if userID == actorID {
		return nil, errs.InvalidState("the admin cannot change their own role")
	}

	target, err := s.Groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errs.NotFound("member not found")
	}
	if target.Role == models.RoleAdmin {
		return nil, errs.InvalidState("the admin role cannot be changed here")
	}

	member, err = s.Groups.SetMemberRole(ctx, groupID, userID, newRole)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": groupID,
		"actor_id": actorID,
		"user_id":  userID,
		"role":     newRole,
	}).Info("member role changed")

	return member, nil
}

// RemoveMember expels a member. Requires moderation rights; the admin
// cannot be removed and self-removal goes through LeaveGroup. The removed
// user's posts stay untouched, as do any resolved or pending requests and
// invitations (history).
func (s *Service) RemoveMember(ctx context.Context, actorID, groupID, userID string) (err error) {
	defer s.observe("remove_member", time.Now(), &err)

	if _, err = s.requireModerator(ctx, groupID, actorID); err != nil {
		return err
	}
	if userID == actorID {
		return errs.InvalidState("use leaveGroup to remove yourself")
	}

	target, err := s.Groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return errs.NotFound("member not found")
	}
	if target.Role == models.RoleAdmin {
		return errs.InvalidState("the admin cannot be removed")
	}

	if err = s.Groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": groupID,
		"actor_id": actorID,
		"user_id":  userID,
	}).Info("member removed")

	return nil
}
