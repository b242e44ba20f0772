package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// RequestJoin files a join request against a private group. Public groups
// are joined directly through JoinGroup, existing members cannot request,
// and at most one pending request per (group, user) may exist.
func (s *Service) RequestJoin(ctx context.Context, groupID, userID, message string) (req *models.JoinRequest, err error) {
	defer s.observe("request_join", time.Now(), &err)

	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Visibility == models.VisibilityPublic {
		return nil, errs.InvalidState("public groups are joined directly")
	}

	member, err := s.Groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, errs.InvalidState("already a member of this group")
	}

	pending, err := s.Requests.PendingJoinRequest(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, errs.Conflict("a pending join request already exists")
	}

	req, err = s.Requests.CreateJoinRequest(ctx, &models.JoinRequest{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		UserID:    userID,
		Message:   strings.TrimSpace(message),
		Status:    models.RequestPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("join request created")
	return req, nil
}

// ApproveRequest transitions a pending request to approved and enrolls the
// requester as a member in the same commit.
func (s *Service) ApproveRequest(ctx context.Context, actorID, groupID, requestID string) (req *models.JoinRequest, err error) {
	defer s.observe("approve_request", time.Now(), &err)

	if _, err = s.requireModerator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	req, err = s.Requests.GetJoinRequest(ctx, groupID, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Status != models.RequestPending {
		return nil, errs.NotFound("pending join request not found")
	}

	req, err = s.Requests.ResolveJoinRequest(ctx, groupID, requestID, models.RequestApproved, actorID, &models.Member{
		GroupID:  groupID,
		UserID:   req.UserID,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"request_id": requestID,
		"actor_id":   actorID,
		"user_id":    req.UserID,
	}).Info("join request approved")

	return req, nil
}

// RejectRequest transitions a pending request to rejected. Membership is
// untouched and the record is kept as history.
func (s *Service) RejectRequest(ctx context.Context, actorID, groupID, requestID string) (req *models.JoinRequest, err error) {
	defer s.observe("reject_request", time.Now(), &err)

	if _, err = s.requireModerator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	req, err = s.Requests.ResolveJoinRequest(ctx, groupID, requestID, models.RequestRejected, actorID, nil)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"request_id": requestID,
		"actor_id":   actorID,
	}).Info("join request rejected")

	return req, nil
}

// InviteUser creates a pending invitation for a user who is neither a
// member nor already invited.
func (s *Service) InviteUser(ctx context.Context, actorID, groupID, userID string) (inv *models.Invitation, err error) {
	defer s.observe("invite_user", time.Now(), &err)

	if _, err = s.requireModerator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	member, err := s.Groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, errs.Conflict("user is already a member")
	}

	pending, err := s.Requests.PendingInvitation(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, errs.Conflict("a pending invitation already exists")
	}

	inv, err = s.Requests.CreateInvitation(ctx, &models.Invitation{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		UserID:    userID,
		InviterID: actorID,
		Status:    models.InvitationPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"inviter_id": actorID,
		"user_id":    userID,
	}).Info("user invited")

	return inv, nil
}

// AcceptInvitation enrolls the invited user as a member and marks the
// invitation accepted in one commit. Only the invited user may accept.
func (s *Service) AcceptInvitation(ctx context.Context, userID, invitationID string) (inv *models.Invitation, err error) {
	defer s.observe("accept_invitation", time.Now(), &err)

	inv, err = s.resolveOwnInvitation(ctx, userID, invitationID, models.InvitationAccepted)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":      inv.GroupID,
		"invitation_id": invitationID,
		"user_id":       userID,
	}).Info("invitation accepted")

	return inv, nil
}

// DeclineInvitation marks the invitation declined; membership is
// untouched.
func (s *Service) DeclineInvitation(ctx context.Context, userID, invitationID string) (inv *models.Invitation, err error) {
	defer s.observe("decline_invitation", time.Now(), &err)

	inv, err = s.resolveOwnInvitation(ctx, userID, invitationID, models.InvitationDeclined)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":      inv.GroupID,
		"invitation_id": invitationID,
		"user_id":       userID,
	}).Info("invitation declined")

	return inv, nil
}

func (s *Service) resolveOwnInvitation(ctx context.Context, userID, invitationID string, status models.InvitationStatus) (*models.Invitation, error) {
	inv, err := s.Requests.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errs.NotFound("invitation not found")
	}
	if inv.UserID != userID {
		return nil, errs.Forbidden("not your invitation")
	}
	if inv.Status != models.InvitationPending {
		return nil, errs.NotFound("pending invitation not found")
	}

	var newMember *models.Member
	if status == models.InvitationAccepted {
		newMember = &models.Member{
			GroupID:  inv.GroupID,
			UserID:   userID,
			Role:     models.RoleMember,
			JoinedAt: time.Now(),
		}
	}

	return s.Requests.ResolveInvitation(ctx, invitationID, status, newMember)
}

// ListJoinRequests returns a group's join requests oldest first. Requires
// moderation rights: the queue is a moderator surface.
func (s *Service) ListJoinRequests(ctx context.Context, actorID, groupID string) (requests []*models.JoinRequest, err error) {
	defer s.observe("list_join_requests", time.Now(), &err)

	if _, err = s.requireModerator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	requests, err = s.Requests.ListJoinRequests(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}

// ListInvitations returns a group's invitations oldest first, for
// moderators.
func (s *Service) ListInvitations(ctx context.Context, actorID, groupID string) (invitations []*models.Invitation, err error) {
	defer s.observe("list_invitations", time.Now(), &err)

	if _, err = s.requireModerator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	invitations, err = s.Requests.ListInvitations(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.Before(invitations[j].CreatedAt)
	})
	return invitations, nil
}
