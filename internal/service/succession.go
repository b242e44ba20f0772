package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// LeaveOutcome tags the result of a departure. RequiresSuccessionChoice is
// a distinct outcome, not an error: nothing was mutated and the caller must
// pick a successor through TransferAdmin first.
type LeaveOutcome string

const (
	OutcomeLeft               LeaveOutcome = "left"
	OutcomeAdminTransferred   LeaveOutcome = "admin_transferred"
	OutcomeGroupDeleted       LeaveOutcome = "group_deleted"
	OutcomeSuccessionRequired LeaveOutcome = "succession_required"
)

// LeaveResult is the snapshot returned by LeaveGroup and TransferAdmin.
type LeaveResult struct {
	Outcome    LeaveOutcome `json:"outcome"`
	GroupID    string       `json:"group_id"`
	NewAdminID string       `json:"new_admin_id,omitempty"`
}

// LeaveGroup removes the member from the group. A non-admin departure is a
// plain membership deletion. An admin departure runs the succession
// protocol, evaluated strictly in this order:
//
//  1. a moderator exists: the chosen moderator is promoted and the admin's
//     row deleted in one commit;
//  2. other members exist but no moderator: nothing is mutated and the
//     result carries OutcomeSuccessionRequired;
//  3. the admin is the only member: the group and everything scoped to it
//     is deleted.
//
// Every committed path therefore leaves the group with exactly one admin,
// awaiting an explicit choice, or gone.
func (s *Service) LeaveGroup(ctx context.Context, userID, groupID string) (result *LeaveResult, err error) {
	defer s.observe("leave_group", time.Now(), &err)

	member, err := s.Groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, errs.NotFound("member not found")
	}

	if member.Role != models.RoleAdmin {
		if err = s.Groups.RemoveMember(ctx, groupID, userID); err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("member left group")
		return &LeaveResult{Outcome: OutcomeLeft, GroupID: groupID}, nil
	}

	members, err := s.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	// Sole member: the group ceases to exist. The store re-checks the
	// membership at commit time; a join that lands between our reads and
	// the cascade turns this into a succession decision instead.
	if len(members) == 1 {
		if err = s.Groups.DeleteCascade(ctx, groupID, userID); err != nil {
			if errs.IsConflict(err) {
				err = nil
				return &LeaveResult{Outcome: OutcomeSuccessionRequired, GroupID: groupID}, nil
			}
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("last member left, group deleted")
		return &LeaveResult{Outcome: OutcomeGroupDeleted, GroupID: groupID}, nil
	}

	var moderators []*models.Member
	for _, m := range members {
		if m.Role == models.RoleModerator {
			moderators = append(moderators, m)
		}
	}

	if len(moderators) == 0 {
		// Plain members remain but no moderator to promote: refuse the
		// leave and demand an explicit TransferAdmin.
		return &LeaveResult{Outcome: OutcomeSuccessionRequired, GroupID: groupID}, nil
	}

	successor := s.ChooseSuccessor(moderators)
	promoted, err := s.Groups.ReplaceAdmin(ctx, groupID, userID, successor.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":     groupID,
		"user_id":      userID,
		"new_admin_id": promoted.UserID,
	}).Info("admin left, moderator promoted")

	return &LeaveResult{
		Outcome:    OutcomeAdminTransferred,
		GroupID:    groupID,
		NewAdminID: promoted.UserID,
	}, nil
}

// TransferAdmin hands the admin seat to a chosen member and removes the
// departing admin, atomically. It is the required follow-up after
// LeaveGroup returned OutcomeSuccessionRequired, and may target any member
// except the departing admin.
func (s *Service) TransferAdmin(ctx context.Context, groupID, actorID, successorID string) (result *LeaveResult, err error) {
	defer s.observe("transfer_admin", time.Now(), &err)

	actor, err := s.requireMember(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, errs.Forbidden("only the admin may transfer the admin role")
	}
	if successorID == actorID {
		return nil, errs.InvalidState("cannot transfer the admin role to yourself")
	}

	promoted, err := s.Groups.ReplaceAdmin(ctx, groupID, actorID, successorID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":     groupID,
		"user_id":      actorID,
		"new_admin_id": promoted.UserID,
	}).Info("admin transferred")

	return &LeaveResult{
		Outcome:    OutcomeAdminTransferred,
		GroupID:    groupID,
		NewAdminID: promoted.UserID,
	}, nil
}
