package memory

import (
	"context"
	"time"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// ---------------------------------------------------------------------------
// RequestRepository - join requests
// ---------------------------------------------------------------------------

func (s *Store) CreateJoinRequest(ctx context.Context, req *models.JoinRequest) (*models.JoinRequest, error) {
	var out models.JoinRequest
	err := s.update(req.GroupID, func(st *groupState) error {
		for i := range st.requests {
			r := &st.requests[i]
			if r.UserID == req.UserID && r.Status == models.RequestPending {
				return errs.Conflict("a pending join request already exists")
			}
		}
		st.requests = append(st.requests, *req)
		out = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetJoinRequest(ctx context.Context, groupID, requestID string) (*models.JoinRequest, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, nil
	}
	for i := range st.requests {
		if st.requests[i].ID == requestID {
			r := st.requests[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) PendingJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, nil
	}
	for i := range st.requests {
		r := st.requests[i]
		if r.UserID == userID && r.Status == models.RequestPending {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) ListJoinRequests(ctx context.Context, groupID string) ([]*models.JoinRequest, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, errs.NotFound("group not found")
	}
	// Requests are appended in creation order, which is the required
	// oldest-first ordering.
	requests := make([]*models.JoinRequest, len(st.requests))
	for i := range st.requests {
		r := st.requests[i]
		requests[i] = &r
	}
	return requests, nil
}

func (s *Store) ResolveJoinRequest(ctx context.Context, groupID, requestID string, status models.RequestStatus, resolvedBy string, newMember *models.Member) (*models.JoinRequest, error) {
	var out models.JoinRequest
	err := s.update(groupID, func(st *groupState) error {
		idx := -1
		for i := range st.requests {
			if st.requests[i].ID == requestID {
				idx = i
				break
			}
		}
		if idx < 0 || st.requests[idx].Status != models.RequestPending {
			return errs.NotFound("pending join request not found")
		}
		now := time.Now()
		st.requests[idx].Status = status
		st.requests[idx].ResolvedBy = resolvedBy
		st.requests[idx].ResolvedAt = &now
		if newMember != nil && findMember(st, newMember.UserID) < 0 {
			st.members = append(st.members, *newMember)
		}
		out = st.requests[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// RequestRepository - invitations
// ---------------------------------------------------------------------------

func (s *Store) CreateInvitation(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	// Global write lock: the invitation index and the arena commit must
	// land together, and lock order is always store then arena.
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.arenas[inv.GroupID]
	if a == nil {
		return nil, errs.NotFound("group not found")
	}
	var out models.Invitation
	err := s.updateArena(a, func(st *groupState) error {
		for i := range st.invitations {
			in := &st.invitations[i]
			if in.UserID == inv.UserID && in.Status == models.InvitationPending {
				return errs.Conflict("a pending invitation already exists")
			}
		}
		st.invitations = append(st.invitations, *inv)
		out = *inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invites[inv.ID] = inv.GroupID
	return &out, nil
}

func (s *Store) GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error) {
	s.mu.RLock()
	groupID, ok := s.invites[invitationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	st := s.view(groupID)
	if st == nil {
		return nil, nil
	}
	for i := range st.invitations {
		if st.invitations[i].ID == invitationID {
			inv := st.invitations[i]
			return &inv, nil
		}
	}
	return nil, nil
}

func (s *Store) PendingInvitation(ctx context.Context, groupID, userID string) (*models.Invitation, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, nil
	}
	for i := range st.invitations {
		inv := st.invitations[i]
		if inv.UserID == userID && inv.Status == models.InvitationPending {
			return &inv, nil
		}
	}
	return nil, nil
}

func (s *Store) ListInvitations(ctx context.Context, groupID string) ([]*models.Invitation, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, errs.NotFound("group not found")
	}
	invitations := make([]*models.Invitation, len(st.invitations))
	for i := range st.invitations {
		inv := st.invitations[i]
		invitations[i] = &inv
	}
	return invitations, nil
}

func (s *Store) ResolveInvitation(ctx context.Context, invitationID string, status models.InvitationStatus, newMember *models.Member) (*models.Invitation, error) {
	s.mu.RLock()
	groupID, ok := s.invites[invitationID]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.NotFound("invitation not found")
	}
	var out models.Invitation
	err := s.update(groupID, func(st *groupState) error {
		idx := -1
		for i := range st.invitations {
			if st.invitations[i].ID == invitationID {
				idx = i
				break
			}
		}
		if idx < 0 || st.invitations[idx].Status != models.InvitationPending {
			return errs.NotFound("pending invitation not found")
		}
		now := time.Now()
		st.invitations[idx].Status = status
		st.invitations[idx].ResolvedAt = &now
		if newMember != nil && findMember(st, newMember.UserID) < 0 {
			st.members = append(st.members, *newMember)
		}
		out = st.invitations[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
