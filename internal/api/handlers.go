package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/peergrove/groupd/internal/models"
)

// ---------------------------------------------------------------------------
// Groups & membership
// ---------------------------------------------------------------------------

type createGroupRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	Visibility          string `json:"visibility"`
	RequirePostApproval bool   `json:"require_post_approval"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req createGroupRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	visibility := models.VisibilityPublic
	if req.Visibility != "" {
		visibility = models.Visibility(req.Visibility)
	}

	group, err := s.svc.CreateGroup(r.Context(), actor, req.Name, req.Description, visibility, req.RequirePostApproval)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	groups, err := s.svc.ListGroups(r.Context(), actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	s.respondJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	group, err := s.svc.GetGroup(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	member, err := s.svc.JoinGroup(r.Context(), chi.URLParam(r, "groupID"), actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	result, err := s.svc.LeaveGroup(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type transferAdminRequest struct {
	SuccessorID string `json:"successor_id"`
}

func (s *Server) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req transferAdminRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.SuccessorID) == "" {
		s.respondError(w, http.StatusBadRequest, "successor_id is required")
		return
	}

	result, err := s.svc.TransferAdmin(r.Context(), chi.URLParam(r, "groupID"), actor, req.SuccessorID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	members, err := s.svc.ListMembers(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if members == nil {
		members = []*models.Member{}
	}
	s.respondJSON(w, http.StatusOK, members)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req changeRoleRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := s.svc.ChangeRole(r.Context(), actor, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), models.Role(req.Role))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	if err := s.svc.RemoveMember(r.Context(), actor, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID")); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Join requests
// ---------------------------------------------------------------------------

type joinRequestBody struct {
	Message string `json:"message"`
}

func (s *Server) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req joinRequestBody
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.svc.RequestJoin(r.Context(), chi.URLParam(r, "groupID"), actor, req.Message)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListJoinRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	requests, err := s.svc.ListJoinRequests(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.JoinRequest{}
	}
	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	req, err := s.svc.ApproveRequest(r.Context(), actor, chi.URLParam(r, "groupID"), chi.URLParam(r, "requestID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, req)
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	req, err := s.svc.RejectRequest(r.Context(), actor, chi.URLParam(r, "groupID"), chi.URLParam(r, "requestID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, req)
}

// ---------------------------------------------------------------------------
// Invitations
// ---------------------------------------------------------------------------

type inviteUserRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleInviteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req inviteUserRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	inv, err := s.svc.InviteUser(r.Context(), actor, chi.URLParam(r, "groupID"), req.UserID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	invitations, err := s.svc.ListInvitations(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if invitations == nil {
		invitations = []*models.Invitation{}
	}
	s.respondJSON(w, http.StatusOK, invitations)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	inv, err := s.svc.AcceptInvitation(r.Context(), actor, chi.URLParam(r, "invitationID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, inv)
}

func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	inv, err := s.svc.DeclineInvitation(r.Context(), actor, chi.URLParam(r, "invitationID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, inv)
}

// ---------------------------------------------------------------------------
// Posts & moderation
// ---------------------------------------------------------------------------

type createPostRequest struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
	TaggedUsers []string `json:"tagged_users"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	post, err := s.svc.CreatePost(r.Context(), actor, chi.URLParam(r, "groupID"), req.Content, req.Attachments, req.TaggedUsers)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	posts, err := s.svc.ListPosts(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	s.respondJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	post, err := s.svc.GetPost(r.Context(), actor, chi.URLParam(r, "postID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, post)
}

func (s *Server) handleApprovePost(w http.ResponseWriter, r *http.Request) {
	s.postAction(w, r, s.svc.ApprovePost)
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	s.postAction(w, r, s.svc.TogglePin)
}

func (s *Server) handleToggleHide(w http.ResponseWriter, r *http.Request) {
	s.postAction(w, r, s.svc.ToggleHide)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeletePost(r.Context(), actor, chi.URLParam(r, "postID")); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (s *Server) handleToggleReaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req toggleReactionRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	post, err := s.svc.ToggleReaction(r.Context(), actor, chi.URLParam(r, "postID"), req.Emoji)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, post)
}

type addCommentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var req addCommentRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	post, err := s.svc.AddComment(r.Context(), actor, chi.URLParam(r, "postID"), req.Content)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, post)
}

// postAction runs a moderation action keyed only by actor and post id.
func (s *Server) postAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, postID string) (*models.Post, error)) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	post, err := fn(r.Context(), actor, chi.URLParam(r, "postID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, post)
}
