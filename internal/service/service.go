package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peergrove/groupd/internal/metrics"
	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/internal/repository"
	"github.com/peergrove/groupd/pkg/errs"
)

// Service is the engine's command/query facade. It holds the repositories
// and enforces every role check, workflow transition and invariant; the
// repositories only guarantee atomic commits.
type Service struct {
	logger  *logrus.Logger
	metrics *metrics.Metrics

	Groups   repository.GroupRepository
	Requests repository.RequestRepository
	Posts    repository.PostRepository

	// ChooseSuccessor picks the moderator to promote when an admin leaves
	// a group that still has moderators. The default takes the first
	// moderator in member-iteration order; hosts with a real business
	// rule can inject their own policy.
	ChooseSuccessor func(moderators []*models.Member) *models.Member
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, m *metrics.Metrics,
	groups repository.GroupRepository,
	requests repository.RequestRepository,
	posts repository.PostRepository,
) *Service {
	return &Service{
		logger:          logger,
		metrics:         m,
		Groups:          groups,
		Requests:        requests,
		Posts:           posts,
		ChooseSuccessor: firstModerator,
	}
}

func firstModerator(moderators []*models.Member) *models.Member {
	return moderators[0]
}

// observe is deferred by every operation to feed metrics.
func (s *Service) observe(operation string, start time.Time, err *error) {
	s.metrics.Observe(operation, start, *err)
}

// requireGroup resolves a group or fails NotFound.
func (s *Service) requireGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, errs.NotFound("group not found")
	}
	return group, nil
}

// requireMember resolves the actor's membership or fails Forbidden:
// non-members hold no authority inside a group.
func (s *Service) requireMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	member, err := s.Groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, errs.Forbidden("not a member of this group")
	}
	return member, nil
}

// requireModerator resolves the actor's membership and checks moderation
// rights.
func (s *Service) requireModerator(ctx context.Context, groupID, userID string) (*models.Member, error) {
	member, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member.Role.HasModerationRights() {
		return nil, errs.Forbidden("moderation rights required")
	}
	return member, nil
}
