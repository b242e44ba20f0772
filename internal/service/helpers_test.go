package service

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/peergrove/groupd/internal/metrics"
	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/internal/repository/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	store := memory.New()
	return New(l, metrics.New(), store, store, store)
}

// seedGroup creates a group owned by admin and enrolls the extra users with
// the given roles. Users are enrolled in lexical order with strictly
// increasing join times, so member listings come back in a fixed order.
func seedGroup(t *testing.T, svc *Service, admin string, visibility models.Visibility, roles map[string]models.Role) *models.Group {
	t.Helper()
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, admin, "book club", "weekly reads", visibility, false)
	require.NoError(t, err)

	userIDs := make([]string, 0, len(roles))
	for userID := range roles {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	for i, userID := range userIDs {
		_, err := svc.Groups.AddMember(ctx, &models.Member{
			GroupID:  group.ID,
			UserID:   userID,
			Role:     roles[userID],
			JoinedAt: group.CreatedAt.Add(time.Duration(i+1) * time.Second),
		})
		require.NoError(t, err)
	}
	return group
}
