// Package memory implements the repositories as a copy-on-write in-memory
// arena keyed by group id. Mutations against one group are serialized by
// that group's writer mutex and published with an atomic pointer swap, so
// readers load consistent snapshots without taking any lock and operations
// on different groups proceed fully in parallel.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	uatomic "go.uber.org/atomic"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// Store holds every group arena plus the global indexes that map post and
// invitation ids back to their owning group. It implements
// repository.GroupRepository, RequestRepository and PostRepository.
type Store struct {
	mu      sync.RWMutex
	arenas  map[string]*arena
	posts   map[string]string // post id -> group id
	invites map[string]string // invitation id -> group id
	version uatomic.Int64     // total committed mutations, for diagnostics
}

// New creates an empty store.
func New() *Store {
	return &Store{
		arenas:  make(map[string]*arena),
		posts:   make(map[string]string),
		invites: make(map[string]string),
	}
}

// Version returns the number of commits applied so far. Each committed
// mutation bumps it exactly once, compound or not.
func (s *Store) Version() int64 {
	return s.version.Load()
}

// arena serializes writers for a single group. snap always points at the
// last committed state; committed states are never mutated in place.
type arena struct {
	mu      sync.Mutex
	deleted bool
	snap    atomic.Pointer[groupState]
}

type groupState struct {
	group       models.Group
	members     []models.Member
	requests    []models.JoinRequest
	invitations []models.Invitation
	posts       []*models.Post
}

// clone shallow-copies the state with fresh slice headers. Elements are
// replaced, never mutated, so sharing the post pointers is safe until a
// writer swaps one out for a Clone.
func (st *groupState) clone() *groupState {
	return &groupState{
		group:       st.group,
		members:     slices.Clone(st.members),
		requests:    slices.Clone(st.requests),
		invitations: slices.Clone(st.invitations),
		posts:       slices.Clone(st.posts),
	}
}

func (s *Store) arenaFor(groupID string) *arena {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.arenas[groupID]
}

// view returns the committed snapshot for a group, or nil when the group
// does not exist. The caller must copy anything it hands out.
func (s *Store) view(groupID string) *groupState {
	a := s.arenaFor(groupID)
	if a == nil {
		return nil
	}
	return a.snap.Load()
}

// update runs fn against a clone of the group's committed state and
// publishes the result as one commit. fn returning an error aborts the
// commit with no externally visible effect.
func (s *Store) update(groupID string, fn func(st *groupState) error) error {
	a := s.arenaFor(groupID)
	if a == nil {
		return errs.NotFound("group not found")
	}
	return s.updateArena(a, fn)
}

func (s *Store) updateArena(a *arena, fn func(st *groupState) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleted {
		return errs.NotFound("group not found")
	}
	next := a.snap.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	a.snap.Store(next)
	s.version.Inc()
	return nil
}

// ---------------------------------------------------------------------------
// GroupRepository
// ---------------------------------------------------------------------------

func (s *Store) CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.arenas[group.ID]; ok {
		return nil, errs.Conflict("group already exists")
	}
	st := &groupState{
		group:   *group,
		members: []models.Member{*creator},
	}
	a := &arena{}
	a.snap.Store(st)
	s.arenas[group.ID] = a
	s.version.Inc()
	g := st.group
	return &g, nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, nil
	}
	g := st.group
	return &g, nil
}

func (s *Store) ListVisible(ctx context.Context, viewerID string) ([]*models.Group, error) {
	s.mu.RLock()
	arenas := make([]*arena, 0, len(s.arenas))
	for _, a := range s.arenas {
		arenas = append(arenas, a)
	}
	s.mu.RUnlock()

	var groups []*models.Group
	for _, a := range arenas {
		st := a.snap.Load()
		if st.group.Visibility == models.VisibilityPublic || findMember(st, viewerID) >= 0 {
			g := st.group
			groups = append(groups, &g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.Before(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (s *Store) DeleteCascade(ctx context.Context, groupID, lastMemberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.arenas[groupID]
	if a == nil {
		return errs.NotFound("group not found")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.snap.Load()
	// The emptiness check happens under the arena lock: a join that
	// committed after the caller's reads blocks the cascade.
	if len(st.members) != 1 || st.members[0].UserID != lastMemberID {
		return errs.Conflict("group is not empty")
	}
	for _, p := range st.posts {
		delete(s.posts, p.ID)
	}
	for _, inv := range st.invitations {
		delete(s.invites, inv.ID)
	}
	a.deleted = true
	delete(s.arenas, groupID)
	s.version.Inc()
	return nil
}

func (s *Store) AddMember(ctx context.Context, member *models.Member) (*models.Member, error) {
	var out models.Member
	err := s.update(member.GroupID, func(st *groupState) error {
		if i := findMember(st, member.UserID); i >= 0 {
			out = st.members[i]
			return nil
		}
		st.members = append(st.members, *member)
		out = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, nil
	}
	i := findMember(st, userID)
	if i < 0 {
		return nil, nil
	}
	m := st.members[i]
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, errs.NotFound("group not found")
	}
	members := make([]*models.Member, len(st.members))
	for i := range st.members {
		m := st.members[i]
		members[i] = &m
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (s *Store) SetMemberRole(ctx context.Context, groupID, userID string, role models.Role) (*models.Member, error) {
	var out models.Member
	err := s.update(groupID, func(st *groupState) error {
		i := findMember(st, userID)
		if i < 0 {
			return errs.NotFound("member not found")
		}
		if st.members[i].Role == models.RoleAdmin {
			return errs.InvalidState("the admin role cannot be changed here")
		}
		st.members[i].Role = role
		out = st.members[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.update(groupID, func(st *groupState) error {
		i := findMember(st, userID)
		if i < 0 {
			return errs.NotFound("member not found")
		}
		if st.members[i].Role == models.RoleAdmin {
			return errs.InvalidState("the admin cannot be removed")
		}
		st.members = append(st.members[:i], st.members[i+1:]...)
		return nil
	})
}

func (s *Store) ReplaceAdmin(ctx context.Context, groupID, departingID, successorID string) (*models.Member, error) {
	var out models.Member
	err := s.update(groupID, func(st *groupState) error {
		di := findMember(st, departingID)
		if di < 0 || st.members[di].Role != models.RoleAdmin {
			return errs.InvalidState("departing user is not the group admin")
		}
		si := findMember(st, successorID)
		if si < 0 {
			return errs.InvalidState("successor is not a member of the group")
		}
		st.members[si].Role = models.RoleAdmin
		out = st.members[si]
		st.members = append(st.members[:di], st.members[di+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func findMember(st *groupState, userID string) int {
	for i := range st.members {
		if st.members[i].UserID == userID {
			return i
		}
	}
	return -1
}
