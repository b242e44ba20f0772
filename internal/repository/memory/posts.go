package memory

import (
	"context"
	"time"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/pkg/errs"
)

// ---------------------------------------------------------------------------
// PostRepository
// ---------------------------------------------------------------------------

func (s *Store) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.arenas[post.GroupID]
	if a == nil {
		return nil, errs.NotFound("group not found")
	}
	stored := post.Clone()
	err := s.updateArena(a, func(st *groupState) error {
		st.posts = append(st.posts, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.posts[post.ID] = post.GroupID
	return stored.Clone(), nil
}

func (s *Store) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	st, i := s.findPost(postID)
	if st == nil || i < 0 {
		return nil, nil
	}
	return st.posts[i].Clone(), nil
}

func (s *Store) ListGroupPosts(ctx context.Context, groupID string) ([]*models.Post, error) {
	st := s.view(groupID)
	if st == nil {
		return nil, errs.NotFound("group not found")
	}
	posts := make([]*models.Post, len(st.posts))
	for i, p := range st.posts {
		posts[i] = p.Clone()
	}
	return posts, nil
}

func (s *Store) ApprovePost(ctx context.Context, postID string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) {
		p.IsApproved = true
	})
}

func (s *Store) TogglePin(ctx context.Context, postID string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) {
		p.IsPinned = !p.IsPinned
	})
}

func (s *Store) ToggleHide(ctx context.Context, postID string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) {
		p.IsHidden = !p.IsHidden
	})
}

func (s *Store) ToggleReaction(ctx context.Context, postID, userID, emoji string) (*models.Post, error) {
	return s.mutatePost(postID, func(p *models.Post) {
		p.Reactions = models.ToggleReaction(p.Reactions, userID, emoji)
	})
}

func (s *Store) AddComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error) {
	c := *comment
	c.PostID = postID
	return s.mutatePost(postID, func(p *models.Post) {
		p.Comments = append(p.Comments, c)
	})
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	groupID, ok := s.posts[postID]
	if !ok {
		return errs.NotFound("post not found")
	}
	a := s.arenas[groupID]
	if a == nil {
		return errs.NotFound("post not found")
	}
	err := s.updateArena(a, func(st *groupState) error {
		for i, p := range st.posts {
			if p.ID == postID {
				st.posts = append(st.posts[:i], st.posts[i+1:]...)
				return nil
			}
		}
		return errs.NotFound("post not found")
	})
	if err != nil {
		return err
	}
	delete(s.posts, postID)
	return nil
}

// mutatePost clones the post, applies fn, stamps UpdatedAt and commits the
// replacement in one step.
func (s *Store) mutatePost(postID string, fn func(p *models.Post)) (*models.Post, error) {
	s.mu.RLock()
	groupID, ok := s.posts[postID]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.NotFound("post not found")
	}
	var out *models.Post
	err := s.update(groupID, func(st *groupState) error {
		for i, p := range st.posts {
			if p.ID == postID {
				next := p.Clone()
				fn(next)
				next.UpdatedAt = time.Now()
				st.posts[i] = next
				out = next.Clone()
				return nil
			}
		}
		return errs.NotFound("post not found")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// findPost resolves a post id to its group snapshot and index.
func (s *Store) findPost(postID string) (*groupState, int) {
	s.mu.RLock()
	groupID, ok := s.posts[postID]
	s.mu.RUnlock()
	if !ok {
		return nil, -1
	}
	st := s.view(groupID)
	if st == nil {
		return nil, -1
	}
	for i, p := range st.posts {
		if p.ID == postID {
			return st, i
		}
	}
	return nil, -1
}
