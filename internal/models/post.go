package models

import (
	"slices"
	"sort"
	"time"
)

// Post is a group-scoped post. Hiding is a moderation flag, not a
// deletion: a hidden post stays fully stored and is surfaced only to
// viewers with moderation rights.
type Post struct {
	ID          string     `json:"id" db:"id"`
	GroupID     string     `json:"group_id" db:"group_id"`
	AuthorID    string     `json:"author_id" db:"author_id"`
	Content     string     `json:"content" db:"content"`
	Attachments []string   `json:"attachments,omitempty"`
	TaggedUsers []string   `json:"tagged_users,omitempty"`
	Reactions   []Reaction `json:"reactions,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
	IsPinned    bool       `json:"is_pinned" db:"is_pinned"`
	IsHidden    bool       `json:"is_hidden" db:"is_hidden"`
	IsApproved  bool       `json:"is_approved" db:"is_approved"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Clone deep-copies the post, including reactions and comments.
func (p *Post) Clone() *Post {
	out := *p
	out.Attachments = slices.Clone(p.Attachments)
	out.TaggedUsers = slices.Clone(p.TaggedUsers)
	out.Reactions = CloneReactions(p.Reactions)
	out.Comments = slices.Clone(p.Comments)
	return &out
}

// VisibleTo applies the read-side visibility rule: viewers with moderation
// rights see everything; everyone else sees a post only when it is not
// hidden and is either approved or their own.
func (p *Post) VisibleTo(viewerID string, moderator bool) bool {
	if moderator {
		return true
	}
	if p.IsHidden {
		return false
	}
	return p.IsApproved || p.AuthorID == viewerID
}

// SortPosts orders a listing in place: pinned posts first (stable among
// themselves), then the rest by descending creation time. This ordering is
// a contract for every listing surface.
func SortPosts(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].IsPinned != posts[j].IsPinned {
			return posts[i].IsPinned
		}
		if posts[i].IsPinned {
			return false // pinned block keeps its existing order
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
