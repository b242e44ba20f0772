package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/internal/repository"
	"github.com/peergrove/groupd/pkg/errs"
)

type postRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &postRepository{db: db}
}

// querier covers *sql.DB and *sql.Tx for the relation loaders.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (id, group_id, author_id, content, attachments, tagged_users,
			is_pinned, is_hidden, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.GroupID, post.AuthorID, post.Content,
		pq.Array(post.Attachments), pq.Array(post.TaggedUsers),
		post.IsPinned, post.IsHidden, post.IsApproved,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	query := postSelect + ` WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, postID))
	if err != nil || post == nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, r.db, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListGroupPosts(ctx context.Context, groupID string) ([]*models.Post, error) {
	query := postSelect + ` WHERE group_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, post := range posts {
		if err := r.loadRelations(ctx, r.db, post); err != nil {
			return nil, err
		}
	}

	return posts, nil
}

func (r *postRepository) ApprovePost(ctx context.Context, postID string) (*models.Post, error) {
	return r.setFlags(ctx, postID, `is_approved = TRUE`)
}

func (r *postRepository) TogglePin(ctx context.Context, postID string) (*models.Post, error) {
	return r.setFlags(ctx, postID, `is_pinned = NOT is_pinned`)
}

func (r *postRepository) ToggleHide(ctx context.Context, postID string) (*models.Post, error) {
	return r.setFlags(ctx, postID, `is_hidden = NOT is_hidden`)
}

// setFlags applies one atomic flag mutation; the SET clause is a constant
// owned by the methods above, never caller input.
func (r *postRepository) setFlags(ctx context.Context, postID string, set string) (*models.Post, error) {
	query := `UPDATE posts SET ` + set + `, updated_at = $2 WHERE id = $1 ` +
		`RETURNING id, group_id, author_id, content, attachments, tagged_users, is_pinned, is_hidden, is_approved, created_at, updated_at`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, postID, time.Now()))
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.NotFound("post not found")
	}
	if err := r.loadRelations(ctx, r.db, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ToggleReaction(ctx context.Context, postID, userID, emoji string) (*models.Post, error) {
	var post *models.Post
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		// Stamping updated_at doubles as the existence check and takes
		// the row lock that serializes concurrent toggles.
		row := tx.QueryRowContext(ctx,
			`UPDATE posts SET updated_at = $2 WHERE id = $1 `+
				`RETURNING id, group_id, author_id, content, attachments, tagged_users, is_pinned, is_hidden, is_approved, created_at, updated_at`,
			postID, time.Now(),
		)
		post, err = scanPost(row)
		if err != nil {
			return err
		}
		if post == nil {
			return errs.NotFound("post not found")
		}

		// A reaction row is one (post, emoji, user): deleting the last
		// row for an emoji is exactly "remove the empty bucket".
		result, err := tx.ExecContext(ctx, `
			DELETE FROM post_reactions
			WHERE post_id = $1 AND emoji = $2 AND user_id = $3`,
			postID, emoji, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove reaction: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if removed == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO post_reactions (post_id, emoji, user_id, created_at)
				VALUES ($1, $2, $3, $4)`,
				postID, emoji, userID, time.Now(),
			)
			if err != nil {
				return fmt.Errorf("failed to add reaction: %w", err)
			}
		}

		if err := r.loadRelations(ctx, tx, post); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error) {
	var post *models.Post
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx,
			`UPDATE posts SET updated_at = $2 WHERE id = $1 `+
				`RETURNING id, group_id, author_id, content, attachments, tagged_users, is_pinned, is_hidden, is_approved, created_at, updated_at`,
			postID, time.Now(),
		)
		post, err = scanPost(row)
		if err != nil {
			return err
		}
		if post == nil {
			return errs.NotFound("post not found")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO post_comments (id, post_id, author_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			comment.ID, postID, comment.AuthorID, comment.Content, comment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to add comment: %w", err)
		}

		if err := r.loadRelations(ctx, tx, post); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) DeletePost(ctx context.Context, postID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return errs.NotFound("post not found")
	}

	return nil
}

const postSelect = `
	SELECT id, group_id, author_id, content, attachments, tagged_users,
		is_pinned, is_hidden, is_approved, created_at, updated_at
	FROM posts`

func scanPost(s scanner) (*models.Post, error) {
	post := &models.Post{}
	err := s.Scan(
		&post.ID,
		&post.GroupID,
		&post.AuthorID,
		&post.Content,
		pq.Array(&post.Attachments),
		pq.Array(&post.TaggedUsers),
		&post.IsPinned,
		&post.IsHidden,
		&post.IsApproved,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}
	return post, nil
}

// loadRelations populates reactions (grouped by emoji, first-reaction
// order) and comments (oldest first).
func (r *postRepository) loadRelations(ctx context.Context, q querier, post *models.Post) error {
	rows, err := q.QueryContext(ctx, `
		SELECT emoji, user_id
		FROM post_reactions
		WHERE post_id = $1
		ORDER BY created_at ASC, user_id ASC`,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	post.Reactions = nil
	index := make(map[string]int)
	for rows.Next() {
		var emoji, userID string
		if err := rows.Scan(&emoji, &userID); err != nil {
			return fmt.Errorf("failed to scan reaction: %w", err)
		}
		i, ok := index[emoji]
		if !ok {
			i = len(post.Reactions)
			index[emoji] = i
			post.Reactions = append(post.Reactions, models.Reaction{Emoji: emoji})
		}
		post.Reactions[i].UserIDs = append(post.Reactions[i].UserIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := q.QueryContext(ctx, `
		SELECT id, post_id, author_id, content, created_at
		FROM post_comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC`,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}
	defer crows.Close()

	post.Comments = nil
	for crows.Next() {
		var c models.Comment
		if err := crows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		post.Comments = append(post.Comments, c)
	}
	return crows.Err()
}
