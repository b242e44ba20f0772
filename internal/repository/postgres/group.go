package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/internal/repository"
	"github.com/peergrove/groupd/pkg/errs"
)

type groupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) (*models.Group, error) {
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO groups (id, name, description, visibility, require_post_approval, creator_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			group.ID, group.Name, group.Description, group.Visibility,
			group.RequirePostApproval, group.CreatorID, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)`,
			creator.GroupID, creator.UserID, creator.Role, creator.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to enroll creator: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *groupRepository) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	query := `
		SELECT id, name, description, visibility, require_post_approval, creator_id, created_at
		FROM groups
		WHERE id = $1`

	group := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.Visibility,
		&group.RequirePostApproval,
		&group.CreatorID,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

func (r *groupRepository) ListVisible(ctx context.Context, viewerID string) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.name, g.description, g.visibility, g.require_post_approval, g.creator_id, g.created_at
		FROM groups g
		WHERE g.visibility = 'public'
		   OR EXISTS (
			SELECT 1 FROM group_members m
			WHERE m.group_id = g.id AND m.user_id = $1
		   )
		ORDER BY g.created_at ASC, g.id ASC`

	rows, err := r.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.Description,
			&group.Visibility,
			&group.RequirePostApproval,
			&group.CreatorID,
			&group.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

func (r *groupRepository) DeleteCascade(ctx context.Context, groupID, lastMemberID string) error {
	// Members, requests, invitations, posts, reactions and comments all
	// hang off groups via ON DELETE CASCADE, so one statement removes the
	// whole subtree. The transaction first locks the membership rows and
	// verifies lastMemberID is the sole member, so a join that committed
	// after the caller's reads blocks the cascade.
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT user_id FROM group_members
			WHERE group_id = $1
			FOR UPDATE`,
			groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to lock members: %w", err)
		}
		var memberIDs []string
		for rows.Next() {
			var userID string
			if err := rows.Scan(&userID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan member: %w", err)
			}
			memberIDs = append(memberIDs, userID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(memberIDs) != 1 || memberIDs[0] != lastMemberID {
			return errs.Conflict("group is not empty")
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
		if err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return errs.NotFound("group not found")
		}

		return tx.Commit()
	})
}

func (r *groupRepository) AddMember(ctx context.Context, member *models.Member) (*models.Member, error) {
	var out *models.Member
	err := withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (group_id, user_id) DO NOTHING`,
			member.GroupID, member.UserID, member.Role, member.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		out, err = r.GetMember(ctx, member.GroupID, member.UserID)
		if err != nil {
			return err
		}
		if out == nil {
			return errs.NotFound("group not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *groupRepository) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	query := `
		SELECT group_id, user_id, role, joined_at
		FROM group_members
		WHERE group_id = $1 AND user_id = $2`

	member := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.JoinedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	query := `
		SELECT group_id, user_id, role, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at ASC, user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(
			&member.GroupID,
			&member.UserID,
			&member.Role,
			&member.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

func (r *groupRepository) SetMemberRole(ctx context.Context, groupID, userID string, role models.Role) (*models.Member, error) {
	// The role guard lives in the statement itself: a target promoted to
	// admin after the caller's checks matches zero rows instead of being
	// demoted.
	query := `
		UPDATE group_members
		SET role = $3
		WHERE group_id = $1 AND user_id = $2 AND role <> 'admin'
		RETURNING group_id, user_id, role, joined_at`

	member := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID, role).Scan(
		&member.GroupID,
		&member.UserID,
		&member.Role,
		&member.JoinedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			existing, gerr := r.GetMember(ctx, groupID, userID)
			if gerr != nil {
				return nil, gerr
			}
			if existing == nil {
				return nil, errs.NotFound("member not found")
			}
			return nil, errs.InvalidState("the admin role cannot be changed here")
		}
		return nil, fmt.Errorf("failed to set member role: %w", err)
	}

	return member, nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM group_members
		WHERE group_id = $1 AND user_id = $2 AND role <> 'admin'`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		existing, gerr := r.GetMember(ctx, groupID, userID)
		if gerr != nil {
			return gerr
		}
		if existing == nil {
			return errs.NotFound("member not found")
		}
		return errs.InvalidState("the admin cannot be removed")
	}

	return nil
}

func (r *groupRepository) ReplaceAdmin(ctx context.Context, groupID, departingID, successorID string) (*models.Member, error) {
	promoted := &models.Member{}
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		var role models.Role
		err = tx.QueryRowContext(ctx, `
			SELECT role FROM group_members
			WHERE group_id = $1 AND user_id = $2
			FOR UPDATE`,
			groupID, departingID,
		).Scan(&role)
		if err == sql.ErrNoRows || (err == nil && role != models.RoleAdmin) {
			return errs.InvalidState("departing user is not the group admin")
		}
		if err != nil {
			return fmt.Errorf("failed to check departing admin: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE group_members
			SET role = $3
			WHERE group_id = $1 AND user_id = $2
			RETURNING group_id, user_id, role, joined_at`,
			groupID, successorID, models.RoleAdmin,
		).Scan(&promoted.GroupID, &promoted.UserID, &promoted.Role, &promoted.JoinedAt)
		if err == sql.ErrNoRows {
			return errs.InvalidState("successor is not a member of the group")
		}
		if err != nil {
			return fmt.Errorf("failed to promote successor: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
			groupID, departingID,
		); err != nil {
			return fmt.Errorf("failed to remove departing admin: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}
