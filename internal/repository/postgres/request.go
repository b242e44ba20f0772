package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/peergrove/groupd/internal/models"
	"github.com/peergrove/groupd/internal/repository"
	"github.com/peergrove/groupd/pkg/errs"
)

type requestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new join-request and invitation repository
func NewRequestRepository(db *sql.DB) repository.RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) CreateJoinRequest(ctx context.Context, req *models.JoinRequest) (*models.JoinRequest, error) {
	query := `
		INSERT INTO join_requests (id, group_id, user_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.GroupID, req.UserID, req.Message, req.Status, req.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Conflict("a pending join request already exists")
		}
		return nil, fmt.Errorf("failed to create join request: %w", err)
	}

	return req, nil
}

func (r *requestRepository) GetJoinRequest(ctx context.Context, groupID, requestID string) (*models.JoinRequest, error) {
	query := `
		SELECT id, group_id, user_id, message, status, created_at, resolved_by, resolved_at
		FROM join_requests
		WHERE group_id = $1 AND id = $2`

	return scanJoinRequest(r.db.QueryRowContext(ctx, query, groupID, requestID))
}

func (r *requestRepository) PendingJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error) {
	query := `
		SELECT id, group_id, user_id, message, status, created_at, resolved_by, resolved_at
		FROM join_requests
		WHERE group_id = $1 AND user_id = $2 AND status = 'pending'`

	return scanJoinRequest(r.db.QueryRowContext(ctx, query, groupID, userID))
}

func (r *requestRepository) ListJoinRequests(ctx context.Context, groupID string) ([]*models.JoinRequest, error) {
	query := `
		SELECT id, group_id, user_id, message, status, created_at, resolved_by, resolved_at
		FROM join_requests
		WHERE group_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.JoinRequest
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *requestRepository) ResolveJoinRequest(ctx context.Context, groupID, requestID string, status models.RequestStatus, resolvedBy string, newMember *models.Member) (*models.JoinRequest, error) {
	var resolved *models.JoinRequest
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, `
			UPDATE join_requests
			SET status = $3, resolved_by = $4, resolved_at = $5
			WHERE group_id = $1 AND id = $2 AND status = 'pending'
			RETURNING id, group_id, user_id, message, status, created_at, resolved_by, resolved_at`,
			groupID, requestID, status, resolvedBy, time.Now(),
		)
		resolved, err = scanJoinRequest(row)
		if err != nil {
			return err
		}
		if resolved == nil {
			return errs.NotFound("pending join request not found")
		}

		if newMember != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO group_members (group_id, user_id, role, joined_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (group_id, user_id) DO NOTHING`,
				newMember.GroupID, newMember.UserID, newMember.Role, newMember.JoinedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert member for approved request: %w", err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *requestRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	query := `
		INSERT INTO invitations (id, group_id, user_id, inviter_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.GroupID, inv.UserID, inv.InviterID, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Conflict("a pending invitation already exists")
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return inv, nil
}

func (r *requestRepository) GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error) {
	query := `
		SELECT id, group_id, user_id, inviter_id, status, created_at, resolved_at
		FROM invitations
		WHERE id = $1`

	return scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
}

func (r *requestRepository) PendingInvitation(ctx context.Context, groupID, userID string) (*models.Invitation, error) {
	query := `
		SELECT id, group_id, user_id, inviter_id, status, created_at, resolved_at
		FROM invitations
		WHERE group_id = $1 AND user_id = $2 AND status = 'pending'`

	return scanInvitation(r.db.QueryRowContext(ctx, query, groupID, userID))
}

func (r *requestRepository) ListInvitations(ctx context.Context, groupID string) ([]*models.Invitation, error) {
	query := `
		SELECT id, group_id, user_id, inviter_id, status, created_at, resolved_at
		FROM invitations
		WHERE group_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

func (r *requestRepository) ResolveInvitation(ctx context.Context, invitationID string, status models.InvitationStatus, newMember *models.Member) (*models.Invitation, error) {
	var resolved *models.Invitation
	err := withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, `
			UPDATE invitations
			SET status = $2, resolved_at = $3
			WHERE id = $1 AND status = 'pending'
			RETURNING id, group_id, user_id, inviter_id, status, created_at, resolved_at`,
			invitationID, status, time.Now(),
		)
		resolved, err = scanInvitation(row)
		if err != nil {
			return err
		}
		if resolved == nil {
			return errs.NotFound("pending invitation not found")
		}

		if newMember != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO group_members (group_id, user_id, role, joined_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (group_id, user_id) DO NOTHING`,
				newMember.GroupID, newMember.UserID, newMember.Role, newMember.JoinedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert member for accepted invitation: %w", err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJoinRequest(s scanner) (*models.JoinRequest, error) {
	req := &models.JoinRequest{}
	var resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	err := s.Scan(
		&req.ID,
		&req.GroupID,
		&req.UserID,
		&req.Message,
		&req.Status,
		&req.CreatedAt,
		&resolvedBy,
		&resolvedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan join request: %w", err)
	}
	req.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return req, nil
}

func scanInvitation(s scanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var resolvedAt sql.NullTime
	err := s.Scan(
		&inv.ID,
		&inv.GroupID,
		&inv.UserID,
		&inv.InviterID,
		&inv.Status,
		&inv.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		inv.ResolvedAt = &t
	}
	return inv, nil
}
