package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// CreateGroup inserts a group and its initial members.
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, temporary, created_at) VALUES ($1, $2, $3, $4)",
		group.ID, group.Name, group.Temporary, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	for i := range group.Members {
		if err := insertMember(ctx, tx, group.ID, &group.Members[i], group.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group with its roster.
func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, temporary, created_at FROM groups WHERE id = $1", groupID,
	).Scan(&group.ID, &group.Name, &group.Temporary, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if group.Members, err = s.ListMembers(ctx, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

// AddMember appends a member to a group's roster.
func (s *PostgresStore) AddMember(ctx context.Context, groupID string, member *models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = $1 FOR UPDATE", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}

	if err := insertMember(ctx, tx, groupID, member, time.Now().Unix()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListMembers returns a group's roster ordered by join time.
func (s *PostgresStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, email, joined_at FROM group_members
		WHERE group_id = $1 ORDER BY joined_at, seq`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Email, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, groupID string, m *models.Member, now int64) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt == 0 {
		m.JoinedAt = now
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (id, group_id, user_id, name, email, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, groupID, m.UserID, m.Name, m.Email, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}
