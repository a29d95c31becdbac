package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/umalog/umalog/internal/storage"
)

const memberColumns = `id, team_id, name, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (storage.Member, error) {
	var member storage.Member
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&member.ID,
		&member.TeamID,
		&member.Name,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.Member{}, err
	}
	member.CreatedAt = fromMillis(createdAt)
	member.UpdatedAt = fromMillis(updatedAt)
	return member, nil
}

// CreateMember inserts one member record.
func (s *Store) CreateMember(ctx context.Context, member storage.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	memberID := strings.TrimSpace(member.ID)
	teamID := strings.TrimSpace(member.TeamID)
	name := strings.TrimSpace(member.Name)
	if memberID == "" {
		return fmt.Errorf("member id is required")
	}
	if teamID == "" {
		return fmt.Errorf("team id is required")
	}
	if name == "" {
		return fmt.Errorf("member name is required")
	}
	createdAt := member.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := member.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO members (id, team_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		memberID,
		teamID,
		name,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "members.") {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// GetMember returns one member by ID.
func (s *Store) GetMember(ctx context.Context, memberID string) (storage.Member, error) {
	if err := ctx.Err(); err != nil {
		return storage.Member{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Member{}, fmt.Errorf("storage is not configured")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return storage.Member{}, fmt.Errorf("member id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`,
		memberID,
	)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Member{}, storage.ErrNotFound
		}
		return storage.Member{}, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// ListTeamMembers returns all members of a team ordered by name.
func (s *Store) ListTeamMembers(ctx context.Context, teamID string) ([]storage.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("team id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+memberColumns+` FROM members WHERE team_id = ? ORDER BY name ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []storage.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("list team members: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// DeleteMember removes a member and cascades scores and rollups.
func (s *Store) DeleteMember(ctx context.Context, memberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return fmt.Errorf("member id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, memberID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
