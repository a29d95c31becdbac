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

const teamColumns = `id, name, slug, start_point, target_point,
       uma_first, uma_second, uma_third, uma_fourth, chombo_enabled,
       created_at, updated_at`

func scanTeam(row interface{ Scan(...any) error }) (storage.Team, error) {
	var team storage.Team
	var chomboEnabled int
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Slug,
		&team.StartPoint,
		&team.TargetPoint,
		&team.UmaFirst,
		&team.UmaSecond,
		&team.UmaThird,
		&team.UmaFourth,
		&chomboEnabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.Team{}, err
	}
	team.ChomboEnabled = chomboEnabled != 0
	team.CreatedAt = fromMillis(createdAt)
	team.UpdatedAt = fromMillis(updatedAt)
	return team, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// CreateTeam inserts one team record.
func (s *Store) CreateTeam(ctx context.Context, team storage.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID := strings.TrimSpace(team.ID)
	name := strings.TrimSpace(team.Name)
	teamSlug := strings.TrimSpace(team.Slug)
	if teamID == "" {
		return fmt.Errorf("team id is required")
	}
	if name == "" {
		return fmt.Errorf("team name is required")
	}
	if teamSlug == "" {
		return fmt.Errorf("team slug is required")
	}
	createdAt := team.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := team.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO teams (
		   id, name, slug, start_point, target_point,
		   uma_first, uma_second, uma_third, uma_fourth, chombo_enabled,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		teamID,
		name,
		teamSlug,
		team.StartPoint,
		team.TargetPoint,
		team.UmaFirst,
		team.UmaSecond,
		team.UmaThird,
		team.UmaFourth,
		boolToInt(team.ChomboEnabled),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "teams.slug") || isUniqueViolation(err, "teams.id") {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// GetTeam returns one team by ID.
func (s *Store) GetTeam(ctx context.Context, teamID string) (storage.Team, error) {
	if err := ctx.Err(); err != nil {
		return storage.Team{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Team{}, fmt.Errorf("storage is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return storage.Team{}, fmt.Errorf("team id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = ?`,
		teamID,
	)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Team{}, storage.ErrNotFound
		}
		return storage.Team{}, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

// GetTeamBySlug returns one team by slug.
func (s *Store) GetTeamBySlug(ctx context.Context, teamSlug string) (storage.Team, error) {
	if err := ctx.Err(); err != nil {
		return storage.Team{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Team{}, fmt.Errorf("storage is not configured")
	}
	teamSlug = strings.TrimSpace(teamSlug)
	if teamSlug == "" {
		return storage.Team{}, fmt.Errorf("team slug is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+teamColumns+` FROM teams WHERE slug = ?`,
		teamSlug,
	)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Team{}, storage.ErrNotFound
		}
		return storage.Team{}, fmt.Errorf("get team by slug: %w", err)
	}
	return team, nil
}

// UpdateTeamConfig updates a team's name and scoring configuration. The
// slug is immutable and ignored here.
func (s *Store) UpdateTeamConfig(ctx context.Context, team storage.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID := strings.TrimSpace(team.ID)
	name := strings.TrimSpace(team.Name)
	if teamID == "" {
		return fmt.Errorf("team id is required")
	}
	if name == "" {
		return fmt.Errorf("team name is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE teams
		    SET name = ?, start_point = ?, target_point = ?,
		        uma_first = ?, uma_second = ?, uma_third = ?, uma_fourth = ?,
		        chombo_enabled = ?, updated_at = ?
		  WHERE id = ?`,
		name,
		team.StartPoint,
		team.TargetPoint,
		team.UmaFirst,
		team.UmaSecond,
		team.UmaThird,
		team.UmaFourth,
		boolToInt(team.ChomboEnabled),
		toMillis(time.Now().UTC()),
		teamID,
	)
	if err != nil {
		return fmt.Errorf("update team config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update team config: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTeams returns one page of teams ordered by ID.
func (s *Store) ListTeams(ctx context.Context, pageSize int, pageToken string) (storage.TeamPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.TeamPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TeamPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.TeamPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	page := storage.TeamPage{
		Teams: make([]storage.Team, 0, pageSize),
	}

	var (
		rows *sql.Rows
		err  error
	)
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT `+teamColumns+` FROM teams ORDER BY id ASC LIMIT ?`,
			pageSize+1,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT `+teamColumns+` FROM teams WHERE id > ? ORDER BY id ASC LIMIT ?`,
			pageToken,
			pageSize+1,
		)
	}
	if err != nil {
		return storage.TeamPage{}, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return storage.TeamPage{}, fmt.Errorf("list teams: %w", err)
		}
		page.Teams = append(page.Teams, team)
	}
	if err := rows.Err(); err != nil {
		return storage.TeamPage{}, fmt.Errorf("list teams: %w", err)
	}
	if len(page.Teams) > pageSize {
		page.NextPageToken = page.Teams[pageSize-1].ID
		page.Teams = page.Teams[:pageSize]
	}

	return page, nil
}

// DeleteTeam removes a team and cascades members, scores, and rollups.
func (s *Store) DeleteTeam(ctx context.Context, teamID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return fmt.Errorf("team id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, teamID)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
