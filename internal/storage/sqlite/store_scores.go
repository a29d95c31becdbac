package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/umalog/umalog/internal/storage"
)

const rawScoreColumns = `id, team_id, member_id, session_id, score, chombo,
       placement, session_date, created_at, updated_at`

func scanRawScore(row interface{ Scan(...any) error }) (storage.RawScore, error) {
	var score storage.RawScore
	var sessionDate sql.NullInt64
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&score.ID,
		&score.TeamID,
		&score.MemberID,
		&score.SessionID,
		&score.Score,
		&score.Chombo,
		&score.Placement,
		&sessionDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.RawScore{}, err
	}
	score.SessionDate = fromNullableMillis(sessionDate)
	score.CreatedAt = fromMillis(createdAt)
	score.UpdatedAt = fromMillis(updatedAt)
	return score, nil
}

func validateSessionKey(teamID, sessionID string) (string, string, error) {
	teamID = strings.TrimSpace(teamID)
	sessionID = strings.TrimSpace(sessionID)
	if teamID == "" {
		return "", "", fmt.Errorf("team id is required")
	}
	if sessionID == "" {
		return "", "", fmt.Errorf("session id is required")
	}
	return teamID, sessionID, nil
}

func insertRawScoreTx(ctx context.Context, tx *sql.Tx, row storage.RawScore) error {
	createdAt := row.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := row.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO raw_scores (
		   id, team_id, member_id, session_id, score, chombo,
		   placement, session_date, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.TeamID,
		row.MemberID,
		row.SessionID,
		row.Score,
		row.Chombo,
		row.Placement,
		nullableMillis(row.SessionDate),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	return err
}

func countSessionRowsTx(ctx context.Context, tx *sql.Tx, teamID, sessionID string) (int, error) {
	var count int
	row := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM raw_scores WHERE team_id = ? AND session_id = ?`,
		teamID,
		sessionID,
	)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// InsertSessionScores writes a full session batch in one transaction. The
// batch is rejected with ErrAlreadyExists when the session already has rows,
// so a mid-batch failure can never leave a partial session behind.
func (s *Store) InsertSessionScores(ctx context.Context, teamID, sessionID string, rows []storage.RawScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID, sessionID, err := validateSessionKey(teamID, sessionID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("session rows are required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert session scores: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := countSessionRowsTx(ctx, tx, teamID, sessionID)
	if err != nil {
		return fmt.Errorf("count session scores: %w", err)
	}
	if existing > 0 {
		return storage.ErrAlreadyExists
	}

	for _, row := range rows {
		if err := insertRawScoreTx(ctx, tx, row); err != nil {
			if isUniqueViolation(err, "raw_scores.") {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert session score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert session scores: %w", err)
	}
	return nil
}

// ReplaceSessionScores atomically swaps an existing session batch for a new
// one. Either the old complete batch or the new complete batch survives.
func (s *Store) ReplaceSessionScores(ctx context.Context, teamID, sessionID string, rows []storage.RawScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID, sessionID, err := validateSessionKey(teamID, sessionID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("session rows are required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace session scores: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := countSessionRowsTx(ctx, tx, teamID, sessionID)
	if err != nil {
		return fmt.Errorf("count session scores: %w", err)
	}
	if existing == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM raw_scores WHERE team_id = ? AND session_id = ?`,
		teamID,
		sessionID,
	); err != nil {
		return fmt.Errorf("delete session scores: %w", err)
	}

	for _, row := range rows {
		if err := insertRawScoreTx(ctx, tx, row); err != nil {
			if isUniqueViolation(err, "raw_scores.") {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert session score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace session scores: %w", err)
	}
	return nil
}

// DeleteSessionScores removes all rows for a session and returns the count.
func (s *Store) DeleteSessionScores(ctx context.Context, teamID, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	teamID, sessionID, err := validateSessionKey(teamID, sessionID)
	if err != nil {
		return 0, err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM raw_scores WHERE team_id = ? AND session_id = ?`,
		teamID,
		sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete session scores: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete session scores: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrNotFound
	}
	return int(affected), nil
}

// ListSessionScores returns all rows for a session ordered by placement.
func (s *Store) ListSessionScores(ctx context.Context, teamID, sessionID string) ([]storage.RawScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	teamID, sessionID, err := validateSessionKey(teamID, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+rawScoreColumns+`
		   FROM raw_scores
		  WHERE team_id = ? AND session_id = ?
		  ORDER BY placement ASC, member_id ASC`,
		teamID,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list session scores: %w", err)
	}
	defer rows.Close()

	return collectRawScores(rows, "list session scores")
}

// ListMemberScores returns all of a member's rows ordered by creation time.
func (s *Store) ListMemberScores(ctx context.Context, memberID string) ([]storage.RawScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("member id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+rawScoreColumns+`
		   FROM raw_scores
		  WHERE member_id = ?
		  ORDER BY created_at ASC, session_id ASC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list member scores: %w", err)
	}
	defer rows.Close()

	return collectRawScores(rows, "list member scores")
}

// ListTeamScoresInRange returns team rows created in [from, to).
func (s *Store) ListTeamScoresInRange(ctx context.Context, teamID string, from, to time.Time) ([]storage.RawScore, error) {
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
	if !to.After(from) {
		return nil, fmt.Errorf("range end must be after range start")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+rawScoreColumns+`
		   FROM raw_scores
		  WHERE team_id = ? AND created_at >= ? AND created_at < ?
		  ORDER BY created_at ASC, session_id ASC`,
		teamID,
		toMillis(from),
		toMillis(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list team scores in range: %w", err)
	}
	defer rows.Close()

	return collectRawScores(rows, "list team scores in range")
}

func collectRawScores(rows *sql.Rows, op string) ([]storage.RawScore, error) {
	var scores []storage.RawScore
	for rows.Next() {
		score, err := scanRawScore(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return scores, nil
}
