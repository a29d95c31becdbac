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

// UpsertCalculatedScore overwrites a member's rollup aggregate.
func (s *Store) UpsertCalculatedScore(ctx context.Context, score storage.CalculatedScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	memberID := strings.TrimSpace(score.MemberID)
	if memberID == "" {
		return fmt.Errorf("member id is required")
	}
	updatedAt := score.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO calculated_scores (
		   member_id, total, games_played, average_per_game,
		   average_placement, chombo_count, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (member_id) DO UPDATE SET
		   total = excluded.total,
		   games_played = excluded.games_played,
		   average_per_game = excluded.average_per_game,
		   average_placement = excluded.average_placement,
		   chombo_count = excluded.chombo_count,
		   updated_at = excluded.updated_at`,
		memberID,
		score.Total,
		score.GamesPlayed,
		score.AveragePerGame,
		score.AveragePlacement,
		score.ChomboCount,
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert calculated score: %w", err)
	}
	return nil
}

// GetCalculatedScore returns a member's rollup aggregate.
func (s *Store) GetCalculatedScore(ctx context.Context, memberID string) (storage.CalculatedScore, error) {
	if err := ctx.Err(); err != nil {
		return storage.CalculatedScore{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CalculatedScore{}, fmt.Errorf("storage is not configured")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return storage.CalculatedScore{}, fmt.Errorf("member id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT member_id, total, games_played, average_per_game,
		        average_placement, chombo_count, updated_at
		   FROM calculated_scores
		  WHERE member_id = ?`,
		memberID,
	)

	var score storage.CalculatedScore
	var updatedAt int64
	err := row.Scan(
		&score.MemberID,
		&score.Total,
		&score.GamesPlayed,
		&score.AveragePerGame,
		&score.AveragePlacement,
		&score.ChomboCount,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CalculatedScore{}, storage.ErrNotFound
		}
		return storage.CalculatedScore{}, fmt.Errorf("get calculated score: %w", err)
	}
	score.UpdatedAt = fromMillis(updatedAt)
	return score, nil
}
