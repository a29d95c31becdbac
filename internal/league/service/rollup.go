package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/umalog/umalog/internal/league/scoring"
	"github.com/umalog/umalog/internal/platform/errors"
	"github.com/umalog/umalog/internal/storage"
)

// RecalculateMember rebuilds a member's cached aggregate from their raw
// scores. Session completeness is checked against all of the team's rows
// for each session, not just the member's own, so sessions still in
// progress are silently excluded. The result overwrites any previous
// aggregate, which makes the operation idempotent.
func (s *Service) RecalculateMember(ctx context.Context, memberID string) (storage.CalculatedScore, error) {
	ctx, span := s.tracer.Start(ctx, "league.RecalculateMember",
		trace.WithAttributes(attribute.String("member_id", memberID)))
	defer span.End()

	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.CalculatedScore{}, errors.New(errors.CodeMemberNotFound, "member not found")
		}
		return storage.CalculatedScore{}, fmt.Errorf("get member: %w", err)
	}
	team, err := s.store.GetTeam(ctx, member.TeamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.CalculatedScore{}, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return storage.CalculatedScore{}, fmt.Errorf("get team: %w", err)
	}
	cfg := teamConfig(team)

	memberScores, err := s.store.ListMemberScores(ctx, member.ID)
	if err != nil {
		return storage.CalculatedScore{}, fmt.Errorf("list member scores: %w", err)
	}

	sessionIDs := make([]string, 0, len(memberScores))
	seen := make(map[string]struct{}, len(memberScores))
	for _, score := range memberScores {
		if _, ok := seen[score.SessionID]; ok {
			continue
		}
		seen[score.SessionID] = struct{}{}
		sessionIDs = append(sessionIDs, score.SessionID)
	}

	var total float64
	var games int
	var placementSum float64
	var chomboTotal int
	for _, sessionID := range sessionIDs {
		rows, err := s.store.ListSessionScores(ctx, team.ID, sessionID)
		if err != nil {
			return storage.CalculatedScore{}, fmt.Errorf("list session scores: %w", err)
		}
		if len(rows) != scoring.TableSize {
			// In-progress session, not yet scoreable.
			continue
		}

		entries := make([]scoring.Entry, 0, len(rows))
		var mine storage.RawScore
		for _, row := range rows {
			entries = append(entries, scoring.Entry{Key: row.MemberID, Score: row.Score})
			if row.MemberID == member.ID {
				mine = row
			}
		}
		placements, err := scoring.ResolvePlacements(entries, cfg)
		if err != nil {
			return storage.CalculatedScore{}, fmt.Errorf("resolve placements: %w", err)
		}
		var resolved scoring.Placement
		for _, placement := range placements {
			if placement.Key == member.ID {
				resolved = placement
				break
			}
		}

		total += scoring.Calculate(mine.Score, resolved.Uma, mine.Chombo, cfg)
		games++
		placementSum += resolved.Placement
		if mine.Chombo > 0 && cfg.ChomboEnabled {
			chomboTotal += mine.Chombo
		}
	}

	aggregate := storage.CalculatedScore{
		MemberID:    member.ID,
		Total:       total,
		GamesPlayed: games,
		ChomboCount: chomboTotal,
		UpdatedAt:   s.now(),
	}
	if games > 0 {
		aggregate.AveragePerGame = total / float64(games)
		aggregate.AveragePlacement = placementSum / float64(games)
	}

	if err := s.store.UpsertCalculatedScore(ctx, aggregate); err != nil {
		return storage.CalculatedScore{}, fmt.Errorf("upsert calculated score: %w", err)
	}
	return aggregate, nil
}
