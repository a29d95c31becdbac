package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/umalog/umalog/internal/league/scoring"
	"github.com/umalog/umalog/internal/platform/errors"
	"github.com/umalog/umalog/internal/platform/id"
	"github.com/umalog/umalog/internal/storage"
)

// validatedEntries holds submit input after membership and shape checks.
type validatedEntries struct {
	team    storage.Team
	members map[string]storage.Member
	entries []ScoreEntry
}

// validateSubmission checks entry shape and team membership for a session
// batch. It does not touch session state; existence checks belong to the
// storage transaction.
func (s *Service) validateSubmission(ctx context.Context, teamID, sessionID string, entries []ScoreEntry) (validatedEntries, error) {
	if sessionID == "" {
		return validatedEntries{}, errors.New(errors.CodeSessionIDEmpty, "session id is required")
	}
	if len(entries) != scoring.TableSize {
		return validatedEntries{}, errors.WithMetadata(
			errors.CodeSessionEntryCount,
			fmt.Sprintf("expected %d score entries, got %d", scoring.TableSize, len(entries)),
			map[string]string{"count": fmt.Sprintf("%d", len(entries))},
		)
	}

	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return validatedEntries{}, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return validatedEntries{}, fmt.Errorf("get team: %w", err)
	}

	teamMembers, err := s.store.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return validatedEntries{}, fmt.Errorf("list team members: %w", err)
	}
	byID := make(map[string]storage.Member, len(teamMembers))
	for _, member := range teamMembers {
		byID[member.ID] = member
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		member, ok := byID[entry.MemberID]
		if !ok {
			return validatedEntries{}, errors.WithMetadata(
				errors.CodeMemberNotInTeam,
				"member does not belong to team",
				map[string]string{"member_id": entry.MemberID, "team_id": team.ID},
			)
		}
		if _, dup := seen[entry.MemberID]; dup {
			return validatedEntries{}, errors.WithMetadata(
				errors.CodeSessionDuplicateMember,
				"member listed more than once in session",
				map[string]string{"member_id": member.ID},
			)
		}
		seen[entry.MemberID] = struct{}{}
		if entry.Chombo < 0 {
			return validatedEntries{}, errors.WithMetadata(
				errors.CodeSessionInvalidChombo,
				"chombo count must not be negative",
				map[string]string{"member_id": member.ID},
			)
		}
	}

	return validatedEntries{team: team, members: byID, entries: entries}, nil
}

// buildSessionRows resolves placements and materializes storable rows,
// ordered best placement first.
func (s *Service) buildSessionRows(teamID, sessionID string, validated validatedEntries, sessionDate time.Time) ([]storage.RawScore, error) {
	resolverEntries := make([]scoring.Entry, 0, len(validated.entries))
	byMember := make(map[string]ScoreEntry, len(validated.entries))
	for _, entry := range validated.entries {
		resolverEntries = append(resolverEntries, scoring.Entry{Key: entry.MemberID, Score: entry.Score})
		byMember[entry.MemberID] = entry
	}

	placements, err := scoring.ResolvePlacements(resolverEntries, teamConfig(validated.team))
	if err != nil {
		return nil, fmt.Errorf("resolve placements: %w", err)
	}

	now := s.now()
	rows := make([]storage.RawScore, 0, len(placements))
	for _, placement := range placements {
		rowID, err := id.NewID()
		if err != nil {
			return nil, fmt.Errorf("new raw score id: %w", err)
		}
		entry := byMember[placement.Key]
		rows = append(rows, storage.RawScore{
			ID:          rowID,
			TeamID:      teamID,
			MemberID:    entry.MemberID,
			SessionID:   sessionID,
			Score:       entry.Score,
			Chombo:      entry.Chombo,
			Placement:   placement.Placement,
			SessionDate: sessionDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return rows, nil
}

// SubmitSessionScores records a new complete session: exactly four entries,
// one per team member, written atomically and followed by rollups for every
// participant. Submitting over an existing session is a conflict; callers
// update instead.
func (s *Service) SubmitSessionScores(ctx context.Context, teamID, sessionID string, entries []ScoreEntry, sessionDate time.Time) ([]storage.RawScore, error) {
	ctx, span := s.tracer.Start(ctx, "league.SubmitSessionScores",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	validated, err := s.validateSubmission(ctx, teamID, sessionID, entries)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(validated.team.ID, sessionID)
	defer unlock()

	rows, err := s.buildSessionRows(validated.team.ID, sessionID, validated, sessionDate)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertSessionScores(ctx, validated.team.ID, sessionID, rows); err != nil {
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			return nil, errors.WithMetadata(
				errors.CodeSessionAlreadyExists,
				"session already has scores",
				map[string]string{"session_id": sessionID},
			)
		}
		return nil, fmt.Errorf("insert session scores: %w", err)
	}

	for _, row := range rows {
		if _, err := s.RecalculateMember(ctx, row.MemberID); err != nil {
			return nil, fmt.Errorf("rollup member %s: %w", row.MemberID, err)
		}
	}

	log.Printf("session scores submitted team_id=%s session_id=%s rows=%d", validated.team.ID, sessionID, len(rows))
	return rows, nil
}

// UpdateSessionScores replaces an existing complete session with a new
// batch. The participant set may change; rollups run for the union of old
// and new members so a dropped member's aggregate sheds the session.
func (s *Service) UpdateSessionScores(ctx context.Context, teamID, sessionID string, entries []ScoreEntry, sessionDate time.Time) ([]storage.RawScore, error) {
	ctx, span := s.tracer.Start(ctx, "league.UpdateSessionScores",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	validated, err := s.validateSubmission(ctx, teamID, sessionID, entries)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(validated.team.ID, sessionID)
	defer unlock()

	existing, err := s.store.ListSessionScores(ctx, validated.team.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session scores: %w", err)
	}
	if len(existing) == 0 {
		return nil, errors.WithMetadata(
			errors.CodeSessionNotFound,
			"session has no scores to update",
			map[string]string{"session_id": sessionID},
		)
	}
	if len(existing) != scoring.TableSize {
		return nil, errors.WithMetadata(
			errors.CodeSessionIncomplete,
			fmt.Sprintf("session has %d scores, expected %d", len(existing), scoring.TableSize),
			map[string]string{"session_id": sessionID},
		)
	}

	rows, err := s.buildSessionRows(validated.team.ID, sessionID, validated, sessionDate)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceSessionScores(ctx, validated.team.ID, sessionID, rows); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.WithMetadata(
				errors.CodeSessionNotFound,
				"session has no scores to update",
				map[string]string{"session_id": sessionID},
			)
		}
		return nil, fmt.Errorf("replace session scores: %w", err)
	}

	affected := make(map[string]struct{}, scoring.TableSize*2)
	for _, row := range existing {
		affected[row.MemberID] = struct{}{}
	}
	for _, row := range rows {
		affected[row.MemberID] = struct{}{}
	}
	for memberID := range affected {
		if _, err := s.RecalculateMember(ctx, memberID); err != nil {
			return nil, fmt.Errorf("rollup member %s: %w", memberID, err)
		}
	}

	log.Printf("session scores updated team_id=%s session_id=%s rows=%d affected=%d", validated.team.ID, sessionID, len(rows), len(affected))
	return rows, nil
}

// DeleteSession removes every score row for a session and reruns rollups
// for the former participants. It returns the number of rows deleted.
func (s *Service) DeleteSession(ctx context.Context, teamID, sessionID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "league.DeleteSession",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	if sessionID == "" {
		return 0, errors.New(errors.CodeSessionIDEmpty, "session id is required")
	}
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return 0, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return 0, fmt.Errorf("get team: %w", err)
	}

	unlock := s.locks.lock(team.ID, sessionID)
	defer unlock()

	existing, err := s.store.ListSessionScores(ctx, team.ID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("list session scores: %w", err)
	}
	if len(existing) == 0 {
		return 0, errors.WithMetadata(
			errors.CodeSessionNotFound,
			"session has no scores to delete",
			map[string]string{"session_id": sessionID},
		)
	}

	deleted, err := s.store.DeleteSessionScores(ctx, team.ID, sessionID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return 0, errors.WithMetadata(
				errors.CodeSessionNotFound,
				"session has no scores to delete",
				map[string]string{"session_id": sessionID},
			)
		}
		return 0, fmt.Errorf("delete session scores: %w", err)
	}

	for _, row := range existing {
		if _, err := s.RecalculateMember(ctx, row.MemberID); err != nil {
			return deleted, fmt.Errorf("rollup member %s: %w", row.MemberID, err)
		}
	}

	log.Printf("session deleted team_id=%s session_id=%s rows=%d", team.ID, sessionID, deleted)
	return deleted, nil
}

// ValidateSessionComplete fails unless the session has exactly four rows.
// Mutation paths raise on incompleteness; read paths filter instead.
func (s *Service) ValidateSessionComplete(ctx context.Context, teamID, sessionID string) error {
	if sessionID == "" {
		return errors.New(errors.CodeSessionIDEmpty, "session id is required")
	}
	rows, err := s.store.ListSessionScores(ctx, teamID, sessionID)
	if err != nil {
		return fmt.Errorf("list session scores: %w", err)
	}
	switch {
	case len(rows) == 0:
		return errors.WithMetadata(
			errors.CodeSessionNotFound,
			"session has no scores",
			map[string]string{"session_id": sessionID},
		)
	case len(rows) != scoring.TableSize:
		return errors.WithMetadata(
			errors.CodeSessionIncomplete,
			fmt.Sprintf("session has %d scores, expected %d", len(rows), scoring.TableSize),
			map[string]string{"session_id": sessionID},
		)
	}
	return nil
}

// SessionDetails returns the derived breakdown for a complete session, or
// nil when the session is absent or incomplete. Placements and uma are
// re-resolved from the raw rows so every read path shares one computation.
func (s *Service) SessionDetails(ctx context.Context, teamID, sessionID string) (*SessionDetails, error) {
	ctx, span := s.tracer.Start(ctx, "league.SessionDetails",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	rows, err := s.store.ListSessionScores(ctx, team.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session scores: %w", err)
	}
	if len(rows) != scoring.TableSize {
		return nil, nil
	}

	teamMembers, err := s.store.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	names := make(map[string]string, len(teamMembers))
	for _, member := range teamMembers {
		names[member.ID] = member.Name
	}

	return buildSessionDetails(sessionID, rows, teamConfig(team), names)
}

// buildSessionDetails derives a session breakdown from a complete row set.
func buildSessionDetails(sessionID string, rows []storage.RawScore, cfg scoring.Config, names map[string]string) (*SessionDetails, error) {
	entries := make([]scoring.Entry, 0, len(rows))
	byMember := make(map[string]storage.RawScore, len(rows))
	for _, row := range rows {
		entries = append(entries, scoring.Entry{Key: row.MemberID, Score: row.Score})
		byMember[row.MemberID] = row
	}

	placements, err := scoring.ResolvePlacements(entries, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve placements: %w", err)
	}

	// Undated sessions report their creation time as the session date.
	sessionDate := rows[0].SessionDate
	if sessionDate.IsZero() {
		sessionDate = rows[0].CreatedAt
	}

	details := &SessionDetails{
		SessionID:   sessionID,
		SessionDate: sessionDate,
		Players:     make([]PlayerResult, 0, len(placements)),
	}
	for _, placement := range placements {
		row := byMember[placement.Key]
		details.Players = append(details.Players, PlayerResult{
			MemberID:        row.MemberID,
			MemberName:      names[row.MemberID],
			Placement:       placement.Placement,
			RawScore:        row.Score,
			BaseScore:       scoring.Base(row.Score, cfg.TargetPoint),
			Uma:             placement.Uma,
			Chombo:          row.Chombo,
			CalculatedScore: scoring.Calculate(row.Score, placement.Uma, row.Chombo, cfg),
		})
	}
	return details, nil
}
