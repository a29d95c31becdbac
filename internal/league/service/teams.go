package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/umalog/umalog/internal/league/scoring"
	"github.com/umalog/umalog/internal/league/slug"
	"github.com/umalog/umalog/internal/platform/errors"
	"github.com/umalog/umalog/internal/platform/id"
	"github.com/umalog/umalog/internal/storage"
)

// ScoringUpdate carries an edit to a team's name and scoring knobs. The
// slug never changes after creation.
type ScoringUpdate struct {
	Name          string
	StartPoint    int
	TargetPoint   int
	UmaFirst      int
	UmaSecond     int
	UmaThird      int
	UmaFourth     int
	ChomboEnabled bool
}

// CreateTeam registers a team under a slug derived from its name, with the
// default scoring configuration.
func (s *Service) CreateTeam(ctx context.Context, name string) (storage.Team, error) {
	ctx, span := s.tracer.Start(ctx, "league.CreateTeam")
	defer span.End()

	teamSlug, err := slug.Make(name)
	if err != nil {
		return storage.Team{}, errors.Wrap(errors.CodeTeamNameEmpty, "team name must produce a slug", err)
	}
	teamID, err := id.NewID()
	if err != nil {
		return storage.Team{}, fmt.Errorf("new team id: %w", err)
	}

	now := s.now()
	team := storage.Team{
		ID:            teamID,
		Name:          name,
		Slug:          teamSlug,
		StartPoint:    scoring.DefaultStartPoint,
		TargetPoint:   scoring.DefaultTargetPoint,
		UmaFirst:      scoring.DefaultUmaFirst,
		UmaSecond:     scoring.DefaultUmaSecond,
		UmaThird:      scoring.DefaultUmaThird,
		UmaFourth:     scoring.DefaultUmaFourth,
		ChomboEnabled: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			return storage.Team{}, errors.WithMetadata(
				errors.CodeTeamSlugTaken,
				"team slug is already in use",
				map[string]string{"slug": teamSlug},
			)
		}
		return storage.Team{}, fmt.Errorf("create team: %w", err)
	}

	log.Printf("team created team_id=%s slug=%s", team.ID, team.Slug)
	return team, nil
}

// GetTeam returns one team by ID.
func (s *Service) GetTeam(ctx context.Context, teamID string) (storage.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.Team{}, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return storage.Team{}, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

// GetTeamBySlug returns one team by its URL slug.
func (s *Service) GetTeamBySlug(ctx context.Context, teamSlug string) (storage.Team, error) {
	team, err := s.store.GetTeamBySlug(ctx, teamSlug)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.Team{}, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return storage.Team{}, fmt.Errorf("get team by slug: %w", err)
	}
	return team, nil
}

// ListTeams returns one page of teams.
func (s *Service) ListTeams(ctx context.Context, pageSize int, pageToken string) (storage.TeamPage, error) {
	page, err := s.store.ListTeams(ctx, pageSize, pageToken)
	if err != nil {
		return storage.TeamPage{}, fmt.Errorf("list teams: %w", err)
	}
	return page, nil
}

// UpdateTeamScoring applies a configuration edit to a team. Changing the
// configuration does not rewrite stored rollups; callers that need the new
// knobs reflected should recalculate members afterwards.
func (s *Service) UpdateTeamScoring(ctx context.Context, teamID string, update ScoringUpdate) (storage.Team, error) {
	ctx, span := s.tracer.Start(ctx, "league.UpdateTeamScoring",
		trace.WithAttributes(attribute.String("team_id", teamID)))
	defer span.End()

	if update.Name == "" {
		return storage.Team{}, errors.New(errors.CodeTeamNameEmpty, "team name is required")
	}

	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return storage.Team{}, err
	}

	team.Name = update.Name
	team.StartPoint = update.StartPoint
	team.TargetPoint = update.TargetPoint
	team.UmaFirst = update.UmaFirst
	team.UmaSecond = update.UmaSecond
	team.UmaThird = update.UmaThird
	team.UmaFourth = update.UmaFourth
	team.ChomboEnabled = update.ChomboEnabled

	if err := s.store.UpdateTeamConfig(ctx, team); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.Team{}, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return storage.Team{}, fmt.Errorf("update team config: %w", err)
	}
	return s.GetTeam(ctx, teamID)
}

// DeleteTeam removes a team and everything it owns.
func (s *Service) DeleteTeam(ctx context.Context, teamID string) error {
	ctx, span := s.tracer.Start(ctx, "league.DeleteTeam",
		trace.WithAttributes(attribute.String("team_id", teamID)))
	defer span.End()

	if err := s.store.DeleteTeam(ctx, teamID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return fmt.Errorf("delete team: %w", err)
	}
	log.Printf("team deleted team_id=%s", teamID)
	return nil
}

// AddMember registers a player on a team. Names are unique per team.
func (s *Service) AddMember(ctx context.Context, teamID, name string) (storage.Member, error) {
	ctx, span := s.tracer.Start(ctx, "league.AddMember",
		trace.WithAttributes(attribute.String("team_id", teamID)))
	defer span.End()

	if name == "" {
		return storage.Member{}, errors.New(errors.CodeMemberNameEmpty, "member name is required")
	}
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return storage.Member{}, err
	}

	memberID, err := id.NewID()
	if err != nil {
		return storage.Member{}, fmt.Errorf("new member id: %w", err)
	}
	now := s.now()
	member := storage.Member{
		ID:        memberID,
		TeamID:    team.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			return storage.Member{}, errors.WithMetadata(
				errors.CodeMemberNameTaken,
				"member name is already in use on this team",
				map[string]string{"team_id": team.ID, "name": name},
			)
		}
		return storage.Member{}, fmt.Errorf("create member: %w", err)
	}

	log.Printf("member added team_id=%s member_id=%s", team.ID, member.ID)
	return member, nil
}

// GetMember returns one member by ID.
func (s *Service) GetMember(ctx context.Context, memberID string) (storage.Member, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.Member{}, errors.New(errors.CodeMemberNotFound, "member not found")
		}
		return storage.Member{}, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// ListTeamMembers returns a team's members ordered by name.
func (s *Service) ListTeamMembers(ctx context.Context, teamID string) ([]storage.Member, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	teamMembers, err := s.store.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return teamMembers, nil
}

// RemoveMember deletes a player. Their raw scores cascade away, which
// leaves any session they played incomplete, so every teammate who shared
// a session with them is recalculated afterwards.
func (s *Service) RemoveMember(ctx context.Context, memberID string) error {
	ctx, span := s.tracer.Start(ctx, "league.RemoveMember",
		trace.WithAttributes(attribute.String("member_id", memberID)))
	defer span.End()

	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return err
	}

	memberScores, err := s.store.ListMemberScores(ctx, member.ID)
	if err != nil {
		return fmt.Errorf("list member scores: %w", err)
	}
	teammates := make(map[string]struct{})
	for _, score := range memberScores {
		rows, err := s.store.ListSessionScores(ctx, member.TeamID, score.SessionID)
		if err != nil {
			return fmt.Errorf("list session scores: %w", err)
		}
		for _, row := range rows {
			if row.MemberID != member.ID {
				teammates[row.MemberID] = struct{}{}
			}
		}
	}

	if err := s.store.DeleteMember(ctx, member.ID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.New(errors.CodeMemberNotFound, "member not found")
		}
		return fmt.Errorf("delete member: %w", err)
	}

	for teammateID := range teammates {
		if _, err := s.RecalculateMember(ctx, teammateID); err != nil {
			return fmt.Errorf("rollup member %s: %w", teammateID, err)
		}
	}

	log.Printf("member removed team_id=%s member_id=%s teammates_recalculated=%d", member.TeamID, member.ID, len(teammates))
	return nil
}
