package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/umalog/umalog/internal/league/scoring"
	"github.com/umalog/umalog/internal/platform/errors"
	"github.com/umalog/umalog/internal/storage"
)

// MemberStanding is one row of the cached all-time leaderboard.
type MemberStanding struct {
	Member storage.Member
	Score  storage.CalculatedScore
	Rank   int
}

// MonthlyStanding is one row of a recomputed month-scoped leaderboard.
// Finish counts bucket fractional placements to the nearest rank.
type MonthlyStanding struct {
	Member           storage.Member
	Total            float64
	GamesPlayed      int
	AveragePerGame   float64
	AveragePlacement float64
	ChomboCount      int
	FirstPlace       int
	SecondPlace      int
	ThirdPlace       int
	FourthPlace      int
	Rank             int
}

// TeamStandings returns all team members ordered by cached rollup total,
// highest first. Members without a rollup row rank as zero.
func (s *Service) TeamStandings(ctx context.Context, teamID string) ([]MemberStanding, error) {
	ctx, span := s.tracer.Start(ctx, "league.TeamStandings",
		trace.WithAttributes(attribute.String("team_id", teamID)))
	defer span.End()

	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	teamMembers, err := s.store.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}

	standings := make([]MemberStanding, 0, len(teamMembers))
	for _, member := range teamMembers {
		score, err := s.store.GetCalculatedScore(ctx, member.ID)
		if err != nil {
			if !stderrors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("get calculated score: %w", err)
			}
			score = storage.CalculatedScore{MemberID: member.ID}
		}
		standings = append(standings, MemberStanding{Member: member, Score: score})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Score.Total != standings[j].Score.Total {
			return standings[i].Score.Total > standings[j].Score.Total
		}
		return standings[i].Member.Name < standings[j].Member.Name
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}

// monthWindow returns the UTC half-open interval covering a month.
func monthWindow(year int, month time.Month) (time.Time, time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, time.Time{}, errors.WithMetadata(
			errors.CodeStandingsInvalidMonth,
			fmt.Sprintf("month %d is out of range", month),
			map[string]string{"month": fmt.Sprintf("%d", month)},
		)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// TeamStandingsByMonth recomputes standings from raw scores created in the
// given month, ignoring the cached rollups. Sessions incomplete within the
// window are excluded. Members with no qualifying sessions report all-zero
// stats and sort last.
func (s *Service) TeamStandingsByMonth(ctx context.Context, teamID string, year int, month time.Month) ([]MonthlyStanding, error) {
	ctx, span := s.tracer.Start(ctx, "league.TeamStandingsByMonth",
		trace.WithAttributes(
			attribute.String("team_id", teamID),
			attribute.Int("year", year),
			attribute.Int("month", int(month)),
		))
	defer span.End()

	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	from, to, err := monthWindow(year, month)
	if err != nil {
		return nil, err
	}
	cfg := teamConfig(team)

	rows, err := s.store.ListTeamScoresInRange(ctx, team.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list team scores in range: %w", err)
	}

	sessions := groupBySession(rows)

	type memberAccumulator struct {
		total        float64
		games        int
		placementSum float64
		chombo       int
		finishes     [scoring.TableSize]int
	}
	accumulators := make(map[string]*memberAccumulator)

	for _, sessionRows := range sessions {
		if len(sessionRows) != scoring.TableSize {
			continue
		}
		entries := make([]scoring.Entry, 0, len(sessionRows))
		byMember := make(map[string]storage.RawScore, len(sessionRows))
		for _, row := range sessionRows {
			entries = append(entries, scoring.Entry{Key: row.MemberID, Score: row.Score})
			byMember[row.MemberID] = row
		}
		placements, err := scoring.ResolvePlacements(entries, cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve placements: %w", err)
		}
		for _, placement := range placements {
			row := byMember[placement.Key]
			acc := accumulators[row.MemberID]
			if acc == nil {
				acc = &memberAccumulator{}
				accumulators[row.MemberID] = acc
			}
			acc.total += scoring.Calculate(row.Score, placement.Uma, row.Chombo, cfg)
			acc.games++
			acc.placementSum += placement.Placement
			if row.Chombo > 0 && cfg.ChomboEnabled {
				acc.chombo += row.Chombo
			}
			bucket := scoring.RoundPlacement(placement.Placement)
			if bucket >= 1 && bucket <= scoring.TableSize {
				acc.finishes[bucket-1]++
			}
		}
	}

	teamMembers, err := s.store.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}

	standings := make([]MonthlyStanding, 0, len(teamMembers))
	for _, member := range teamMembers {
		standing := MonthlyStanding{Member: member}
		if acc, ok := accumulators[member.ID]; ok {
			standing.Total = acc.total
			standing.GamesPlayed = acc.games
			standing.ChomboCount = acc.chombo
			standing.FirstPlace = acc.finishes[0]
			standing.SecondPlace = acc.finishes[1]
			standing.ThirdPlace = acc.finishes[2]
			standing.FourthPlace = acc.finishes[3]
			if acc.games > 0 {
				standing.AveragePerGame = acc.total / float64(acc.games)
				standing.AveragePlacement = acc.placementSum / float64(acc.games)
			}
		}
		standings = append(standings, standing)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Total != standings[j].Total {
			return standings[i].Total > standings[j].Total
		}
		if standings[i].GamesPlayed != standings[j].GamesPlayed {
			return standings[i].GamesPlayed > standings[j].GamesPlayed
		}
		return standings[i].Member.Name < standings[j].Member.Name
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}

// ListSessionsByMonth returns derived breakdowns for every session whose
// rows were created in the given month, most recent session date first.
// Sessions incomplete within the window are skipped.
func (s *Service) ListSessionsByMonth(ctx context.Context, teamID string, year int, month time.Month) ([]SessionDetails, error) {
	ctx, span := s.tracer.Start(ctx, "league.ListSessionsByMonth",
		trace.WithAttributes(
			attribute.String("team_id", teamID),
			attribute.Int("year", year),
			attribute.Int("month", int(month)),
		))
	defer span.End()

	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.New(errors.CodeTeamNotFound, "team not found")
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	from, to, err := monthWindow(year, month)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListTeamScoresInRange(ctx, team.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list team scores in range: %w", err)
	}

	teamMembers, err := s.store.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	names := make(map[string]string, len(teamMembers))
	for _, member := range teamMembers {
		names[member.ID] = member.Name
	}

	sessions := groupBySession(rows)
	order := sessionOrder(rows)

	details := make([]SessionDetails, 0, len(order))
	cfg := teamConfig(team)
	for _, sessionID := range order {
		sessionRows := sessions[sessionID]
		if len(sessionRows) != scoring.TableSize {
			continue
		}
		detail, err := buildSessionDetails(sessionID, sessionRows, cfg, names)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].SessionDate.After(details[j].SessionDate)
	})
	return details, nil
}

// groupBySession buckets raw score rows by session ID.
func groupBySession(rows []storage.RawScore) map[string][]storage.RawScore {
	sessions := make(map[string][]storage.RawScore)
	for _, row := range rows {
		sessions[row.SessionID] = append(sessions[row.SessionID], row)
	}
	return sessions
}

// sessionOrder returns session IDs in first-row creation order.
func sessionOrder(rows []storage.RawScore) []string {
	seen := make(map[string]struct{}, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.SessionID]; ok {
			continue
		}
		seen[row.SessionID] = struct{}{}
		order = append(order, row.SessionID)
	}
	return order
}
