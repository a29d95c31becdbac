// Package storage defines persistence contracts for league state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// Team stores one league team and its scoring configuration.
type Team struct {
	ID            string
	Name          string
	Slug          string
	StartPoint    int
	TargetPoint   int
	UmaFirst      int
	UmaSecond     int
	UmaThird      int
	UmaFourth     int
	ChomboEnabled bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TeamPage stores one page of teams.
type TeamPage struct {
	Teams         []Team
	NextPageToken string
}

// Member stores one player belonging to a team.
type Member struct {
	ID        string
	TeamID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RawScore stores one player's raw result in one session. SessionDate is
// zero when the caller did not supply a historical date.
type RawScore struct {
	ID          string
	TeamID      string
	MemberID    string
	SessionID   string
	Score       int64
	Chombo      int
	Placement   float64
	SessionDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CalculatedScore stores the cached per-member aggregate. It is derived
// state: the rollup overwrites every field and nothing else mutates it.
type CalculatedScore struct {
	MemberID         string
	Total            float64
	GamesPlayed      int
	AveragePerGame   float64
	AveragePlacement float64
	ChomboCount      int
	UpdatedAt        time.Time
}

// TeamStore persists teams and their scoring configuration.
type TeamStore interface {
	CreateTeam(ctx context.Context, team Team) error
	GetTeam(ctx context.Context, teamID string) (Team, error)
	GetTeamBySlug(ctx context.Context, slug string) (Team, error)
	UpdateTeamConfig(ctx context.Context, team Team) error
	ListTeams(ctx context.Context, pageSize int, pageToken string) (TeamPage, error)
	DeleteTeam(ctx context.Context, teamID string) error
}

// MemberStore persists team membership.
type MemberStore interface {
	CreateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, memberID string) (Member, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]Member, error)
	DeleteMember(ctx context.Context, memberID string) error
}

// ScoreStore persists session score batches. The batch mutators are
// atomic: a session only ever has all of its rows or none of them.
type ScoreStore interface {
	// InsertSessionScores writes a full session batch. It fails with
	// ErrAlreadyExists when any row already exists for the session.
	InsertSessionScores(ctx context.Context, teamID, sessionID string, rows []RawScore) error
	// ReplaceSessionScores atomically swaps an existing session batch for
	// a new one. It fails with ErrNotFound when the session has no rows.
	ReplaceSessionScores(ctx context.Context, teamID, sessionID string, rows []RawScore) error
	// DeleteSessionScores removes all rows for a session and returns the
	// number deleted. It fails with ErrNotFound when none exist.
	DeleteSessionScores(ctx context.Context, teamID, sessionID string) (int, error)
	ListSessionScores(ctx context.Context, teamID, sessionID string) ([]RawScore, error)
	ListMemberScores(ctx context.Context, memberID string) ([]RawScore, error)
	// ListTeamScoresInRange returns team rows created in [from, to),
	// ordered by creation time then session.
	ListTeamScoresInRange(ctx context.Context, teamID string, from, to time.Time) ([]RawScore, error)
}

// CalculatedScoreStore persists rollup aggregates.
type CalculatedScoreStore interface {
	UpsertCalculatedScore(ctx context.Context, score CalculatedScore) error
	GetCalculatedScore(ctx context.Context, memberID string) (CalculatedScore, error)
}

// LeagueStore is the full persistence surface the league service needs.
type LeagueStore interface {
	TeamStore
	MemberStore
	ScoreStore
	CalculatedScoreStore
}
