// Package service implements the league core: session score aggregation,
// member rollups, and standings queries. Callers are expected to have
// performed authorization before invoking any mutation.
package service

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/umalog/umalog/internal/league/scoring"
	"github.com/umalog/umalog/internal/storage"
)

// tracerName identifies league service spans.
const tracerName = "github.com/umalog/umalog/internal/league/service"

// Service coordinates league mutations and reporting over a LeagueStore.
type Service struct {
	store  storage.LeagueStore
	locks  *sessionLocks
	tracer trace.Tracer
	clock  func() time.Time
}

// New creates a league service backed by the given store.
func New(store storage.LeagueStore) *Service {
	return &Service{
		store:  store,
		locks:  newSessionLocks(),
		tracer: otel.Tracer(tracerName),
		clock:  time.Now,
	}
}

// ScoreEntry is one player's raw result submitted for a session.
type ScoreEntry struct {
	MemberID string
	Score    int64
	Chombo   int
}

// PlayerResult is one player's fully derived line in a session breakdown.
type PlayerResult struct {
	MemberID        string
	MemberName      string
	Placement       float64
	RawScore        int64
	BaseScore       float64
	Uma             float64
	Chombo          int
	CalculatedScore float64
}

// SessionDetails is the derived breakdown of one complete session,
// players ordered best placement first.
type SessionDetails struct {
	SessionID   string
	SessionDate time.Time
	Players     []PlayerResult
}

// teamConfig projects a stored team onto the scoring configuration.
func teamConfig(team storage.Team) scoring.Config {
	return scoring.Config{
		TargetPoint:   team.TargetPoint,
		Uma:           [4]int{team.UmaFirst, team.UmaSecond, team.UmaThird, team.UmaFourth},
		ChomboEnabled: team.ChomboEnabled,
	}
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
