package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/umalog/umalog/internal/platform/errors"
	"github.com/umalog/umalog/internal/storage"
	"github.com/umalog/umalog/internal/storage/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/league.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

// setupLeague creates one team with the default scoring configuration and
// four members. Members come back in creation order, not name order.
func setupLeague(t *testing.T, svc *Service) (storage.Team, []storage.Member) {
	t.Helper()
	ctx := context.Background()
	team, err := svc.CreateTeam(ctx, "Tokyo Riichi Club")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	names := []string{"Akira", "Chiyo", "Haru", "Noboru"}
	members := make([]storage.Member, 0, len(names))
	for _, name := range names {
		member, err := svc.AddMember(ctx, team.ID, name)
		if err != nil {
			t.Fatalf("add member %s: %v", name, err)
		}
		members = append(members, member)
	}
	return team, members
}

func entriesFor(members []storage.Member, scores []int64) []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, ScoreEntry{MemberID: members[i].ID, Score: score})
	}
	return entries
}

func fixClock(svc *Service, at time.Time) {
	svc.clock = func() time.Time { return at }
}

func wantCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	var domainErr *errors.Error
	if !stderrors.As(err, &domainErr) {
		t.Fatalf("err = %v, want domain error with code %s", err, code)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s", domainErr.Code, code)
	}
}
