package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/umalog/umalog/internal/platform/errors"
	"github.com/umalog/umalog/internal/storage"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSubmitSessionScoresRoundTrip(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	sessionDate := time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC)
	rows, err := svc.SubmitSessionScores(ctx, team.ID, "friday-night", entriesFor(members, []int64{42000, 31000, 18000, 9000}), sessionDate)
	if err != nil {
		t.Fatalf("submit session scores: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	for i, row := range rows {
		if row.Placement != float64(i+1) {
			t.Fatalf("row %d placement = %v, want %d", i, row.Placement, i+1)
		}
		if !row.SessionDate.Equal(sessionDate) {
			t.Fatalf("row session date = %v, want %v", row.SessionDate, sessionDate)
		}
	}

	details, err := svc.SessionDetails(ctx, team.ID, "friday-night")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}
	if details == nil {
		t.Fatal("expected session details for a complete session")
	}
	if details.SessionID != "friday-night" {
		t.Fatalf("session id = %q, want friday-night", details.SessionID)
	}

	wantCalculated := []float64{27, 6, -17, -36}
	wantNames := []string{"Akira", "Chiyo", "Haru", "Noboru"}
	wantUma := []float64{15, 5, -5, -15}
	for i, player := range details.Players {
		if player.MemberName != wantNames[i] {
			t.Fatalf("player %d = %q, want %q", i, player.MemberName, wantNames[i])
		}
		if player.Uma != wantUma[i] {
			t.Fatalf("player %d uma = %v, want %v", i, player.Uma, wantUma[i])
		}
		if !almostEqual(player.CalculatedScore, wantCalculated[i]) {
			t.Fatalf("player %d calculated = %v, want %v", i, player.CalculatedScore, wantCalculated[i])
		}
	}
}

func TestSubmitSessionScoresChomboPenalty(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	entries := entriesFor(members, []int64{42000, 31000, 18000, 9000})
	entries[0].Chombo = 2
	if _, err := svc.SubmitSessionScores(ctx, team.ID, "friday-night", entries, time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}

	details, err := svc.SessionDetails(ctx, team.ID, "friday-night")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}
	winner := details.Players[0]
	if winner.Chombo != 2 {
		t.Fatalf("winner chombo = %d, want 2", winner.Chombo)
	}
	if !almostEqual(winner.CalculatedScore, 27-60) {
		t.Fatalf("winner calculated = %v, want %v", winner.CalculatedScore, 27-60)
	}
}

func TestSubmitSessionScoresValidation(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitSessionScores(ctx, team.ID, "", entriesFor(members, []int64{1, 2, 3, 4}), time.Time{})
	wantCode(t, err, errors.CodeSessionIDEmpty)

	_, err = svc.SubmitSessionScores(ctx, team.ID, "short", entriesFor(members[:3], []int64{1, 2, 3}), time.Time{})
	wantCode(t, err, errors.CodeSessionEntryCount)

	_, err = svc.SubmitSessionScores(ctx, "missing", "s1", entriesFor(members, []int64{1, 2, 3, 4}), time.Time{})
	wantCode(t, err, errors.CodeTeamNotFound)

	stranger := entriesFor(members, []int64{1, 2, 3, 4})
	stranger[3].MemberID = "not-on-team"
	_, err = svc.SubmitSessionScores(ctx, team.ID, "s1", stranger, time.Time{})
	wantCode(t, err, errors.CodeMemberNotInTeam)

	duplicated := entriesFor(members, []int64{1, 2, 3, 4})
	duplicated[3].MemberID = members[0].ID
	_, err = svc.SubmitSessionScores(ctx, team.ID, "s1", duplicated, time.Time{})
	wantCode(t, err, errors.CodeSessionDuplicateMember)

	negative := entriesFor(members, []int64{1, 2, 3, 4})
	negative[1].Chombo = -1
	_, err = svc.SubmitSessionScores(ctx, team.ID, "s1", negative, time.Time{})
	wantCode(t, err, errors.CodeSessionInvalidChombo)
}

func TestSubmitSessionScoresConflict(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	entries := entriesFor(members, []int64{42000, 31000, 18000, 9000})
	if _, err := svc.SubmitSessionScores(ctx, team.ID, "friday-night", entries, time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}
	_, err := svc.SubmitSessionScores(ctx, team.ID, "friday-night", entries, time.Time{})
	wantCode(t, err, errors.CodeSessionAlreadyExists)
}

func TestSubmitSessionScoresTies(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	if _, err := svc.SubmitSessionScores(ctx, team.ID, "tied", entriesFor(members, []int64{30000, 30000, 20000, 20000}), time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}
	details, err := svc.SessionDetails(ctx, team.ID, "tied")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}

	for _, player := range details.Players[:2] {
		if player.Placement != 1.5 || player.Uma != 10 {
			t.Fatalf("top tie = %v/%v, want 1.5/10", player.Placement, player.Uma)
		}
	}
	for _, player := range details.Players[2:] {
		if player.Placement != 3.5 || player.Uma != -10 {
			t.Fatalf("bottom tie = %v/%v, want 3.5/-10", player.Placement, player.Uma)
		}
	}
	var sum float64
	for _, player := range details.Players {
		sum += player.Placement
	}
	if sum != 10 {
		t.Fatalf("placement sum = %v, want 10", sum)
	}
}

func TestUpdateSessionScoresSwapsRoster(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	fifth, err := svc.AddMember(ctx, team.ID, "Rei")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	if _, err := svc.SubmitSessionScores(ctx, team.ID, "friday-night", entriesFor(members, []int64{42000, 31000, 18000, 9000}), time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}

	roster := []storage.Member{members[0], members[1], members[2], fifth}
	rows, err := svc.UpdateSessionScores(ctx, team.ID, "friday-night", entriesFor(roster, []int64{9000, 18000, 31000, 42000}), time.Time{})
	if err != nil {
		t.Fatalf("update session scores: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want exactly 4 after update", len(rows))
	}
	if rows[0].MemberID != fifth.ID {
		t.Fatalf("winner = %q, want %q", rows[0].MemberID, fifth.ID)
	}

	// The dropped player's aggregate sheds the session.
	dropped, err := svc.store.GetCalculatedScore(ctx, members[3].ID)
	if err != nil {
		t.Fatalf("get dropped rollup: %v", err)
	}
	if dropped.GamesPlayed != 0 || dropped.Total != 0 {
		t.Fatalf("dropped rollup = %+v, want zeroed", dropped)
	}
	added, err := svc.store.GetCalculatedScore(ctx, fifth.ID)
	if err != nil {
		t.Fatalf("get added rollup: %v", err)
	}
	if added.GamesPlayed != 1 || !almostEqual(added.Total, 27) {
		t.Fatalf("added rollup = %+v, want 1 game at 27", added)
	}
}

func TestUpdateSessionScoresMissingSession(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	_, err := svc.UpdateSessionScores(ctx, team.ID, "missing", entriesFor(members, []int64{1, 2, 3, 4}), time.Time{})
	wantCode(t, err, errors.CodeSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	if _, err := svc.SubmitSessionScores(ctx, team.ID, "friday-night", entriesFor(members, []int64{42000, 31000, 18000, 9000}), time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}

	deleted, err := svc.DeleteSession(ctx, team.ID, "friday-night")
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("deleted = %d, want 4", deleted)
	}

	_, err = svc.DeleteSession(ctx, team.ID, "friday-night")
	wantCode(t, err, errors.CodeSessionNotFound)

	// Rollups shed the deleted session.
	for _, member := range members {
		score, err := svc.store.GetCalculatedScore(ctx, member.ID)
		if err != nil {
			t.Fatalf("get rollup: %v", err)
		}
		if score.GamesPlayed != 0 || score.Total != 0 {
			t.Fatalf("rollup after delete = %+v, want zeroed", score)
		}
	}
}

func TestValidateSessionComplete(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	err := svc.ValidateSessionComplete(ctx, team.ID, "missing")
	wantCode(t, err, errors.CodeSessionNotFound)

	// A partial batch written straight to storage is incomplete.
	partial := []storage.RawScore{
		{ID: "p-1", TeamID: team.ID, MemberID: members[0].ID, SessionID: "partial", Score: 30000, Placement: 1},
		{ID: "p-2", TeamID: team.ID, MemberID: members[1].ID, SessionID: "partial", Score: 20000, Placement: 2},
	}
	if err := svc.store.InsertSessionScores(ctx, team.ID, "partial", partial); err != nil {
		t.Fatalf("insert partial session: %v", err)
	}
	err = svc.ValidateSessionComplete(ctx, team.ID, "partial")
	wantCode(t, err, errors.CodeSessionIncomplete)

	if _, err := svc.SubmitSessionScores(ctx, team.ID, "complete", entriesFor(members, []int64{1, 2, 3, 4}), time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}
	if err := svc.ValidateSessionComplete(ctx, team.ID, "complete"); err != nil {
		t.Fatalf("validate complete session: %v", err)
	}
}

func TestSessionDetailsUndatedSessionReportsCreationTime(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	submittedAt := time.Date(2026, time.January, 9, 21, 0, 0, 0, time.UTC)
	fixClock(svc, submittedAt)
	if _, err := svc.SubmitSessionScores(ctx, team.ID, "undated", entriesFor(members, []int64{42000, 31000, 18000, 9000}), time.Time{}); err != nil {
		t.Fatalf("submit session scores: %v", err)
	}

	details, err := svc.SessionDetails(ctx, team.ID, "undated")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}
	if !details.SessionDate.Equal(submittedAt) {
		t.Fatalf("session date = %v, want creation time %v", details.SessionDate, submittedAt)
	}

	// An explicit date wins over the creation time.
	played := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SubmitSessionScores(ctx, team.ID, "dated", entriesFor(members, []int64{42000, 31000, 18000, 9000}), played); err != nil {
		t.Fatalf("submit dated session: %v", err)
	}
	details, err = svc.SessionDetails(ctx, team.ID, "dated")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}
	if !details.SessionDate.Equal(played) {
		t.Fatalf("session date = %v, want supplied date %v", details.SessionDate, played)
	}
}

func TestSessionDetailsIncompleteSessionIsNil(t *testing.T) {
	svc := newTestService(t)
	team, members := setupLeague(t, svc)
	ctx := context.Background()

	partial := []storage.RawScore{
		{ID: "p-1", TeamID: team.ID, MemberID: members[0].ID, SessionID: "partial", Score: 30000, Placement: 1},
	}
	if err := svc.store.InsertSessionScores(ctx, team.ID, "partial", partial); err != nil {
		t.Fatalf("insert partial session: %v", err)
	}

	details, err := svc.SessionDetails(ctx, team.ID, "partial")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}
	if details != nil {
		t.Fatalf("details = %+v, want nil for incomplete session", details)
	}

	details, err = svc.SessionDetails(ctx, team.ID, "missing")
	if err != nil {
		t.Fatalf("session details: %v", err)
	}
	if details != nil {
		t.Fatalf("details = %+v, want nil for missing session", details)
	}
}
