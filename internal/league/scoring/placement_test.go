package scoring

import (
	"testing"
)

func resolveOrFatal(t *testing.T, scores [4]int64) []Placement {
	t.Helper()
	entries := make([]Entry, 0, TableSize)
	keys := [4]string{"east", "south", "west", "north"}
	for i, score := range scores {
		entries = append(entries, Entry{Key: keys[i], Score: score})
	}
	placements, err := ResolvePlacements(entries, DefaultConfig())
	if err != nil {
		t.Fatalf("resolve placements: %v", err)
	}
	return placements
}

func TestResolvePlacementsRejectsWrongEntryCount(t *testing.T) {
	_, err := ResolvePlacements([]Entry{{Key: "a", Score: 25000}}, DefaultConfig())
	if err == nil {
		t.Fatal("expected entry count error")
	}
}

func TestResolvePlacementsDistinctScores(t *testing.T) {
	placements := resolveOrFatal(t, [4]int64{9000, 42000, 18000, 31000})

	wantOrder := []string{"south", "north", "west", "east"}
	wantUma := []float64{15, 5, -5, -15}
	for i, placement := range placements {
		if placement.Key != wantOrder[i] {
			t.Fatalf("rank %d key = %q, want %q", i+1, placement.Key, wantOrder[i])
		}
		if placement.Placement != float64(i+1) {
			t.Fatalf("rank %d placement = %v, want %d", i+1, placement.Placement, i+1)
		}
		if placement.Uma != wantUma[i] {
			t.Fatalf("rank %d uma = %v, want %v", i+1, placement.Uma, wantUma[i])
		}
	}
}

func TestResolvePlacementsTopAndBottomTies(t *testing.T) {
	placements := resolveOrFatal(t, [4]int64{30000, 30000, 20000, 20000})

	for _, placement := range placements[:2] {
		if placement.Placement != 1.5 {
			t.Fatalf("top tie placement = %v, want 1.5", placement.Placement)
		}
		if placement.Uma != 10 {
			t.Fatalf("top tie uma = %v, want 10", placement.Uma)
		}
	}
	for _, placement := range placements[2:] {
		if placement.Placement != 3.5 {
			t.Fatalf("bottom tie placement = %v, want 3.5", placement.Placement)
		}
		if placement.Uma != -10 {
			t.Fatalf("bottom tie uma = %v, want -10", placement.Uma)
		}
	}
}

func TestResolvePlacementsThreeWayTie(t *testing.T) {
	placements := resolveOrFatal(t, [4]int64{25000, 25000, 25000, 35000})

	if placements[0].Placement != 1 {
		t.Fatalf("leader placement = %v, want 1", placements[0].Placement)
	}
	// Ranks 2-4 average to 3; their uma averages to (5-5-15)/3 = -5.
	for _, placement := range placements[1:] {
		if placement.Placement != 3 {
			t.Fatalf("tied placement = %v, want 3", placement.Placement)
		}
		if placement.Uma != -5 {
			t.Fatalf("tied uma = %v, want -5", placement.Uma)
		}
	}
}

func TestResolvePlacementsAllEqual(t *testing.T) {
	placements := resolveOrFatal(t, [4]int64{25000, 25000, 25000, 25000})

	for _, placement := range placements {
		if placement.Placement != 2.5 {
			t.Fatalf("placement = %v, want 2.5", placement.Placement)
		}
		if placement.Uma != 0 {
			t.Fatalf("uma = %v, want 0", placement.Uma)
		}
	}
}

func TestResolvePlacementsSumAlwaysTen(t *testing.T) {
	cases := [][4]int64{
		{42000, 31000, 18000, 9000},
		{30000, 30000, 20000, 20000},
		{25000, 25000, 25000, 25000},
		{35000, 25000, 25000, 15000},
		{40000, 40000, 40000, -20000},
		{0, 0, 100, -100},
	}
	for _, scores := range cases {
		placements := resolveOrFatal(t, scores)
		var sum float64
		for _, placement := range placements {
			sum += placement.Placement
		}
		if sum != 10 {
			t.Fatalf("placements for %v sum to %v, want 10", scores, sum)
		}
	}
}

func TestRoundPlacement(t *testing.T) {
	tests := []struct {
		placement float64
		want      int
	}{
		{placement: 1, want: 1},
		{placement: 1.5, want: 2},
		{placement: 2.5, want: 3},
		{placement: 3.5, want: 4},
		{placement: 3, want: 3},
	}
	for _, tt := range tests {
		if got := RoundPlacement(tt.placement); got != tt.want {
			t.Fatalf("round %v = %d, want %d", tt.placement, got, tt.want)
		}
	}
}
