package scoring

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBase(t *testing.T) {
	tests := []struct {
		name   string
		score  int64
		target int
		want   float64
	}{
		{name: "above target", score: 42000, target: 30000, want: 12},
		{name: "at target", score: 30000, target: 30000, want: 0},
		{name: "below target", score: 9000, target: 30000, want: -21},
		{name: "custom target", score: 30000, target: 25000, want: 5},
		{name: "sub-thousand remainder", score: 30500, target: 30000, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Base(tt.score, tt.target)
			if !almostEqual(got, tt.want) {
				t.Fatalf("base = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateAppliesUmaAndChombo(t *testing.T) {
	cfg := DefaultConfig()

	got := Calculate(42000, float64(DefaultUmaFirst), 0, cfg)
	if !almostEqual(got, 27) {
		t.Fatalf("calculated = %v, want 27", got)
	}

	got = Calculate(42000, float64(DefaultUmaFirst), 2, cfg)
	if !almostEqual(got, 27-2*ChomboPenalty) {
		t.Fatalf("calculated with chombo = %v, want %v", got, 27-2*ChomboPenalty)
	}
}

func TestCalculateChomboDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChomboEnabled = false

	clean := Calculate(25000, float64(DefaultUmaSecond), 0, cfg)
	dirty := Calculate(25000, float64(DefaultUmaSecond), 3, cfg)
	if !almostEqual(clean, dirty) {
		t.Fatalf("chombo disabled: calculated %v != %v", dirty, clean)
	}
}

func TestCalculateSessionTotalMatchesBaseSum(t *testing.T) {
	// With the default uma the placement bonuses cancel, so the four
	// calculated scores must sum to the sum of the base scores.
	cfg := DefaultConfig()
	scores := []int64{42000, 31000, 18000, 9000}

	entries := make([]Entry, len(scores))
	for i, score := range scores {
		entries[i] = Entry{Key: string(rune('a' + i)), Score: score}
	}
	placements, err := ResolvePlacements(entries, cfg)
	if err != nil {
		t.Fatalf("resolve placements: %v", err)
	}

	var total, baseTotal float64
	for _, placement := range placements {
		total += Calculate(placement.Score, placement.Uma, 0, cfg)
		baseTotal += Base(placement.Score, cfg.TargetPoint)
	}
	if !almostEqual(total, baseTotal) {
		t.Fatalf("session total = %v, want %v", total, baseTotal)
	}
}

func TestDefaultUmaSumsToZero(t *testing.T) {
	cfg := DefaultConfig()
	sum := 0
	for _, uma := range cfg.Uma {
		sum += uma
	}
	if sum != 0 {
		t.Fatalf("default uma sum = %d, want 0", sum)
	}
}
