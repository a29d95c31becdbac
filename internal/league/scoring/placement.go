package scoring

import (
	"fmt"
	"math"
	"sort"
)

// TableSize is the number of players in a complete session.
const TableSize = 4

// Entry is one player's raw result fed to the placement resolver.
type Entry struct {
	Key   string // opaque participant key, unique within the session
	Score int64
}

// Placement is one player's resolved rank and uma within a session.
// Tied players share a fractional placement (the average of the ranks the
// tie cluster occupies) and the average of those ranks' uma values.
type Placement struct {
	Key       string
	Score     int64
	Placement float64
	Uma       float64
}

// ResolvePlacements ranks exactly four raw scores against a team
// configuration. The returned placements are ordered best to worst and
// always sum to 10 regardless of ties.
func ResolvePlacements(entries []Entry, cfg Config) ([]Placement, error) {
	if len(entries) != TableSize {
		return nil, fmt.Errorf("expected %d entries, got %d", TableSize, len(entries))
	}

	sorted := make([]Entry, TableSize)
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	resolved := make([]Placement, 0, TableSize)
	for start := 0; start < TableSize; {
		end := start
		for end+1 < TableSize && sorted[end+1].Score == sorted[start].Score {
			end++
		}

		// Ranks are 1-indexed; a cluster spanning ranks start+1..end+1
		// shares the average rank and the average uma of those ranks.
		size := end - start + 1
		var rankSum, umaSum float64
		for rank := start + 1; rank <= end+1; rank++ {
			rankSum += float64(rank)
			umaSum += float64(cfg.Uma[rank-1])
		}
		placement := rankSum / float64(size)
		uma := umaSum / float64(size)

		for i := start; i <= end; i++ {
			resolved = append(resolved, Placement{
				Key:       sorted[i].Key,
				Score:     sorted[i].Score,
				Placement: placement,
				Uma:       uma,
			})
		}
		start = end + 1
	}

	return resolved, nil
}

// RoundPlacement buckets a fractional placement into the nearest finish
// rank for reporting counts. Exact halves round away from zero, matching
// the reporting rule for shared placements.
func RoundPlacement(placement float64) int {
	return int(math.Round(placement))
}
