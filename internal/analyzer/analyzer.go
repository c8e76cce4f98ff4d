// Package analyzer derives longevity metrics from a domain's raw snapshot
// history. Pure computation: no I/O, no shared state.
package analyzer

import (
	"math"
	"sort"
	"time"

	"github.com/dropscope/dropscope/internal/domain"
)

// timestampLayout is the archive provider's 14-digit capture timestamp.
const timestampLayout = "20060102150405"

const (
	// A history is "good" when no gap between captures exceeds a year.
	goodMaxGapDays = 365
	// A history is "recommended" when it is both large and dense.
	recommendedMinSnapshots   = 200
	recommendedMaxAvgInterval = 30.0
)

// Analyze converts an unordered snapshot collection into derived metrics.
// Records with malformed timestamps are skipped; the count of skipped
// records is returned so the caller can log a warning. A history whose
// every record is malformed behaves exactly like an empty one.
func Analyze(snaps []domain.Snapshot) (domain.SnapshotMetrics, int) {
	times := make([]time.Time, 0, len(snaps))
	digests := make(map[string]struct{})
	haveDigests := false
	skipped := 0

	for _, s := range snaps {
		ts, err := time.Parse(timestampLayout, s.Timestamp)
		if err != nil {
			skipped++
			continue
		}
		times = append(times, ts)
		if s.Digest != "" {
			haveDigests = true
			digests[s.Digest] = struct{}{}
		}
	}

	if len(times) == 0 {
		return domain.SnapshotMetrics{}, skipped
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	first := times[0]
	last := times[len(times)-1]

	perYear := make(map[int]int)
	for _, ts := range times {
		perYear[ts.Year()]++
	}

	m := domain.SnapshotMetrics{
		HasSnapshot:      true,
		TotalSnapshots:   len(times),
		FirstSnapshot:    &first,
		LastSnapshot:     &last,
		YearsCovered:     len(perYear),
		SnapshotsPerYear: perYear,
	}

	if len(times) >= 2 {
		var sumDays float64
		maxGap := 0
		for i := 1; i < len(times); i++ {
			gapDays := times[i].Sub(times[i-1]).Hours() / 24
			sumDays += gapDays
			if g := int(gapDays); g > maxGap {
				maxGap = g
			}
		}
		avg := round2(sumDays / float64(len(times)-1))
		m.AvgIntervalDays = &avg
		m.MaxGapDays = &maxGap
	}

	// Distinct-digest count is only meaningful when the provider exposed
	// digests at all; otherwise uniqueness is unknown, not zero.
	if haveDigests {
		uniq := len(digests)
		m.UniqueVersions = &uniq
	}

	// A single snapshot has no gaps, so the gap condition is vacuously
	// satisfied and the history counts as good.
	m.IsGood = m.MaxGapDays == nil || *m.MaxGapDays < goodMaxGapDays
	m.Recommended = m.TotalSnapshots >= recommendedMinSnapshots &&
		m.AvgIntervalDays != nil && *m.AvgIntervalDays < recommendedMaxAvgInterval

	return m, skipped
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
