package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropscope/dropscope/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// resultWith builds a DomainResult whose metrics clear every default
// threshold; tests override single fields from there.
func resultWith(mutate func(*domain.DomainResult)) domain.DomainResult {
	r := domain.DomainResult{
		DomainName: "example.com",
		History:    &domain.RawHistory{Domain: "example.com", TimemapCount: 250},
		Metrics: &domain.SnapshotMetrics{
			HasSnapshot:     true,
			TotalSnapshots:  6,
			YearsCovered:    4,
			AvgIntervalDays: floatPtr(50),
			MaxGapDays:      intPtr(100),
		},
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestMatches_DefaultThresholds(t *testing.T) {
	defaults := domain.DefaultFilterCriteria()

	tests := []struct {
		name   string
		mutate func(*domain.DomainResult)
		want   bool
	}{
		{"clears every threshold", nil, true},
		{"gap too large", func(r *domain.DomainResult) { r.Metrics.MaxGapDays = intPtr(200) }, false},
		{"too few snapshots", func(r *domain.DomainResult) { r.Metrics.TotalSnapshots = 4 }, false},
		{"too few years", func(r *domain.DomainResult) { r.Metrics.YearsCovered = 2 }, false},
		{"interval too sparse", func(r *domain.DomainResult) { r.Metrics.AvgIntervalDays = floatPtr(90) }, false},
		{"interval undefined", func(r *domain.DomainResult) { r.Metrics.AvgIntervalDays = nil }, false},
		{"gap undefined", func(r *domain.DomainResult) { r.Metrics.MaxGapDays = nil }, false},
		{"timemap below floor", func(r *domain.DomainResult) { r.History.TimemapCount = 150 }, false},
		{"no history at all", func(r *domain.DomainResult) { r.History = nil }, false},
		{"no metrics at all", func(r *domain.DomainResult) { r.Metrics = nil }, false},
		{"no snapshots", func(r *domain.DomainResult) { r.Metrics.HasSnapshot = false }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(resultWith(tt.mutate), defaults))
		})
	}
}

func TestMatches_BoundariesAreStrictOnIntervalsInclusiveOnCounts(t *testing.T) {
	defaults := domain.DefaultFilterCriteria()

	// Counts at the floor pass.
	atFloor := resultWith(func(r *domain.DomainResult) {
		r.Metrics.TotalSnapshots = defaults.MinSnapshots
		r.Metrics.YearsCovered = defaults.MinYears
		r.History.TimemapCount = defaults.MinTimemap
	})
	assert.True(t, Matches(atFloor, defaults))

	// Interval and gap at the ceiling fail.
	atCeiling := resultWith(func(r *domain.DomainResult) {
		r.Metrics.AvgIntervalDays = floatPtr(defaults.MaxAvgInterval)
	})
	assert.False(t, Matches(atCeiling, defaults))
	atCeiling = resultWith(func(r *domain.DomainResult) {
		r.Metrics.MaxGapDays = intPtr(defaults.MaxGap)
	})
	assert.False(t, Matches(atCeiling, defaults))
}

func TestLongLived_IgnoresTimemapFloor(t *testing.T) {
	// Fails the general filter only on the timemap threshold.
	r := resultWith(func(r *domain.DomainResult) { r.History.TimemapCount = 10 })

	assert.False(t, Matches(r, domain.DefaultFilterCriteria()))
	assert.True(t, LongLived(r))

	// All other thresholds still apply on the shortcut path.
	sparse := resultWith(func(r *domain.DomainResult) {
		r.History.TimemapCount = 10
		r.Metrics.MaxGapDays = intPtr(400)
	})
	assert.False(t, LongLived(sparse))
}

func TestApply_PreservesOrder(t *testing.T) {
	results := []domain.DomainResult{
		resultWith(func(r *domain.DomainResult) { r.DomainName = "a.com" }),
		resultWith(func(r *domain.DomainResult) { r.DomainName = "b.com"; r.Metrics = nil }),
		resultWith(func(r *domain.DomainResult) { r.DomainName = "c.com" }),
	}

	selected := Apply(results, domain.DefaultFilterCriteria())
	require.Len(t, selected, 2)
	assert.Equal(t, "a.com", selected[0].DomainName)
	assert.Equal(t, "c.com", selected[1].DomainName)
}
