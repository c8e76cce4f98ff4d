// Package reports builds and persists named views over a completed task's
// results, optionally narrowed by the long-lived-domain filter.
package reports

import "github.com/dropscope/dropscope/internal/domain"

// Matches reports whether a result's derived metrics clear every threshold
// in criteria. Undefined values (missing metrics, nil interval or gap) fail
// the corresponding comparison, so a domain with no usable history is never
// selected.
func Matches(result domain.DomainResult, criteria domain.FilterCriteria) bool {
	m := result.Metrics
	if m == nil || !m.HasSnapshot {
		return false
	}
	if m.TotalSnapshots < criteria.MinSnapshots {
		return false
	}
	if m.YearsCovered < criteria.MinYears {
		return false
	}
	if m.AvgIntervalDays == nil || *m.AvgIntervalDays >= criteria.MaxAvgInterval {
		return false
	}
	if m.MaxGapDays == nil || *m.MaxGapDays >= criteria.MaxGap {
		return false
	}
	if timemapCount(result) < criteria.MinTimemap {
		return false
	}
	return true
}

// LongLived is the relaxed shortcut predicate used by the export download
// path. It applies the default thresholds without the timemap floor.
func LongLived(result domain.DomainResult) bool {
	criteria := domain.DefaultFilterCriteria()
	criteria.MinTimemap = 0
	return Matches(result, criteria)
}

// Apply returns the subset of results selected by criteria, preserving
// order.
func Apply(results []domain.DomainResult, criteria domain.FilterCriteria) []domain.DomainResult {
	selected := make([]domain.DomainResult, 0, len(results))
	for _, r := range results {
		if Matches(r, criteria) {
			selected = append(selected, r)
		}
	}
	return selected
}

func timemapCount(result domain.DomainResult) int {
	if result.History == nil {
		return 0
	}
	return result.History.TimemapCount
}
