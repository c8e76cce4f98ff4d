package domain

import "time"

// ReportType distinguishes a full dump from a criteria-filtered view.
type ReportType string

const (
	ReportGeneral  ReportType = "general"
	ReportFiltered ReportType = "filtered"
)

// FilterCriteria are the thresholds a DomainResult's metrics must clear to
// be selected into a filtered report. Zero values are not meaningful;
// construct with DefaultFilterCriteria and override.
type FilterCriteria struct {
	MinSnapshots   int     `json:"min_snapshots"`
	MinYears       int     `json:"min_years"`
	MaxAvgInterval float64 `json:"max_avg_interval"`
	MaxGap         int     `json:"max_gap"`
	MinTimemap     int     `json:"min_timemap"`
}

// DefaultFilterCriteria returns the standard long-lived-domain thresholds.
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		MinSnapshots:   5,
		MinYears:       3,
		MaxAvgInterval: 90,
		MaxGap:         180,
		MinTimemap:     200,
	}
}

// Report is a named, persisted view over a completed task's results. The
// result list is a snapshot copy taken at creation time; later task
// mutations never show through.
type Report struct {
	ID           string          `json:"id"`
	Name         string          `json:"report_name"`
	Type         ReportType      `json:"report_type"`
	Criteria     *FilterCriteria `json:"filter_criteria,omitempty"`
	TaskID       string          `json:"task_id"`
	CreatedAt    time.Time       `json:"created_at"`
	DomainsCount int             `json:"domains_count"`
	Results      []DomainResult  `json:"results"`
}

// Clone returns an independent copy of the report. Criteria and the result
// slice are copied so a reader never aliases stored state.
func (r *Report) Clone() *Report {
	cp := *r
	if r.Criteria != nil {
		criteria := *r.Criteria
		cp.Criteria = &criteria
	}
	cp.Results = append([]DomainResult(nil), r.Results...)
	return &cp
}
