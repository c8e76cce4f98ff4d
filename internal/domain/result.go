package domain

import "time"

// Snapshot is one archived capture of a domain as returned by the archive
// provider. Timestamp is the provider's 14-digit form (yyyyMMddhhmmss);
// Digest identifies the captured content version and may be empty when the
// provider does not expose one.
type Snapshot struct {
	Timestamp string `json:"timestamp"`
	Digest    string `json:"digest,omitempty"`
}

// RawHistory is the provider-specific summary of a domain's archive history.
// It is kept separate from SnapshotMetrics on purpose: this is the opaque
// transport payload, the metrics are the derived record. A failed fetch is
// represented by Error being non-empty, never by a dropped result.
type RawHistory struct {
	Domain            string     `json:"domain"`
	FirstSnapshotDate *time.Time `json:"first_snapshot_date,omitempty"`
	LastSnapshotDate  *time.Time `json:"last_snapshot_date,omitempty"`
	TotalSnapshots    int        `json:"total_snapshots"`
	TimemapCount      int        `json:"timemap_count"`
	OldestSnapshotURL string     `json:"oldest_snapshot_url,omitempty"`
	NewestSnapshotURL string     `json:"newest_snapshot_url,omitempty"`
	Snapshots         []Snapshot `json:"-"`
	Error             string     `json:"error,omitempty"`
}

// SnapshotMetrics is the derived longevity profile of a domain's snapshot
// history. Pointer fields are nil when the value is undefined: interval and
// gap need at least two snapshots, UniqueVersions needs digests.
type SnapshotMetrics struct {
	HasSnapshot      bool        `json:"has_snapshot"`
	TotalSnapshots   int         `json:"total_snapshots"`
	FirstSnapshot    *time.Time  `json:"first_snapshot,omitempty"`
	LastSnapshot     *time.Time  `json:"last_snapshot,omitempty"`
	AvgIntervalDays  *float64    `json:"avg_interval_days,omitempty"`
	MaxGapDays       *int        `json:"max_gap_days,omitempty"`
	YearsCovered     int         `json:"years_covered"`
	SnapshotsPerYear map[int]int `json:"snapshots_per_year,omitempty"`
	UniqueVersions   *int        `json:"unique_versions,omitempty"`
	IsGood           bool        `json:"is_good"`
	Recommended      bool        `json:"recommended"`
}

// ThematicAnalysis is the structured outcome of the LLM content analysis.
// Error is set in place of (or alongside) the structured fields when the
// enrichment call failed or ran in degraded mode.
type ThematicAnalysis struct {
	PrimaryCategory string   `json:"primary_category,omitempty"`
	MainTopics      []string `json:"main_topics,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	ModelUsed       string   `json:"model_used,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// DomainResult is the outcome for one domain within a task. Immutable once
// appended. Assessment fields are reserved for future scoring logic and stay
// unset.
type DomainResult struct {
	DomainName        string            `json:"domain_name"`
	History           *RawHistory       `json:"wayback_history_summary,omitempty"`
	Metrics           *SnapshotMetrics  `json:"snapshot_metrics,omitempty"`
	Thematic          *ThematicAnalysis `json:"thematic_analysis_result,omitempty"`
	AssessmentScore   *float64          `json:"assessment_score,omitempty"`
	AssessmentSummary string            `json:"assessment_summary,omitempty"`
}
