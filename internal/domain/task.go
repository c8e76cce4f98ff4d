package domain

import "time"

// Status represents the states an analysis task can be in.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal returns true if no further state transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is the core domain entity representing one batch analysis submission.
// It is mutated only by the background worker that owns it; everyone else
// reads copies.
type Task struct {
	ID        string         `json:"task_id"`
	Status    Status         `json:"status"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Domains   []string       `json:"domains_submitted"`
	Results   []DomainResult `json:"results"`
}

// StatusSnapshot is the pollable/streamable view of a task's progress.
// Terminal is set on the last snapshot a stream emits before closing.
type StatusSnapshot struct {
	TaskID    string    `json:"task_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
	Terminal  bool      `json:"terminal,omitempty"`
}

// Snapshot returns the task's current StatusSnapshot.
func (t *Task) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		TaskID:    t.ID,
		Status:    t.Status,
		Message:   t.Message,
		UpdatedAt: t.UpdatedAt,
		Terminal:  t.Status.IsTerminal(),
	}
}

// Clone returns an independent copy of the task. Slices are copied so a
// reader never observes a worker's in-place append.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Domains = append([]string(nil), t.Domains...)
	cp.Results = append([]DomainResult(nil), t.Results...)
	return &cp
}
