package domain

import "fmt"

// TaskNotFoundError is returned when a task ID does not exist.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// EmptyDomainListError is returned when a submission carries no domains.
// It is a validation failure: no task is created.
type EmptyDomainListError struct{}

func (e *EmptyDomainListError) Error() string {
	return "domain list must not be empty"
}

// TaskNotReadyError is returned when a report is requested for a task that
// has not reached COMPLETED yet. Status carries the task's current state so
// callers can surface it.
type TaskNotReadyError struct {
	TaskID string
	Status Status
}

func (e *TaskNotReadyError) Error() string {
	return fmt.Sprintf("task %s is not completed yet: current status %s", e.TaskID, e.Status)
}

// ReportNotFoundError is returned when a report ID does not exist.
type ReportNotFoundError struct {
	ReportID string
}

func (e *ReportNotFoundError) Error() string {
	return fmt.Sprintf("report not found: %s", e.ReportID)
}

// NoSnapshotsError is returned by the history source when the archive has no
// records at all for a domain. Distinct from an outage: the lookup worked,
// the answer is empty.
type NoSnapshotsError struct {
	Domain string
}

func (e *NoSnapshotsError) Error() string {
	return fmt.Sprintf("no archive records found for domain %s", e.Domain)
}

// ServiceUnavailableError is returned when the external archive cannot be
// reached or keeps answering with server errors.
type ServiceUnavailableError struct {
	Domain string
	Cause  error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("archive service unavailable for domain %s: %v", e.Domain, e.Cause)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Cause }
