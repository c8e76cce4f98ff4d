// Package store holds task state behind an injected interface so the
// default in-memory map can be swapped for a durable backend without
// touching orchestrator logic.
package store

import (
	"context"

	"github.com/dropscope/dropscope/internal/domain"
)

// TaskStore manages task state. Only the background worker that owns a task
// mutates it; readers receive independent copies. updated_at is refreshed by
// the store on every mutation, keeping it non-decreasing.
type TaskStore interface {
	// Create persists a new task. The task's ID must be unique.
	Create(ctx context.Context, task *domain.Task) error
	// Get returns an independent copy of the task, or TaskNotFoundError.
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	// SetStatus transitions the task's status and message.
	SetStatus(ctx context.Context, taskID string, status domain.Status, message string) error
	// SetMessage updates the progress message without changing status.
	SetMessage(ctx context.Context, taskID string, message string) error
	// AppendResult appends one domain result, preserving submission order.
	AppendResult(ctx context.Context, taskID string, result domain.DomainResult) error
}
