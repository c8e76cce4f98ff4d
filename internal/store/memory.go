package store

import (
	"context"
	"sync"
	"time"

	"github.com/dropscope/dropscope/internal/domain"
)

// Memory is the default process-lifetime TaskStore. Tasks are never evicted;
// durability across restarts is explicitly not provided.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

var _ TaskStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*domain.Task)}
}

func (m *Memory) Create(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, taskID string) (*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, &domain.TaskNotFoundError{TaskID: taskID}
	}
	return task.Clone(), nil
}

func (m *Memory) SetStatus(_ context.Context, taskID string, status domain.Status, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return &domain.TaskNotFoundError{TaskID: taskID}
	}
	task.Status = status
	task.Message = message
	task.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SetMessage(_ context.Context, taskID string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return &domain.TaskNotFoundError{TaskID: taskID}
	}
	task.Message = message
	task.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) AppendResult(_ context.Context, taskID string, result domain.DomainResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return &domain.TaskNotFoundError{TaskID: taskID}
	}
	task.Results = append(task.Results, result)
	task.UpdatedAt = time.Now().UTC()
	return nil
}
