package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropscope/dropscope/internal/domain"
)

func taskKey(taskID string) string { return "task:" + taskID }

// Redis is a TaskStore keeping the full task document as JSON under one key.
// Read-modify-write without locking is safe because each task is mutated
// only by its own background worker. No TTL: retention matches the
// in-memory store's process-lifetime semantics, surviving restarts as a
// bonus.
type Redis struct {
	client *redis.Client
}

var _ TaskStore = (*Redis)(nil)

// NewRedis wraps a go-redis client with the TaskStore interface.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewClient creates a Redis client with conservative timeouts.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}

func (r *Redis) Create(ctx context.Context, task *domain.Task) error {
	return r.write(ctx, task)
}

func (r *Redis) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := r.client.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &domain.TaskNotFoundError{TaskID: taskID}
		}
		return nil, fmt.Errorf("redis get task %s: %w", taskID, err)
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", taskID, err)
	}
	return &task, nil
}

func (r *Redis) SetStatus(ctx context.Context, taskID string, status domain.Status, message string) error {
	return r.mutate(ctx, taskID, func(task *domain.Task) {
		task.Status = status
		task.Message = message
	})
}

func (r *Redis) SetMessage(ctx context.Context, taskID string, message string) error {
	return r.mutate(ctx, taskID, func(task *domain.Task) {
		task.Message = message
	})
}

func (r *Redis) AppendResult(ctx context.Context, taskID string, result domain.DomainResult) error {
	return r.mutate(ctx, taskID, func(task *domain.Task) {
		task.Results = append(task.Results, result)
	})
}

func (r *Redis) mutate(ctx context.Context, taskID string, apply func(*domain.Task)) error {
	task, err := r.Get(ctx, taskID)
	if err != nil {
		return err
	}
	apply(task)
	task.UpdatedAt = time.Now().UTC()
	return r.write(ctx, task)
}

func (r *Redis) write(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	if err := r.client.Set(ctx, taskKey(task.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set task %s: %w", task.ID, err)
	}
	return nil
}
