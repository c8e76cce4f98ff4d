// Package orchestrator owns the task lifecycle state machine: it creates
// tasks, runs each batch in its own background worker, and publishes every
// state change to pollers and live streams.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/internal/store"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

// Progress messages, in lifecycle order.
const (
	msgQueued    = "Task received and queued for processing."
	msgStarted   = "Task processing has started."
	msgCompleted = "Task completed successfully."
)

// DomainProcessor produces the result for one domain. Per-domain failures
// are isolated inside the result, never returned.
type DomainProcessor interface {
	Process(ctx context.Context, domainName string) domain.DomainResult
}

// Orchestrator runs batch analysis tasks. One background goroutine per
// task; domains within a task are processed strictly sequentially so
// result order always equals submission order.
type Orchestrator struct {
	store     store.TaskStore
	processor DomainProcessor
	publisher *Publisher
	logger    *slog.Logger

	wg sync.WaitGroup
}

// New creates an Orchestrator.
func New(taskStore store.TaskStore, proc DomainProcessor, pub *Publisher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     taskStore,
		processor: proc,
		publisher: pub,
		logger:    logger,
	}
}

// Submit validates the domain list, creates a PENDING task, and schedules
// its background execution. It returns immediately; processing happens
// asynchronously. An empty list (after trimming blanks) is rejected with
// EmptyDomainListError and no task is created.
func (o *Orchestrator) Submit(ctx context.Context, domains []string) (*domain.Task, error) {
	ctx, span := otel.Tracer("orchestrator").Start(ctx, "orchestrator.submit")
	defer span.End()

	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	if len(cleaned) == 0 {
		return nil, &domain.EmptyDomainListError{}
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:        uuid.New().String(),
		Status:    domain.StatusPending,
		Message:   msgQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Domains:   cleaned,
	}
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.Int("task.domains", len(cleaned)),
	)

	if err := o.store.Create(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task create failed")
		return nil, fmt.Errorf("create task: %w", err)
	}
	o.publisher.Publish(ctx, task.Snapshot())

	telemetry.TasksSubmitted.Inc()
	o.wg.Add(1)
	go o.run(task.ID, cleaned)

	o.logger.Info("task submitted",
		slog.String("task_id", task.ID),
		slog.Int("domains", len(cleaned)),
	)
	return task.Clone(), nil
}

// GetStatus returns a copy of the task. Idempotent: repeated calls without
// an intervening mutation return identical status/message/updated_at.
func (o *Orchestrator) GetStatus(ctx context.Context, taskID string) (*domain.Task, error) {
	return o.store.Get(ctx, taskID)
}

// GetReport returns the full task including results. The task must be
// COMPLETED; otherwise TaskNotReadyError carries the current status.
func (o *Orchestrator) GetReport(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := o.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.StatusCompleted {
		return nil, &domain.TaskNotReadyError{TaskID: taskID, Status: task.Status}
	}
	return task, nil
}

// Subscribe returns a live status stream for the task per the Publisher
// contract. The cancel function only detaches the stream; the underlying
// task always runs to completion.
func (o *Orchestrator) Subscribe(ctx context.Context, taskID string) (<-chan domain.StatusSnapshot, func(), error) {
	task, err := o.store.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	snap := task.Snapshot()
	ch, cancel := o.publisher.Subscribe(taskID, snap)
	if !snap.Terminal {
		// The task may have finished between the store read and the
		// registration, in which case its terminal publish already ran and
		// nothing further will arrive. Re-read and deliver the terminal
		// snapshot ourselves so the stream always closes.
		if cur, err := o.store.Get(ctx, taskID); err == nil {
			if cs := cur.Snapshot(); cs.Terminal {
				o.publisher.fanOut(cs)
			}
		}
	}
	return ch, cancel, nil
}

// Wait blocks until all in-flight task workers finish. Call on shutdown.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// run is the background worker owning the task. Every exit path, including
// a panic, lands the task in a terminal state so clients are never left
// polling a task stuck in PROCESSING.
func (o *Orchestrator) run(taskID string, domains []string) {
	defer o.wg.Done()

	// The worker deliberately detaches from the submit request's context:
	// a disconnecting client must not cancel the task.
	ctx, span := otel.Tracer("orchestrator").Start(context.Background(), "orchestrator.run_task")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", taskID))

	telemetry.TasksInFlight.Inc()
	defer telemetry.TasksInFlight.Dec()

	log := o.logger.With(slog.String("task_id", taskID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("task worker panicked", slog.Any("panic", r))
			span.SetStatus(codes.Error, "worker panic")
			o.setStatus(ctx, taskID, domain.StatusFailed, fmt.Sprintf("Task failed: %v", r))
			telemetry.TasksFinished.WithLabelValues(string(domain.StatusFailed)).Inc()
		}
	}()

	o.setStatus(ctx, taskID, domain.StatusProcessing, msgStarted)
	log.Info("task processing started", slog.Int("domains", len(domains)))

	for i, name := range domains {
		o.setMessage(ctx, taskID, fmt.Sprintf("Processing domain %d/%d: %s", i+1, len(domains), name))
		log.Info("processing domain",
			slog.String("domain", name),
			slog.Int("position", i+1),
			slog.Int("total", len(domains)),
		)

		result := o.processor.Process(ctx, name)
		if err := o.store.AppendResult(ctx, taskID, result); err != nil {
			// Losing the store mid-run is unrecoverable for this task.
			panic(fmt.Sprintf("append result for %s: %v", name, err))
		}
	}

	o.setStatus(ctx, taskID, domain.StatusCompleted, msgCompleted)
	telemetry.TasksFinished.WithLabelValues(string(domain.StatusCompleted)).Inc()
	log.Info("task completed", slog.Int("results", len(domains)))
}

func (o *Orchestrator) setStatus(ctx context.Context, taskID string, status domain.Status, message string) {
	if err := o.store.SetStatus(ctx, taskID, status, message); err != nil {
		o.logger.Error("failed to set task status",
			slog.String("task_id", taskID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return
	}
	o.publishCurrent(ctx, taskID)
}

func (o *Orchestrator) setMessage(ctx context.Context, taskID, message string) {
	if err := o.store.SetMessage(ctx, taskID, message); err != nil {
		o.logger.Error("failed to set task message",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		return
	}
	o.publishCurrent(ctx, taskID)
}

func (o *Orchestrator) publishCurrent(ctx context.Context, taskID string) {
	task, err := o.store.Get(ctx, taskID)
	if err != nil {
		o.logger.Error("failed to read task for publishing",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		return
	}
	o.publisher.Publish(ctx, task.Snapshot())
}
