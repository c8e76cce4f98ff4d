package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

// TaskSource provides the completed task a report is built from. Satisfied
// by the orchestrator: it already enforces NotFound and NotReady.
type TaskSource interface {
	GetReport(ctx context.Context, taskID string) (*domain.Task, error)
}

// Service creates and serves named report views.
type Service struct {
	store  Store
	tasks  TaskSource
	logger *slog.Logger
}

func NewService(store Store, tasks TaskSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, tasks: tasks, logger: logger}
}

// Create builds a report from a completed task's results. A nil criteria
// produces a general report with every result; non-nil criteria produces a
// filtered report holding only matching results. The result list is copied
// at creation time, so the report never changes afterwards.
func (s *Service) Create(ctx context.Context, name, taskID string, criteria *domain.FilterCriteria) (*domain.Report, error) {
	task, err := s.tasks.GetReport(ctx, taskID)
	if err != nil {
		return nil, err
	}

	reportType := domain.ReportGeneral
	results := make([]domain.DomainResult, len(task.Results))
	copy(results, task.Results)
	if criteria != nil {
		reportType = domain.ReportFiltered
		results = Apply(results, *criteria)
	}

	report := &domain.Report{
		ID:           uuid.New().String(),
		Name:         name,
		Type:         reportType,
		Criteria:     criteria,
		TaskID:       taskID,
		CreatedAt:    time.Now().UTC(),
		DomainsCount: len(results),
		Results:      results,
	}
	if err := s.store.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	telemetry.ReportsCreated.WithLabelValues(string(reportType)).Inc()
	s.logger.Info("report created",
		slog.String("report_id", report.ID),
		slog.String("task_id", taskID),
		slog.String("type", string(reportType)),
		slog.Int("domains", report.DomainsCount),
	)
	return report, nil
}

func (s *Service) Get(ctx context.Context, reportID string) (*domain.Report, error) {
	return s.store.Get(ctx, reportID)
}

func (s *Service) List(ctx context.Context) ([]*domain.Report, error) {
	return s.store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, reportID string) error {
	if err := s.store.Delete(ctx, reportID); err != nil {
		return err
	}
	s.logger.Info("report deleted", slog.String("report_id", reportID))
	return nil
}
