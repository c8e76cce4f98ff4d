package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropscope/dropscope/internal/domain"
)

// stubTasks serves a fixed completed task, or a typed error.
type stubTasks struct {
	task *domain.Task
	err  error
}

func (s *stubTasks) GetReport(context.Context, string) (*domain.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.task, nil
}

func completedTask() *domain.Task {
	return &domain.Task{
		ID:     "task-1",
		Status: domain.StatusCompleted,
		Results: []domain.DomainResult{
			resultWith(func(r *domain.DomainResult) { r.DomainName = "keeper.com" }),
			resultWith(func(r *domain.DomainResult) { r.DomainName = "thin.net"; r.Metrics.TotalSnapshots = 2 }),
		},
	}
}

func newTestService(tasks TaskSource) *Service {
	return NewService(NewMemoryStore(), tasks, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreate_GeneralReportKeepsEveryResult(t *testing.T) {
	svc := newTestService(&stubTasks{task: completedTask()})

	report, err := svc.Create(context.Background(), "all domains", "task-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportGeneral, report.Type)
	assert.Nil(t, report.Criteria)
	assert.Equal(t, 2, report.DomainsCount)
	assert.Len(t, report.Results, 2)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "task-1", report.TaskID)
}

func TestCreate_FilteredReportNarrowsResults(t *testing.T) {
	svc := newTestService(&stubTasks{task: completedTask()})
	criteria := domain.DefaultFilterCriteria()

	report, err := svc.Create(context.Background(), "long-lived", "task-1", &criteria)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportFiltered, report.Type)
	require.NotNil(t, report.Criteria)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "keeper.com", report.Results[0].DomainName)
	assert.Equal(t, 1, report.DomainsCount)
}

func TestCreate_PropagatesTaskErrors(t *testing.T) {
	notReady := &domain.TaskNotReadyError{TaskID: "task-1", Status: domain.StatusProcessing}
	svc := newTestService(&stubTasks{err: notReady})

	_, err := svc.Create(context.Background(), "too early", "task-1", nil)
	var got *domain.TaskNotReadyError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, domain.StatusProcessing, got.Status)
}

func TestCreate_SnapshotIsolatedFromTaskMutation(t *testing.T) {
	task := completedTask()
	svc := newTestService(&stubTasks{task: task})

	report, err := svc.Create(context.Background(), "frozen", "task-1", nil)
	require.NoError(t, err)

	// Appends to the source task after creation never show through.
	task.Results = append(task.Results, resultWith(func(r *domain.DomainResult) { r.DomainName = "late.org" }))

	got, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Len(t, got.Results, 2)
}

func TestGetDelete_Lifecycle(t *testing.T) {
	svc := newTestService(&stubTasks{task: completedTask()})

	report, err := svc.Create(context.Background(), "tmp", "task-1", nil)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), report.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), report.ID))

	var notFound *domain.ReportNotFoundError
	_, err = svc.Get(context.Background(), report.ID)
	assert.ErrorAs(t, err, &notFound)
	err = svc.Delete(context.Background(), report.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestMemoryStore_ReadsDoNotAliasStoredState(t *testing.T) {
	store := NewMemoryStore()
	criteria := domain.DefaultFilterCriteria()
	require.NoError(t, store.Save(context.Background(), &domain.Report{
		ID:       "r1",
		Name:     "frozen",
		Criteria: &criteria,
		Results:  []domain.DomainResult{{DomainName: "keeper.com"}},
	}))

	got, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)
	got.Name = "scribbled"
	got.Criteria.MinSnapshots = 99
	got.Results[0].DomainName = "scribbled.org"

	listed, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Results[0].DomainName = "scribbled-again.org"

	fresh, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "frozen", fresh.Name)
	assert.Equal(t, 5, fresh.Criteria.MinSnapshots)
	assert.Equal(t, "keeper.com", fresh.Results[0].DomainName)
}

func TestList_NewestFirst(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.Save(context.Background(), &domain.Report{
			ID:        id,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "r3", got[0].ID)
	assert.Equal(t, "r1", got[2].ID)
}
