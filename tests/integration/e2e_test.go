//go:build integration

// Package integration contains end-to-end integration tests that require
// real infrastructure (Redis, PostgreSQL) provided by testcontainers-go.
//
// Run with: go test -tags=integration -v ./tests/integration/
package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/internal/orchestrator"
	"github.com/dropscope/dropscope/internal/reports"
	"github.com/dropscope/dropscope/internal/store"
)

// e2eProcessor stands in for the archive/LLM pipeline so the test exercises
// only the orchestration and persistence layers against real backends.
type e2eProcessor struct{}

func (e2eProcessor) Process(_ context.Context, name string) domain.DomainResult {
	avg := 25.0
	gap := 60
	return domain.DomainResult{
		DomainName: name,
		History:    &domain.RawHistory{Domain: name, TotalSnapshots: 300, TimemapCount: 300},
		Metrics: &domain.SnapshotMetrics{
			HasSnapshot:     true,
			TotalSnapshots:  300,
			YearsCovered:    6,
			AvgIntervalDays: &avg,
			MaxGapDays:      &gap,
			IsGood:          true,
			Recommended:     true,
		},
	}
}

// TestE2E_TaskToReport runs a full task against the Redis task store, then
// persists a filtered report into Postgres and reads it back.
func TestE2E_TaskToReport(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	taskStore := store.NewRedis(newRedisClient(t))

	pool, err := pgxpool.New(ctx, testPostgresDSN)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "TRUNCATE reports") //nolint:errcheck
		pool.Close()
	})
	reportStore := reports.NewPostgresStore(pool)

	orch := orchestrator.New(taskStore, e2eProcessor{}, orchestrator.NewPublisher(nil, logger), logger)
	reportSvc := reports.NewService(reportStore, orch, logger)

	// ── submit and stream to completion ──────────────────────────────────────
	task, err := orch.Submit(ctx, []string{"example.com", "old-shop.net"})
	require.NoError(t, err)

	ch, cancel, err := orch.Subscribe(ctx, task.ID)
	require.NoError(t, err)
	defer cancel()

	var last domain.StatusSnapshot
	for snap := range ch {
		last = snap
	}
	assert.True(t, last.Terminal)
	assert.Equal(t, domain.StatusCompleted, last.Status)

	orch.Wait()
	full, err := orch.GetReport(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, full.Results, 2)
	assert.Equal(t, "example.com", full.Results[0].DomainName)

	// ── filtered report persisted in Postgres ────────────────────────────────
	criteria := domain.DefaultFilterCriteria()
	report, err := reportSvc.Create(ctx, "e2e long-lived", task.ID, &criteria)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DomainsCount)

	got, err := reportSvc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportFiltered, got.Type)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "old-shop.net", got.Results[1].DomainName)
}
