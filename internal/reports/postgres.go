package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropscope/dropscope/internal/domain"
)

// Schema is the reports table DDL, applied by the migrate command. Result
// lists and filter criteria are stored as JSONB: reports are written once
// and read whole, so there is nothing to normalize.
const Schema = `
CREATE TABLE IF NOT EXISTS reports (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	report_type   TEXT NOT NULL,
	criteria      JSONB,
	task_id       TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	domains_count INTEGER NOT NULL,
	results       JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);
`

// PostgresStore persists reports in a reports table via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgxpool with the Store interface.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies the reports DDL. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply reports schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, report *domain.Report) error {
	results, err := json.Marshal(report.Results)
	if err != nil {
		return fmt.Errorf("marshal results for report %s: %w", report.ID, err)
	}
	var criteria []byte
	if report.Criteria != nil {
		if criteria, err = json.Marshal(report.Criteria); err != nil {
			return fmt.Errorf("marshal criteria for report %s: %w", report.ID, err)
		}
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports
			(id, name, report_type, criteria, task_id, created_at, domains_count, results)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		report.ID, report.Name, string(report.Type), criteria,
		report.TaskID, report.CreatedAt, report.DomainsCount, results,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, reportID string) (*domain.Report, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, report_type, criteria, task_id, created_at, domains_count, results
		FROM reports
		WHERE id = $1
	`, reportID)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.ReportNotFoundError{ReportID: reportID}
		}
		return nil, err
	}
	return report, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.Report, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, report_type, criteria, task_id, created_at, domains_count, results
		FROM reports
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, reportID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, reportID)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", reportID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ReportNotFoundError{ReportID: reportID}
	}
	return nil
}

// scanReport reads a report row from any pgx row type.
func scanReport(row interface {
	Scan(...any) error
}) (*domain.Report, error) {
	var report domain.Report
	var typeStr string
	var criteria, results []byte
	err := row.Scan(
		&report.ID, &report.Name, &typeStr, &criteria,
		&report.TaskID, &report.CreatedAt, &report.DomainsCount, &results,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	report.Type = domain.ReportType(typeStr)
	if len(criteria) > 0 {
		report.Criteria = &domain.FilterCriteria{}
		if err := json.Unmarshal(criteria, report.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria for report %s: %w", report.ID, err)
		}
	}
	if err := json.Unmarshal(results, &report.Results); err != nil {
		return nil, fmt.Errorf("decode results for report %s: %w", report.ID, err)
	}
	return &report, nil
}
