package reports

import (
	"context"

	"github.com/dropscope/dropscope/internal/domain"
)

// Store abstracts report persistence. Reports are immutable once saved;
// there is no update operation.
type Store interface {
	Save(ctx context.Context, report *domain.Report) error
	Get(ctx context.Context, reportID string) (*domain.Report, error)
	List(ctx context.Context) ([]*domain.Report, error)
	Delete(ctx context.Context, reportID string) error
}
