package reports

import (
	"context"
	"sort"
	"sync"

	"github.com/dropscope/dropscope/internal/domain"
)

// MemoryStore keeps reports in a process-local map. Contents do not survive
// a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*domain.Report)}
}

func (s *MemoryStore) Save(_ context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, reportID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[reportID]
	if !ok {
		return nil, &domain.ReportNotFoundError{ReportID: reportID}
	}
	return report.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Report, 0, len(s.reports))
	for _, report := range s.reports {
		out = append(out, report.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[reportID]; !ok {
		return &domain.ReportNotFoundError{ReportID: reportID}
	}
	delete(s.reports, reportID)
	return nil
}
