// Package archive fetches a domain's snapshot history from a web-archive
// CDX endpoint.
package archive

import (
	"context"

	"github.com/dropscope/dropscope/internal/domain"
)

// HistorySource is the capability boundary for the external archive
// provider. Implementations return the raw history or a typed failure:
// domain.NoSnapshotsError when the archive has no records,
// domain.ServiceUnavailableError when the provider cannot be reached.
type HistorySource interface {
	FetchHistory(ctx context.Context, domainName string) (*domain.RawHistory, error)
}
