// Package processor composes the history source, the metrics analyzer, and
// the thematic enricher into one per-domain result.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dropscope/dropscope/internal/analyzer"
	"github.com/dropscope/dropscope/internal/archive"
	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/internal/enricher"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

// Processor turns one domain name into a DomainResult. Failures of either
// external collaborator are isolated inside the result; Process never fails
// the batch.
type Processor struct {
	source archive.HistorySource
	enrich enricher.Enricher
	logger *slog.Logger
}

// New creates a Processor.
func New(source archive.HistorySource, enrich enricher.Enricher, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{source: source, enrich: enrich, logger: logger}
}

// Process fetches the domain's archive history, derives snapshot metrics,
// and runs thematic enrichment. Each step's failure is recorded in-line and
// the remaining steps still run.
func (p *Processor) Process(ctx context.Context, domainName string) domain.DomainResult {
	ctx, span := otel.Tracer("processor").Start(ctx, "processor.process_domain")
	defer span.End()
	span.SetAttributes(attribute.String("domain", domainName))

	start := time.Now()
	defer func() {
		telemetry.DomainDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	result := domain.DomainResult{DomainName: domainName}
	outcome := "ok"

	history, err := p.source.FetchHistory(ctx, domainName)
	if err != nil {
		outcome = "history_error"
		result.History = &domain.RawHistory{Domain: domainName, Error: historyErrorText(domainName, err)}
		p.logger.Warn("history fetch failed",
			slog.String("domain", domainName),
			slog.String("error", err.Error()),
		)
	} else {
		result.History = history
		metrics, skipped := analyzer.Analyze(history.Snapshots)
		if skipped > 0 {
			p.logger.Warn("skipped malformed snapshot timestamps",
				slog.String("domain", domainName),
				slog.Int("skipped", skipped),
			)
		}
		result.Metrics = &metrics
	}

	result.Thematic = p.enrich.Analyze(ctx, contentFor(domainName, result.History), domainName)
	if result.Thematic.Error != "" && outcome == "ok" {
		outcome = "enrich_error"
	}

	telemetry.DomainsProcessed.WithLabelValues(outcome).Inc()
	return result
}

// historyErrorText keeps the three failure classes distinguishable in the
// stored summary.
func historyErrorText(domainName string, err error) string {
	var noRecords *domain.NoSnapshotsError
	var unavailable *domain.ServiceUnavailableError
	switch {
	case errors.As(err, &noRecords):
		return fmt.Sprintf("no archive records found for %s", domainName)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("archive service unavailable: %v", unavailable.Cause)
	default:
		return fmt.Sprintf("unexpected error fetching history: %v", err)
	}
}

// contentFor synthesizes the text handed to the enricher. Live page
// retrieval is out of scope here; the enricher works from a short
// description of the domain and how its history lookup went.
func contentFor(domainName string, history *domain.RawHistory) string {
	if history != nil && history.Error != "" {
		return fmt.Sprintf("Could not fetch content for %s due to archive error: %s", domainName, history.Error)
	}
	return fmt.Sprintf("This is placeholder content for %s. Imagine a full webpage text here.", domainName)
}
