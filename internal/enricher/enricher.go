// Package enricher sends page text to an OpenRouter-compatible LLM endpoint
// and parses a structured thematic summary out of the completion.
package enricher

import (
	"context"

	"github.com/dropscope/dropscope/internal/domain"
)

// Enricher is the capability boundary for the LLM provider. Analyze never
// returns a Go error: every failure mode, including the documented
// degraded mode when no credential is configured, is represented by the
// Error field of the returned analysis so it can be stored in-line with the
// domain's result.
type Enricher interface {
	Analyze(ctx context.Context, text, domainName string) *domain.ThematicAnalysis
}
