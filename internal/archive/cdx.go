package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/pkg/retry"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

const (
	defaultBaseURL   = "https://web.archive.org"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	timestampLayout  = "20060102150405"
)

// Config holds CDX client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// MaxRetries is the number of extra attempts on transient failures.
	MaxRetries int
}

// CDXClient queries a CDX search endpoint and assembles the raw history
// summary the analyzer consumes.
type CDXClient struct {
	baseURL    string
	userAgent  string
	maxRetries int
	client     *http.Client
	logger     *slog.Logger
}

var _ HistorySource = (*CDXClient)(nil)

// NewCDXClient creates a client for the given config. Zero-value fields fall
// back to sensible defaults.
func NewCDXClient(cfg Config, logger *slog.Logger) *CDXClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CDXClient{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// FetchHistory queries the CDX endpoint for every capture of domainName and
// condenses the rows into a RawHistory. The per-call timeout is the client
// timeout; a timeout surfaces as a ServiceUnavailableError for the caller to
// record, never as a panic or a task-level abort.
func (c *CDXClient) FetchHistory(ctx context.Context, domainName string) (*domain.RawHistory, error) {
	ctx, span := otel.Tracer("archive").Start(ctx, "archive.fetch_history")
	defer span.End()
	span.SetAttributes(attribute.String("domain", domainName))

	q := url.Values{}
	q.Set("url", domainName)
	q.Set("output", "json")
	q.Set("fl", "timestamp,digest")
	endpoint := c.baseURL + "/cdx/search/cdx?" + q.Encode()

	var body []byte
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: c.maxRetries + 1,
		BaseDelay:   500 * time.Millisecond,
		RetryIf: func(err error) bool {
			var unavailable *domain.ServiceUnavailableError
			return errors.As(err, &unavailable)
		},
		OnRetry: func(attempt int, err error) {
			c.logger.Warn("archive lookup failed, retrying",
				slog.String("domain", domainName),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		},
	}, func() error {
		var reqErr error
		body, reqErr = c.get(ctx, endpoint, domainName)
		return reqErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive lookup failed")
		var unavailable *domain.ServiceUnavailableError
		if errors.As(err, &unavailable) {
			telemetry.ArchiveRequests.WithLabelValues("unavailable").Inc()
		} else {
			telemetry.ArchiveRequests.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	snaps, err := parseCDXRows(body)
	if err != nil {
		telemetry.ArchiveRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed CDX response")
		return nil, fmt.Errorf("parse CDX response for %s: %w", domainName, err)
	}
	if len(snaps) == 0 {
		telemetry.ArchiveRequests.WithLabelValues("empty").Inc()
		return nil, &domain.NoSnapshotsError{Domain: domainName}
	}

	telemetry.ArchiveRequests.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("archive.snapshots", len(snaps)))
	return c.summarize(domainName, snaps), nil
}

func (c *CDXClient) get(ctx context.Context, endpoint, domainName string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build CDX request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ServiceUnavailableError{Domain: domainName, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &domain.ServiceUnavailableError{
			Domain: domainName,
			Cause:  fmt.Errorf("CDX server returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CDX request for %s: unexpected status %d", domainName, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ServiceUnavailableError{Domain: domainName, Cause: err}
	}
	return body, nil
}

// parseCDXRows decodes the CDX JSON form: an array of string arrays whose
// first row is the column header.
func parseCDXRows(body []byte) ([]domain.Snapshot, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	snaps := make([]domain.Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		s := domain.Snapshot{Timestamp: row[0]}
		if len(row) > 1 {
			s.Digest = row[1]
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

func (c *CDXClient) summarize(domainName string, snaps []domain.Snapshot) *domain.RawHistory {
	h := &domain.RawHistory{
		Domain:         domainName,
		TotalSnapshots: len(snaps),
		TimemapCount:   len(snaps),
		Snapshots:      snaps,
	}

	oldest, newest := "", ""
	for _, s := range snaps {
		if ts, err := time.Parse(timestampLayout, s.Timestamp); err == nil {
			if h.FirstSnapshotDate == nil || ts.Before(*h.FirstSnapshotDate) {
				t := ts
				h.FirstSnapshotDate = &t
				oldest = s.Timestamp
			}
			if h.LastSnapshotDate == nil || ts.After(*h.LastSnapshotDate) {
				t := ts
				h.LastSnapshotDate = &t
				newest = s.Timestamp
			}
		}
	}
	if oldest != "" {
		h.OldestSnapshotURL = fmt.Sprintf("%s/web/%s/http://%s/", c.baseURL, oldest, domainName)
	}
	if newest != "" {
		h.NewestSnapshotURL = fmt.Sprintf("%s/web/%s/http://%s/", c.baseURL, newest, domainName)
	}
	return h
}
