package enricher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "openai/gpt-3.5-turbo"

	// maxContentChars caps the prompt deterministically before sending.
	// Roughly 3k tokens, well inside common context windows.
	maxContentChars = 15000

	systemPrompt = "You are an expert in website content analysis. Analyze the following text " +
		"from a website and provide a concise thematic summary. Identify the main topics, " +
		"keywords (up to 10), and suggest a primary category for the website " +
		"(e.g., E-commerce, Blog, News, Corporate, Technology, Health, etc.). " +
		"Respond in JSON format with keys: 'primary_category', 'main_topics' (list of strings), " +
		"'keywords' (list of strings), and 'summary' (a brief text summary)."
)

// Config holds LLM client settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// New returns the Enricher for the given config. With no API key configured
// it returns the degraded-mode implementation that answers immediately
// without network calls; the credential is checked once here, not per call.
func New(cfg Config, logger *slog.Logger) Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		logger.Warn("no LLM API key configured, thematic analysis runs in degraded mode")
		return unavailable{}
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &openRouterClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// unavailable is the degraded mode: a documented state, not an error
// condition.
type unavailable struct{}

func (unavailable) Analyze(_ context.Context, _, _ string) *domain.ThematicAnalysis {
	telemetry.EnrichRequests.WithLabelValues("degraded").Inc()
	return &domain.ThematicAnalysis{Error: "LLM API key not configured, thematic analysis skipped"}
}

type openRouterClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// parsedAnalysis mirrors the JSON shape the prompt asks the model for.
type parsedAnalysis struct {
	PrimaryCategory string   `json:"primary_category"`
	MainTopics      []string `json:"main_topics"`
	Keywords        []string `json:"keywords"`
	Summary         string   `json:"summary"`
}

func (c *openRouterClient) Analyze(ctx context.Context, text, domainName string) *domain.ThematicAnalysis {
	ctx, span := otel.Tracer("enricher").Start(ctx, "enricher.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("domain", domainName),
		attribute.String("llm.model", c.model),
	)

	result := &domain.ThematicAnalysis{ModelUsed: c.model}

	if strings.TrimSpace(text) == "" {
		result.Error = "no content provided for thematic analysis"
		return result
	}
	if len(text) > maxContentChars {
		c.logger.Info("truncating oversized content for enrichment",
			slog.String("domain", domainName),
			slog.Int("chars", len(text)),
		)
		text = text[:maxContentChars]
	}

	content, err := c.complete(ctx, text, domainName)
	if err != nil {
		telemetry.EnrichRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "enrichment call failed")
		c.logger.Warn("enrichment failed",
			slog.String("domain", domainName),
			slog.String("error", err.Error()),
		)
		result.Error = err.Error()
		return result
	}

	var parsed parsedAnalysis
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		// The model ignored the JSON instruction: keep the raw text so
		// nothing the user paid for is lost.
		telemetry.EnrichRequests.WithLabelValues("error").Inc()
		result.Error = "failed to parse LLM response: content was not valid JSON"
		result.Summary = content
		return result
	}

	telemetry.EnrichRequests.WithLabelValues("ok").Inc()
	result.PrimaryCategory = parsed.PrimaryCategory
	result.MainTopics = parsed.MainTopics
	result.Keywords = parsed.Keywords
	result.Summary = parsed.Summary
	return result
}

func (c *openRouterClient) complete(ctx context.Context, text, domainName string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analyze the following website content for domain %s:\n\n%s", domainName, text)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("LLM request timed out for %s", domainName)
		}
		return "", fmt.Errorf("LLM request for %s: %w", domainName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read LLM response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := string(body)
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return "", fmt.Errorf("LLM API error: status %d: %s", resp.StatusCode, detail)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode LLM response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("no content in LLM response message")
	}
	return parsed.Choices[0].Message.Content, nil
}
