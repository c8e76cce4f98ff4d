package enricher_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropscope/dropscope/internal/enricher"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	require.NoError(t, err)
	return body
}

func TestAnalyze_DegradedModeWithoutAPIKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	e := enricher.New(enricher.Config{BaseURL: srv.URL}, nil)
	res := e.Analyze(context.Background(), "some content", "example.com")

	assert.Contains(t, res.Error, "not configured")
	assert.Equal(t, int32(0), calls.Load(), "degraded mode must not perform network calls")
}

func TestAnalyze_ParsesStructuredResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write(completionBody(t, `{"primary_category":"Blog","main_topics":["gardening"],"keywords":["soil","compost"],"summary":"A gardening blog."}`))
	}))
	defer srv.Close()

	e := enricher.New(enricher.Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	res := e.Analyze(context.Background(), "about gardening", "examplegarden.com")

	assert.Empty(t, res.Error)
	assert.Equal(t, "Blog", res.PrimaryCategory)
	assert.Equal(t, []string{"gardening"}, res.MainTopics)
	assert.Equal(t, []string{"soil", "compost"}, res.Keywords)
	assert.Equal(t, "A gardening blog.", res.Summary)
	assert.NotEmpty(t, res.ModelUsed)
}

func TestAnalyze_NonJSONCompletionKeptAsSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(completionBody(t, "This site appears to be about cooking."))
	}))
	defer srv.Close()

	e := enricher.New(enricher.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	res := e.Analyze(context.Background(), "recipes", "food.example")

	assert.Contains(t, res.Error, "not valid JSON")
	assert.Equal(t, "This site appears to be about cooking.", res.Summary)
}

func TestAnalyze_TruncatesOversizedInput(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		gotLen = len(req.Messages[1].Content)
		w.Write(completionBody(t, `{"summary":"ok"}`))
	}))
	defer srv.Close()

	e := enricher.New(enricher.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	res := e.Analyze(context.Background(), strings.Repeat("x", 40000), "big.example")

	assert.Empty(t, res.Error)
	assert.Less(t, gotLen, 16000, "content must be truncated to the fixed cap plus the prompt preamble")
}

func TestAnalyze_EmptyContent(t *testing.T) {
	e := enricher.New(enricher.Config{APIKey: "k", BaseURL: "http://unused.invalid"}, nil)
	res := e.Analyze(context.Background(), "   ", "blank.example")
	assert.Contains(t, res.Error, "no content")
}

func TestAnalyze_APIErrorRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	e := enricher.New(enricher.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	res := e.Analyze(context.Background(), "content", "busy.example")

	assert.Contains(t, res.Error, "429")
	assert.Empty(t, res.Summary)
}

func TestAnalyze_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	e := enricher.New(enricher.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	res := e.Analyze(context.Background(), "content", "empty.example")

	assert.Contains(t, res.Error, "no content in LLM response")
}
