package newsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizintel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSource(baseURL string) *Source {
	return New(Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		UserAgent:      "BizIntel/test",
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, testLogger())
}

func TestFetchArticles(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		gotQuery = map[string]string{
			"q":        r.URL.Query().Get("q"),
			"pageSize": r.URL.Query().Get("pageSize"),
			"sortBy":   r.URL.Query().Get("sortBy"),
			"apiKey":   r.URL.Query().Get("apiKey"),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"totalResults": 2,
			"articles": []map[string]any{
				{
					"source":      map[string]any{"id": nil, "name": "The Verge"},
					"title":       "AI chips sell out",
					"description": "Demand outpaces supply.",
					"url":         "https://example.com/chips",
					"publishedAt": "2025-05-01T10:00:00Z",
				},
				{
					"source":      map[string]any{"id": "wired", "name": "Wired"},
					"title":       "Model release",
					"description": nil,
					"url":         "https://example.com/model",
					"publishedAt": "2025-04-30T08:00:00Z",
				},
			},
		})
	}))
	defer srv.Close()

	articles, err := newTestSource(srv.URL).FetchArticles(context.Background(), "AI", 5)

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "AI", gotQuery["q"])
	assert.Equal(t, "5", gotQuery["pageSize"])
	assert.Equal(t, "publishedAt", gotQuery["sortBy"])
	assert.Equal(t, "test-key", gotQuery["apiKey"])

	assert.Equal(t, domain.Article{
		Title:       "AI chips sell out",
		Description: "Demand outpaces supply.",
		URL:         "https://example.com/chips",
		Source:      domain.SourceNewsAPI,
		PublishedAt: "2025-05-01T10:00:00Z",
	}, articles[0])
	assert.Empty(t, articles[1].Description)
}

func TestFetchArticles_CapsAtCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]any, 0, 4)
		for i := 0; i < 4; i++ {
			items = append(items, map[string]any{"title": "t", "url": "https://example.com/" + string(rune('a'+i))})
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "articles": items})
	}))
	defer srv.Close()

	articles, err := newTestSource(srv.URL).FetchArticles(context.Background(), "AI", 2)

	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestFetchArticles_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":"error","code":"rateLimited"}`))
	}))
	defer srv.Close()

	articles, err := newTestSource(srv.URL).FetchArticles(context.Background(), "AI", 5)

	require.Error(t, err)
	assert.Nil(t, articles)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "unexpected status: 429")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchArticles_RecoversAfterTransientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"articles": []map[string]any{{"title": "ok", "url": "https://example.com/ok"}},
		})
	}))
	defer srv.Close()

	articles, err := newTestSource(srv.URL).FetchArticles(context.Background(), "AI", 5)

	require.NoError(t, err)
	assert.Len(t, articles, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchArticles_APIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"code":    "apiKeyInvalid",
			"message": "Your API key is invalid",
		})
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).FetchArticles(context.Background(), "AI", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestFetchArticles_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).FetchArticles(context.Background(), "AI", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestCalculateBackoff(t *testing.T) {
	s := &Source{initialBackoff: time.Second, maxBackoff: 5 * time.Second}

	assert.Equal(t, time.Second, s.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, s.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, s.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, s.calculateBackoff(4))
}
