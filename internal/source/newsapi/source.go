package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bizintel/internal/domain"
)

const maxErrorBody = 512

// Config holds NewsAPI source configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	UserAgent      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements service.Source for the NewsAPI keyword search endpoint.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new NewsAPI source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		userAgent:      cfg.UserAgent,
		maxAttempts:    max(cfg.MaxAttempts, 1),
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", domain.SourceNewsAPI),
	}
}

// Name returns the provider name.
func (s *Source) Name() string {
	return domain.SourceNewsAPI
}

// FetchArticles searches NewsAPI for topic, newest first.
func (s *Source) FetchArticles(ctx context.Context, topic string, count int) ([]domain.Article, error) {
	if count <= 0 {
		return nil, nil
	}

	resp, err := s.fetch(ctx, s.searchURL(topic, count))
	if err != nil {
		return nil, err
	}

	articles := s.transform(resp.Articles)
	if len(articles) > count {
		articles = articles[:count]
	}

	s.logger.Debug("fetched articles", "topic", topic, "count", len(articles))
	return articles, nil
}

func (s *Source) searchURL(topic string, count int) string {
	params := url.Values{}
	params.Set("q", topic)
	params.Set("pageSize", strconv.Itoa(count))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("apiKey", s.apiKey)
	return s.baseURL + "/v2/everything?" + params.Encode()
}

func (s *Source) fetch(ctx context.Context, url string) (*APIResponse, error) {
	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, url)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("unexpected status: %d: %s", resp.StatusCode, body)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if apiResp.Status == "error" {
		return nil, fmt.Errorf("api error %s: %s", apiResp.Code, apiResp.Message)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(items []APIArticle) []domain.Article {
	articles := make([]domain.Article, 0, len(items))

	for _, item := range items {
		article := domain.Article{
			Title:       item.Title,
			URL:         item.URL,
			Source:      domain.SourceNewsAPI,
			PublishedAt: item.PublishedAt,
		}
		if item.Description != nil {
			article.Description = *item.Description
		}
		articles = append(articles, article)
	}

	return articles
}
