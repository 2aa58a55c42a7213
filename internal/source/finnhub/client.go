package finnhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"bizintel/internal/domain"
)

const newsCategory = "general"

var ErrNoQuote = errors.New("no quote data")

// Client wraps the Finnhub REST API. It serves both as a news source and as
// the market data provider for dashboards.
type Client struct {
	api    *finnhub.DefaultApiService
	logger *slog.Logger
}

// New creates a Finnhub client. httpClient may be nil.
func New(apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &Client{
		api:    finnhub.NewAPIClient(cfg).DefaultApi,
		logger: logger.With("source", domain.SourceFinnhub),
	}
}

func (c *Client) Name() string {
	return domain.SourceFinnhub
}

// FetchArticles reads general market news and keeps items whose headline or
// summary mention topic.
func (c *Client) FetchArticles(ctx context.Context, topic string, count int) ([]domain.Article, error) {
	if count <= 0 {
		return nil, nil
	}

	res, _, err := c.api.MarketNews(ctx).Category(newsCategory).Execute()
	if err != nil {
		return nil, fmt.Errorf("market news: %w", err)
	}

	topic = strings.ToLower(strings.TrimSpace(topic))
	articles := make([]domain.Article, 0, count)

	for _, news := range res {
		text := strings.ToLower(news.GetHeadline() + " " + news.GetSummary())
		if topic != "" && !strings.Contains(text, topic) {
			continue
		}

		a := domain.Article{
			Title:       news.GetHeadline(),
			Description: news.GetSummary(),
			URL:         news.GetUrl(),
			Source:      domain.SourceFinnhub,
		}
		if news.Datetime != nil {
			a.PublishedAt = time.Unix(*news.Datetime, 0).UTC().Format(time.RFC3339)
		}

		articles = append(articles, a)
		if len(articles) == count {
			break
		}
	}

	c.logger.Debug("fetched articles", "topic", topic, "items", len(res), "matched", len(articles))
	return articles, nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q, _, err := c.api.Quote(ctx).Symbol(symbol).Execute()
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}

	// Finnhub answers unknown symbols with an all-zero quote.
	if q.GetC() == 0 && q.GetPc() == 0 {
		return nil, fmt.Errorf("quote %s: %w", symbol, ErrNoQuote)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Current:       float64(q.GetC()),
		Change:        float64(q.GetD()),
		PercentChange: float64(q.GetDp()),
		High:          float64(q.GetH()),
		Low:           float64(q.GetL()),
		Open:          float64(q.GetO()),
		PreviousClose: float64(q.GetPc()),
	}, nil
}

func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	p, _, err := c.api.CompanyProfile2(ctx).Symbol(symbol).Execute()
	if err != nil {
		return nil, fmt.Errorf("company profile %s: %w", symbol, err)
	}

	return &domain.CompanyProfile{
		Symbol:    symbol,
		Name:      p.GetName(),
		Industry:  p.GetFinnhubIndustry(),
		Country:   p.GetCountry(),
		Exchange:  p.GetExchange(),
		MarketCap: float64(p.GetMarketCapitalization()),
		WebURL:    p.GetWeburl(),
	}, nil
}

// Peers returns companies in the same industry, excluding symbol itself.
func (c *Client) Peers(ctx context.Context, symbol string) ([]string, error) {
	res, _, err := c.api.CompanyPeers(ctx).Symbol(symbol).Execute()
	if err != nil {
		return nil, fmt.Errorf("company peers %s: %w", symbol, err)
	}

	peers := make([]string, 0, len(res))
	for _, p := range res {
		if p == "" || strings.EqualFold(p, symbol) {
			continue
		}
		peers = append(peers, p)
	}
	return peers, nil
}
