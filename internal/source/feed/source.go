package feed

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"bizintel/internal/domain"
)

const (
	DefaultCNBCURL       = "https://www.cnbc.com/id/100003114/device/rss/rss.html"
	DefaultGoogleNewsURL = "https://news.google.com/rss/search"

	techCrunchSite = "site:techcrunch.com"
	reutersSites   = "site:reuters.com/technology OR site:reuters.com/world"
)

// Source is an RSS backed news provider. Items are filtered client-side by
// topic and returned in feed order.
type Source struct {
	name    string
	feedURL func(topic string) string
	fetcher *fetcher
	logger  *slog.Logger
}

// NewCNBC reads the CNBC top news feed at feedURL.
func NewCNBC(feedURL string, cfg Config, logger *slog.Logger) *Source {
	return newSource(domain.SourceCNBC, func(string) string { return feedURL }, cfg, logger)
}

// NewTechCrunch searches TechCrunch through Google News.
func NewTechCrunch(googleNewsURL string, cfg Config, logger *slog.Logger) *Source {
	return newSource(domain.SourceTechCrunch, func(topic string) string {
		return googleNewsSearch(googleNewsURL, techCrunchSite+" "+topic)
	}, cfg, logger)
}

// NewReuters searches the Reuters technology and world sections through
// Google News.
func NewReuters(googleNewsURL string, cfg Config, logger *slog.Logger) *Source {
	return newSource(domain.SourceReuters, func(topic string) string {
		return googleNewsSearch(googleNewsURL, reutersSites+" "+topic)
	}, cfg, logger)
}

func newSource(name string, feedURL func(string) string, cfg Config, logger *slog.Logger) *Source {
	return &Source{
		name:    name,
		feedURL: feedURL,
		fetcher: newFetcher(cfg),
		logger:  logger.With("source", name),
	}
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) FetchArticles(ctx context.Context, topic string, count int) ([]domain.Article, error) {
	if count <= 0 {
		return nil, nil
	}

	items, err := s.fetcher.fetch(ctx, s.feedURL(topic))
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, count)
	for _, item := range items {
		if !matchesTopic(item, topic) {
			continue
		}
		articles = append(articles, toArticle(item, s.name))
		if len(articles) == count {
			break
		}
	}

	s.logger.Debug("fetched articles", "topic", topic, "items", len(items), "matched", len(articles))
	return articles, nil
}

func googleNewsSearch(base, query string) string {
	return base + "?" + url.Values{"q": {strings.TrimSpace(query)}}.Encode()
}

func matchesTopic(item *gofeed.Item, topic string) bool {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Description)
	return strings.Contains(text, topic)
}

func toArticle(item *gofeed.Item, source string) domain.Article {
	return domain.Article{
		Title:       item.Title,
		Description: item.Description,
		URL:         item.Link,
		Source:      source,
		PublishedAt: item.Published,
	}
}
