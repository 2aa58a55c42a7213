package feed

import (
	"context"
	"log/slog"
	"strings"

	"bizintel/internal/domain"
)

const DefaultFundingURL = "https://news.google.com/rss/search?q=site:techcrunch.com+funding+OR+raises+OR+venture+capital"

var fundingKeywords = []string{
	"raises",
	"funding",
	"series a",
	"series b",
	"seed",
	"venture capital",
	"round",
}

// FundingSource reads a funding news feed and keeps only items whose title
// or description mentions a funding keyword.
type FundingSource struct {
	feedURL string
	fetcher *fetcher
	logger  *slog.Logger
}

func NewFundingSource(feedURL string, cfg Config, logger *slog.Logger) *FundingSource {
	return &FundingSource{
		feedURL: feedURL,
		fetcher: newFetcher(cfg),
		logger:  logger.With("source", "funding"),
	}
}

func (s *FundingSource) FetchFunding(ctx context.Context, count int) ([]domain.Article, error) {
	if count <= 0 {
		return []domain.Article{}, nil
	}

	items, err := s.fetcher.fetch(ctx, s.feedURL)
	if err != nil {
		return nil, err
	}

	funding := make([]domain.Article, 0, count)
	for _, item := range items {
		if !IsFundingNews(item.Title + " " + item.Description) {
			continue
		}
		funding = append(funding, toArticle(item, domain.SourceTechCrunch))
		if len(funding) == count {
			break
		}
	}

	s.logger.Debug("fetched funding news", "items", len(items), "matched", len(funding))
	return funding, nil
}

// IsFundingNews reports whether text contains any funding keyword,
// ignoring case.
func IsFundingNews(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range fundingKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
