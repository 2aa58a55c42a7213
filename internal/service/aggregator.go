package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"bizintel/internal/domain"
)

// MaxPerSource caps how many articles a single provider contributes to an
// aggregated result.
const MaxPerSource = 3

// Aggregator merges several news sources into one deduplicated, fairly
// sampled, recency ordered list.
type Aggregator struct {
	sources []Source
	logger  *slog.Logger
	now     func() time.Time
}

// NewAggregator returns an aggregator that queries sources in the given order.
func NewAggregator(sources []Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		sources: sources,
		logger:  logger.With("component", "aggregator"),
		now:     time.Now,
	}
}

// Sources returns the names of the registered providers in fan-out order.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	return names
}

// Aggregate returns at most count articles about topic from the selected
// sources. An empty selection queries every registered source. Provider
// failures are logged and never returned.
func (a *Aggregator) Aggregate(ctx context.Context, topic string, count int, sources []string) []domain.Article {
	if count <= 0 {
		return []domain.Article{}
	}

	selected := a.selection(sources)

	var combined []domain.Article
	for _, src := range a.sources {
		name := src.Name()
		if !selected[name] {
			continue
		}

		articles, err := fetchSafely(ctx, src, topic, count)
		if err != nil {
			a.logger.Error("source fetch failed", "source", name, "topic", topic, "error", err)
			continue
		}

		a.logger.Debug("fetched articles", "source", name, "count", len(articles))
		combined = append(combined, articles...)
	}

	// Missing sources are only reported here; bucketing applies the default.
	for _, article := range combined {
		if article.Source == "" {
			a.logger.Warn("missing source for article", "title", article.Title)
		}
	}

	deduped := Deduplicate(combined, a.now)
	balanced := SampleBySource(deduped, MaxPerSource)
	SortByRecency(balanced)

	if len(balanced) > count {
		balanced = balanced[:count]
	}

	a.logger.Info("aggregation complete",
		"topic", topic,
		"fetched", len(combined),
		"deduped", len(deduped),
		"returned", len(balanced),
	)

	return balanced
}

func (a *Aggregator) selection(sources []string) map[string]bool {
	selected := make(map[string]bool, len(a.sources))
	if len(sources) == 0 {
		for _, s := range a.sources {
			selected[s.Name()] = true
		}
		return selected
	}
	for _, name := range sources {
		selected[name] = true
	}
	return selected
}

// fetchSafely isolates one provider call so a panic inside it is reported
// like any other fetch error.
func fetchSafely(ctx context.Context, src Source, topic string, count int) (articles []domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			articles = nil
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()

	return src.FetchArticles(ctx, topic, count)
}

// Deduplicate keeps the first article seen for each non-empty URL. Articles
// without a URL are always kept. Kept articles missing a publication time get
// the current time.
func Deduplicate(articles []domain.Article, now func() time.Time) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	deduped := make([]domain.Article, 0, len(articles))

	for _, article := range articles {
		if article.URL != "" {
			if _, ok := seen[article.URL]; ok {
				continue
			}
			seen[article.URL] = struct{}{}
		}

		if article.PublishedAt == "" {
			article.PublishedAt = now().UTC().Format(time.RFC3339Nano)
		}
		deduped = append(deduped, article)
	}

	return deduped
}

// SampleBySource groups articles by source in order of first appearance and
// keeps at most limit articles from each group.
func SampleBySource(articles []domain.Article, limit int) []domain.Article {
	var order []string
	buckets := make(map[string][]domain.Article)

	for _, article := range articles {
		source := article.Source
		if source == "" {
			source = domain.SourceUnknown
		}
		if _, ok := buckets[source]; !ok {
			order = append(order, source)
		}
		buckets[source] = append(buckets[source], article)
	}

	balanced := make([]domain.Article, 0, len(articles))
	for _, source := range order {
		group := buckets[source]
		if len(group) > limit {
			group = group[:limit]
		}
		balanced = append(balanced, group...)
	}

	return balanced
}

// SortByRecency orders articles newest first. Unparseable dates sort last and
// ties keep their input order.
func SortByRecency(articles []domain.Article) {
	type keyed struct {
		article domain.Article
		at      time.Time
	}

	items := make([]keyed, len(articles))
	for i, article := range articles {
		items[i] = keyed{article: article, at: ParseOrMin(article.PublishedAt)}
	}

	slices.SortStableFunc(items, func(x, y keyed) int {
		return y.at.Compare(x.at)
	})

	for i, item := range items {
		articles[i] = item.article
	}
}
