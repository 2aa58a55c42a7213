package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"bizintel/internal/domain"
)

// Source is a single news provider.
type Source interface {
	Name() string
	FetchArticles(ctx context.Context, topic string, count int) ([]domain.Article, error)
}

type FundingSource interface {
	FetchFunding(ctx context.Context, count int) ([]domain.Article, error)
}

type NewsAggregator interface {
	Aggregate(ctx context.Context, topic string, count int, sources []string) []domain.Article
}

type MarketData interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error)
	Peers(ctx context.Context, symbol string) ([]string, error)
}

type Summarizer interface {
	SummarizeArticle(ctx context.Context, article domain.Article) (string, error)
	Answer(ctx context.Context, question, contextText string) (string, error)
	SummarizeDocument(ctx context.Context, text string) (string, error)
}

type ReportStore interface {
	Save(ctx context.Context, report *domain.Report) (int64, error)
	Latest(ctx context.Context, persona string) (*domain.Report, error)
}

type RunStateStore interface {
	Get(ctx context.Context, persona string) (*domain.RunState, error)
	Update(ctx context.Context, state *domain.RunState) error
}

type Publisher interface {
	Publish(ctx context.Context, report *domain.Report) error
	Close() error
}
