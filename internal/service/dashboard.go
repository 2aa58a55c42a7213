package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"bizintel/internal/domain"
)

var ErrUnknownPersona = errors.New("unknown persona")

type FounderPrefs struct {
	Topic        string
	Count        int
	FundingCount int
	Sources      []string
}

type AnalystPrefs struct {
	Topic          string
	Count          int
	Sources        []string
	Tickers        []string
	TrendThreshold float64
	Questions      []string
}

type ResearcherPrefs struct {
	Ticker    string
	Count     int
	Sources   []string
	PeerLimit int
}

// Preferences configures what each persona dashboard looks at.
type Preferences struct {
	Enabled    []string
	Founder    FounderPrefs
	Analyst    AnalystPrefs
	Researcher ResearcherPrefs
}

// DashboardDeps groups the collaborators of DashboardService. Publisher may
// be nil.
type DashboardDeps struct {
	FounderNews NewsAggregator
	AnalystNews NewsAggregator
	Funding     FundingSource
	Market      MarketData
	Summarizer  Summarizer
	Reports     ReportStore
	RunState    RunStateStore
	Publisher   Publisher
}

// DashboardService builds, stores and publishes persona reports.
type DashboardService struct {
	deps   DashboardDeps
	prefs  Preferences
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(deps DashboardDeps, prefs Preferences, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		deps:   deps,
		prefs:  prefs,
		logger: logger.With("component", "dashboard"),
		now:    time.Now,
	}
}

// Personas returns the personas RunAll builds.
func (s *DashboardService) Personas() []string {
	return s.prefs.Enabled
}

// Run builds the report for persona, stores it and publishes it. Failures of
// individual pipeline steps leave the matching report fields empty.
func (s *DashboardService) Run(ctx context.Context, persona string) (*domain.Report, error) {
	report, _, err := s.run(ctx, persona)
	return report, err
}

// RunAll runs every enabled persona and keeps going when one of them fails.
func (s *DashboardService) RunAll(ctx context.Context) ([]domain.RunStats, error) {
	var (
		stats []domain.RunStats
		errs  []error
	)

	for _, persona := range s.prefs.Enabled {
		start := time.Now()

		report, published, err := s.run(ctx, persona)
		if err != nil {
			s.logger.Error("dashboard run failed", "persona", persona, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", persona, err))
			continue
		}

		st := domain.RunStats{
			Persona:   persona,
			ReportID:  report.ID,
			Articles:  len(report.MarketNews),
			Funding:   len(report.FundingUpdates),
			Quotes:    len(report.Quotes),
			Alerts:    len(report.TrendAlerts),
			Published: published,
			Duration:  time.Since(start),
		}
		stats = append(stats, st)

		s.logger.Info("dashboard run completed",
			"persona", st.Persona,
			"report_id", st.ReportID,
			"articles", st.Articles,
			"funding", st.Funding,
			"quotes", st.Quotes,
			"alerts", st.Alerts,
			"published", st.Published,
			"duration", st.Duration,
		)
	}

	return stats, errors.Join(errs...)
}

func (s *DashboardService) run(ctx context.Context, persona string) (*domain.Report, bool, error) {
	var report *domain.Report

	switch persona {
	case domain.PersonaFounder:
		report = s.buildFounder(ctx)
	case domain.PersonaAnalyst:
		report = s.buildAnalyst(ctx)
	case domain.PersonaResearcher:
		report = s.buildResearcher(ctx)
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownPersona, persona)
	}

	report.Persona = persona
	report.GeneratedAt = s.now().UTC()

	id, err := s.deps.Reports.Save(ctx, report)
	if err != nil {
		return nil, false, fmt.Errorf("save report: %w", err)
	}
	report.ID = id

	s.recordRun(ctx, report)
	published := s.publish(ctx, report)

	return report, published, nil
}

func (s *DashboardService) buildFounder(ctx context.Context) *domain.Report {
	p := s.prefs.Founder
	report := &domain.Report{Topic: p.Topic}

	articles := s.deps.FounderNews.Aggregate(ctx, p.Topic, p.Count, p.Sources)
	report.MarketNews = s.summarizeAll(ctx, articles)

	funding, err := s.deps.Funding.FetchFunding(ctx, p.FundingCount)
	if err != nil {
		s.logger.Warn("funding fetch failed", "error", err)
	} else {
		report.FundingUpdates = funding
	}

	return report
}

func (s *DashboardService) buildAnalyst(ctx context.Context) *domain.Report {
	p := s.prefs.Analyst
	report := &domain.Report{Topic: p.Topic}

	report.Quotes = s.quotes(ctx, p.Tickers)
	report.TrendAlerts = TrendAlerts(report.Quotes, p.TrendThreshold)

	articles := s.deps.AnalystNews.Aggregate(ctx, p.Topic, p.Count, p.Sources)
	report.MarketNews = s.summarizeAll(ctx, articles)

	contextText := insightContext(report.Quotes, articles)
	for _, q := range p.Questions {
		answer, err := s.deps.Summarizer.Answer(ctx, q, contextText)
		if err != nil {
			s.logger.Warn("insight failed", "question", q, "error", err)
			continue
		}
		report.Insights = append(report.Insights, domain.Insight{Question: q, Answer: answer})
	}

	return report
}

func (s *DashboardService) buildResearcher(ctx context.Context) *domain.Report {
	p := s.prefs.Researcher
	report := &domain.Report{Topic: p.Ticker}

	profile, err := s.deps.Market.CompanyProfile(ctx, p.Ticker)
	if err != nil {
		s.logger.Warn("company profile failed", "ticker", p.Ticker, "error", err)
	} else {
		report.Company = profile
	}

	report.Quotes = s.quotes(ctx, []string{p.Ticker})

	peers, err := s.deps.Market.Peers(ctx, p.Ticker)
	if err != nil {
		s.logger.Warn("peer lookup failed", "ticker", p.Ticker, "error", err)
	}
	if p.PeerLimit > 0 && len(peers) > p.PeerLimit {
		peers = peers[:p.PeerLimit]
	}
	report.Peers = s.quotes(ctx, peers)

	articles := s.deps.AnalystNews.Aggregate(ctx, p.Ticker, p.Count, p.Sources)
	for _, a := range articles {
		report.MarketNews = append(report.MarketNews, domain.SummarizedArticle{Article: a})
	}

	if text := documentText(articles); text != "" {
		deepDive, err := s.deps.Summarizer.SummarizeDocument(ctx, text)
		if err != nil {
			s.logger.Warn("deep dive failed", "ticker", p.Ticker, "error", err)
		} else {
			report.DeepDive = deepDive
		}
	}

	if len(report.Peers) > 0 {
		question := fmt.Sprintf("How does %s compare with its peers today?", p.Ticker)
		answer, err := s.deps.Summarizer.Answer(ctx, question, insightContext(slices.Concat(report.Quotes, report.Peers), nil))
		if err != nil {
			s.logger.Warn("peer insight failed", "ticker", p.Ticker, "error", err)
		} else {
			report.PeerInsight = answer
		}
	}

	return report
}

func (s *DashboardService) summarizeAll(ctx context.Context, articles []domain.Article) []domain.SummarizedArticle {
	out := make([]domain.SummarizedArticle, 0, len(articles))
	for _, a := range articles {
		summary, err := s.deps.Summarizer.SummarizeArticle(ctx, a)
		if err != nil {
			s.logger.Warn("article summary failed", "title", a.Title, "error", err)
		}
		out = append(out, domain.SummarizedArticle{Article: a, Summary: summary})
	}
	return out
}

func (s *DashboardService) quotes(ctx context.Context, symbols []string) []domain.Quote {
	var out []domain.Quote
	for _, sym := range symbols {
		q, err := s.deps.Market.Quote(ctx, sym)
		if err != nil {
			s.logger.Warn("quote failed", "symbol", sym, "error", err)
			continue
		}
		out = append(out, *q)
	}
	return out
}

func (s *DashboardService) recordRun(ctx context.Context, report *domain.Report) {
	state, err := s.deps.RunState.Get(ctx, report.Persona)
	if err != nil {
		s.logger.Warn("load run state failed", "persona", report.Persona, "error", err)
		state = &domain.RunState{Persona: report.Persona}
	}

	state.LastRunAt = report.GeneratedAt
	state.LastReportID = report.ID
	state.TotalRuns++

	if err := s.deps.RunState.Update(ctx, state); err != nil {
		s.logger.Warn("update run state failed", "persona", report.Persona, "error", err)
	}
}

func (s *DashboardService) publish(ctx context.Context, report *domain.Report) bool {
	if s.deps.Publisher == nil {
		return false
	}
	if err := s.deps.Publisher.Publish(ctx, report); err != nil {
		s.logger.Warn("publish report failed", "persona", report.Persona, "report_id", report.ID, "error", err)
		return false
	}
	return true
}

// TrendAlerts flags quotes whose daily move is at least threshold percent
// in either direction.
func TrendAlerts(quotes []domain.Quote, threshold float64) []domain.TrendAlert {
	var alerts []domain.TrendAlert
	for _, q := range quotes {
		if math.Abs(q.PercentChange) < threshold {
			continue
		}
		direction := "up"
		if q.PercentChange < 0 {
			direction = "down"
		}
		alerts = append(alerts, domain.TrendAlert{
			Symbol:        q.Symbol,
			PercentChange: q.PercentChange,
			Direction:     direction,
		})
	}
	return alerts
}

func insightContext(quotes []domain.Quote, articles []domain.Article) string {
	var sb strings.Builder
	if len(quotes) > 0 {
		sb.WriteString("Quotes:\n")
		for _, q := range quotes {
			fmt.Fprintf(&sb, "- %s: %.2f (%+.2f%%), open %.2f, high %.2f, low %.2f\n",
				q.Symbol, q.Current, q.PercentChange, q.Open, q.High, q.Low)
		}
	}
	if len(articles) > 0 {
		sb.WriteString("News:\n")
		for _, a := range articles {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", a.Source, a.Title, a.Description)
		}
	}
	return sb.String()
}

func documentText(articles []domain.Article) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		text := strings.TrimSpace(a.Title + ". " + a.Description)
		if text == "." {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
