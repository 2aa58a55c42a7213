//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bizintel/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB

	reports  *ReportStore
	history  *HistoryStore
	runState *RunStateStore
	tx       *TransactionManager
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_reports.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db

	s.tx = NewTransactionManager(db)
	s.history = NewHistoryStore(db)
	s.reports = NewReportStore(db, s.tx, s.history)
	s.runState = NewRunStateStore(db)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM news_history")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM reports")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM run_state")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) report(persona string, at time.Time) *domain.Report {
	return &domain.Report{
		Persona:     persona,
		Topic:       "Startups",
		GeneratedAt: at,
		MarketNews: []domain.SummarizedArticle{
			{Article: domain.Article{Title: "A", URL: "https://example.com/a", Source: domain.SourceNewsAPI, PublishedAt: "2025-05-01T10:00:00Z"}, Summary: "• a"},
			{Article: domain.Article{Title: "B", URL: "https://example.com/b"}},
		},
		FundingUpdates: []domain.Article{
			{Title: "C raises $1M", URL: "https://example.com/c", Source: domain.SourceTechCrunch},
		},
	}
}

func (s *PostgresIntegrationSuite) TestReportStore_SaveAndLatest() {
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.reports.Save(s.ctx, s.report(domain.PersonaFounder, now.Add(-time.Hour)))
	s.Require().NoError(err)
	id, err := s.reports.Save(s.ctx, s.report(domain.PersonaFounder, now))
	s.Require().NoError(err)

	latest, err := s.reports.Latest(s.ctx, domain.PersonaFounder)
	s.Require().NoError(err)
	s.Equal(id, latest.ID)
	s.True(now.Equal(latest.GeneratedAt))
	s.Require().Len(latest.MarketNews, 2)
	s.Equal("• a", latest.MarketNews[0].Summary)
	s.Len(latest.FundingUpdates, 1)
}

func (s *PostgresIntegrationSuite) TestReportStore_SaveWritesHistory() {
	id, err := s.reports.Save(s.ctx, s.report(domain.PersonaFounder, time.Now()))
	s.Require().NoError(err)

	entries, err := s.history.ByReport(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("A", entries[0].Title)
	s.Equal(domain.SourceUnknown, entries[1].Source)
	s.Equal(domain.SourceTechCrunch, entries[2].Source)
	s.False(entries[0].SavedAt.IsZero())
}

func (s *PostgresIntegrationSuite) TestReportStore_LatestNotFound() {
	_, err := s.reports.Latest(s.ctx, domain.PersonaAnalyst)
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestHistoryStore_RecentFiltersBySource() {
	_, err := s.reports.Save(s.ctx, s.report(domain.PersonaFounder, time.Now()))
	s.Require().NoError(err)

	all, err := s.history.Recent(s.ctx, nil, 10)
	s.Require().NoError(err)
	s.Len(all, 3)

	filtered, err := s.history.Recent(s.ctx, []string{domain.SourceTechCrunch}, 10)
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal("C raises $1M", filtered[0].Title)

	limited, err := s.history.Recent(s.ctx, nil, 2)
	s.Require().NoError(err)
	s.Len(limited, 2)
}

func (s *PostgresIntegrationSuite) TestRunStateStore_GetMissing() {
	state, err := s.runState.Get(s.ctx, domain.PersonaResearcher)
	s.Require().NoError(err)
	s.Equal(domain.PersonaResearcher, state.Persona)
	s.Zero(state.TotalRuns)
	s.True(state.LastRunAt.IsZero())
}

func (s *PostgresIntegrationSuite) TestRunStateStore_Upsert() {
	at := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.runState.Update(s.ctx, &domain.RunState{Persona: domain.PersonaAnalyst, LastRunAt: at, LastReportID: 1, TotalRuns: 1}))
	s.Require().NoError(s.runState.Update(s.ctx, &domain.RunState{Persona: domain.PersonaAnalyst, LastRunAt: at, LastReportID: 7, TotalRuns: 2}))

	state, err := s.runState.Get(s.ctx, domain.PersonaAnalyst)
	s.Require().NoError(err)
	s.Equal(int64(7), state.LastReportID)
	s.Equal(int64(2), state.TotalRuns)
	s.True(at.Equal(state.LastRunAt))
}

func (s *PostgresIntegrationSuite) TestTransaction_RollbackOnError() {
	err := s.tx.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := s.runState.Update(ctx, &domain.RunState{Persona: domain.PersonaFounder, LastRunAt: time.Now(), TotalRuns: 1}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Require().EqualError(err, "abort")

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM run_state"))
	s.Equal(0, count)
}
