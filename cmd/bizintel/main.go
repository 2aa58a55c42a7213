package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"bizintel/internal/api"
	"bizintel/internal/config"
	"bizintel/internal/llm"
	"bizintel/internal/publisher"
	"bizintel/internal/scheduler"
	"bizintel/internal/service"
	"bizintel/internal/source/feed"
	"bizintel/internal/source/finnhub"
	"bizintel/internal/source/newsapi"
	"bizintel/internal/storage/postgres"
)

type Options struct {
	Config  string `short:"c" long:"config" env:"BIZINTEL_CONFIG" default:"config.yaml" description:"Path to config file"`
	Once    bool   `long:"once" description:"Build dashboards once and exit"`
	Persona string `long:"persona" description:"Build only this persona (with --once)"`
	Listen  string `long:"listen" env:"BIZINTEL_LISTEN" description:"HTTP listen address, overrides config"`
}

const shutdownTimeout = 10 * time.Second

func main() {
	var opts Options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if opts.Listen != "" {
		cfg.HTTP.Listen = opts.Listen
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	txManager := postgres.NewTransactionManager(db)
	historyStore := postgres.NewHistoryStore(db)
	reportStore := postgres.NewReportStore(db, txManager, historyStore)
	runStateStore := postgres.NewRunStateStore(db)

	feedCfg := feed.Config{UserAgent: cfg.Sources.UserAgent, Timeout: cfg.Sources.Timeout}
	newsAPI := newsapi.New(newsapi.Config{
		BaseURL:        cfg.Sources.NewsAPI.BaseURL,
		APIKey:         cfg.Sources.NewsAPI.APIKey,
		UserAgent:      cfg.Sources.UserAgent,
		Timeout:        cfg.Sources.Timeout,
		MaxAttempts:    cfg.Sources.Retry.MaxAttempts,
		InitialBackoff: cfg.Sources.Retry.InitialBackoff,
		MaxBackoff:     cfg.Sources.Retry.MaxBackoff,
	}, logger)
	cnbc := feed.NewCNBC(cfg.Sources.CNBCFeedURL, feedCfg, logger)
	techCrunch := feed.NewTechCrunch(cfg.Sources.GoogleNewsURL, feedCfg, logger)
	reuters := feed.NewReuters(cfg.Sources.GoogleNewsURL, feedCfg, logger)
	finnhubClient := finnhub.New(cfg.Sources.FinnhubAPIKey, &http.Client{Timeout: cfg.Sources.Timeout}, logger)
	funding := feed.NewFundingSource(cfg.Sources.FundingFeed, feedCfg, logger)

	founderNews := service.NewAggregator([]service.Source{newsAPI, cnbc, techCrunch, reuters}, logger)
	analystNews := service.NewAggregator([]service.Source{newsAPI, cnbc, techCrunch, reuters, finnhubClient}, logger)

	completer, err := llm.NewCompleter(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		logger.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}
	summarizer := llm.NewSummarizer(completer, llm.SummarizerConfig{
		PoolSize:  cfg.LLM.PoolSize,
		CallDelay: cfg.LLM.CallDelay,
	}, logger)

	dashboards := service.NewDashboardService(service.DashboardDeps{
		FounderNews: founderNews,
		AnalystNews: analystNews,
		Funding:     funding,
		Market:      finnhubClient,
		Summarizer:  summarizer,
		Reports:     reportStore,
		RunState:    runStateStore,
		Publisher:   pub,
	}, preferences(cfg.Personas), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if opts.Once {
		if err := runOnce(ctx, dashboards, opts.Persona, cfg.Schedule.RunTimeout, logger); err != nil {
			logger.Error("dashboard run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sched, err := scheduler.New(dashboards, cfg.Schedule.Spec, cfg.Schedule.RunTimeout, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(analystNews, funding, dashboards, reportStore, historyStore, logger)
	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           api.NewServer(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting bizintel",
		"personas", dashboards.Personas(),
		"schedule", cfg.Schedule.Spec,
		"llm_provider", cfg.LLM.Provider,
		"rabbitmq", cfg.RabbitMQ.Enabled,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}

func runOnce(ctx context.Context, dashboards *service.DashboardService, persona string, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if persona != "" {
		report, err := dashboards.Run(ctx, persona)
		if err != nil {
			return err
		}
		logger.Info("dashboard built", "persona", persona, "report_id", report.ID)
		return nil
	}

	_, err := dashboards.RunAll(ctx)
	return err
}

func preferences(p config.PersonasConfig) service.Preferences {
	return service.Preferences{
		Enabled: p.Enabled,
		Founder: service.FounderPrefs{
			Topic:        p.Founder.Topic,
			Count:        p.Founder.Count,
			FundingCount: p.Founder.FundingCount,
			Sources:      p.Founder.Sources,
		},
		Analyst: service.AnalystPrefs{
			Topic:          p.Analyst.Topic,
			Count:          p.Analyst.Count,
			Sources:        p.Analyst.Sources,
			Tickers:        p.Analyst.Tickers,
			TrendThreshold: p.Analyst.TrendThreshold,
			Questions:      p.Analyst.Questions,
		},
		Researcher: service.ResearcherPrefs{
			Ticker:    p.Researcher.Ticker,
			Count:     p.Researcher.Count,
			Sources:   p.Researcher.Sources,
			PeerLimit: p.Researcher.PeerLimit,
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
