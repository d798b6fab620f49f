package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"manbo/internal/adapters/ai"
	"manbo/internal/adapters/config"
	"manbo/internal/adapters/errors/sentry"
	"manbo/internal/analysis"
	"manbo/internal/api"
	"manbo/internal/marketdata"
	"manbo/internal/repository/redis"
	"manbo/internal/tools"
	"manbo/internal/tools/fundamentals"
	"manbo/internal/tools/market"
	"manbo/internal/tools/news"
	"manbo/internal/tools/social"
	"manbo/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("starting %s (%s)", cfg.App.Name, cfg.App.Env)

	if cfg.ErrorTracking.Enabled && cfg.ErrorTracking.SentryDSN != "" {
		tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
		if err != nil {
			return fmt.Errorf("init error tracking: %w", err)
		}
		logger.SetErrorTracker(tracker)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = tracker.Flush(ctx)
		}()
	}

	providers, err := ai.BuildRegistry(cfg.AI)
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}
	log.Infof("model providers: %v", providers.List())

	toolRegistry := buildTools(cfg)

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	pipeline := analysis.NewPipeline(providers, toolRegistry, analysis.PipelineOptions{
		Models: map[string]string{
			"openai":   cfg.AI.OpenAIModel,
			"deepseek": cfg.AI.DeepSeekModel,
			"gemini":   cfg.AI.GeminiModel,
		},
		Analyst: analysis.AnalystOptions{
			MaxToolRounds: cfg.Analysis.MaxToolRounds,
			ToolTimeout:   cfg.Analysis.ToolTimeout,
			ModelTimeout:  cfg.AI.RequestTimeout,
			Temperature:   cfg.AI.Temperature,
			MaxTokens:     cfg.AI.MaxTokens,
		},
	})

	dispatcher := analysis.NewDispatcher(store, pipeline, analysis.DispatcherOptions{
		Workers:         cfg.Analysis.Workers,
		QueueSize:       cfg.Analysis.QueueSize,
		DefaultAnalysts: cfg.Analysis.Analysts,
		KnownRoles:      knownRoles(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Jobs run detached from the signal context so shutdown lets
	// in-flight analyses finish.
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	server := api.NewServer(cfg.Server, api.NewHandlers(dispatcher, store))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildTools(cfg *config.Config) *tools.Registry {
	registry := tools.NewRegistry()

	source := marketdata.NewStooqSource(0)
	registry.Register(market.NewMarketDataTool(source))
	registry.Register(fundamentals.NewFundamentalsTool(source))
	registry.Register(news.NewCompanyNewsTool(news.NewClient(cfg.News, 0)))
	registry.Register(social.NewSocialSentimentTool(social.NewClient(cfg.Social, 0)))

	return registry
}

func buildStore(cfg *config.Config) (analysis.Store, error) {
	if !cfg.Redis.Enabled {
		return analysis.NewMemoryStore(), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr(), err)
	}

	return redis.NewJobStore(client), nil
}

func knownRoles() map[string]bool {
	roles := map[string]bool{}
	for _, role := range tools.Roles() {
		roles[role] = true
	}
	return roles
}
