package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/financebot/financebot/internal/agent"
	"github.com/financebot/financebot/internal/auth"
	"github.com/financebot/financebot/internal/model"
	"github.com/financebot/financebot/internal/report"
	"github.com/financebot/financebot/internal/store"
	"github.com/financebot/financebot/internal/webhook"
	anthropicpkg "github.com/financebot/financebot/pkg/anthropic"
	"github.com/financebot/financebot/pkg/pixpoc"
)

// serviceEnv holds the initialized store, clients, and pipeline shared by
// the serve/call/migrate commands.
type serviceEnv struct {
	Store      store.Store
	Pixpoc     pixpoc.Client // nil without an API key
	Auth       *auth.Manager
	Dispatcher *webhook.Dispatcher
	Handler    *webhook.Handler
}

// Close releases resources held by the environment.
func (e *serviceEnv) Close() {
	if e.Dispatcher != nil {
		e.Dispatcher.Wait()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, API clients, and the webhook pipeline. Callers
// should defer env.Close().
func initEnv(ctx context.Context) (*serviceEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	px := initPixpoc()

	var llm anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		llm = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Warn("FINANCEBOT_ANTHROPIC_KEY not set, narrative generation disabled",
			zap.Bool("demo_fallback", cfg.Agent.AllowDemoFallback))
	}

	narrator := agent.New(llm,
		agent.WithModel(cfg.Anthropic.Model),
		agent.WithMaxTokens(cfg.Anthropic.MaxTokens),
		agent.WithDemoFallback(cfg.Agent.AllowDemoFallback),
	)
	generator := report.NewGenerator(narrator, cfg.Reports.Dir)

	authMgr, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.DemoOTP, time.Duration(cfg.Auth.TokenTTLHrs)*time.Hour)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	dispatcher := webhook.NewDispatcher()
	processor := webhook.NewProcessor(st, generator, model.ReportType(cfg.Agent.ReportType))

	handler := webhook.NewHandler(webhook.HandlerConfig{
		Store:          st,
		Pixpoc:         px,
		Auth:           authMgr,
		Processor:      processor,
		Dispatcher:     dispatcher,
		AgentID:        cfg.Pixpoc.AgentID,
		FromNumberID:   cfg.Pixpoc.FromNumberID,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return &serviceEnv{
		Store:      st,
		Pixpoc:     px,
		Auth:       authMgr,
		Dispatcher: dispatcher,
		Handler:    handler,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "financebot.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPixpoc() pixpoc.Client {
	if cfg.Pixpoc.APIKey == "" {
		zap.L().Warn("FINANCEBOT_PIXPOC_API_KEY not set, outbound calling disabled")
		return nil
	}
	return pixpoc.NewClient(cfg.Pixpoc.APIKey,
		pixpoc.WithBaseURL(cfg.Pixpoc.BaseURL),
		pixpoc.WithRateLimit(cfg.Pixpoc.RequestsPerSecond),
		pixpoc.WithDefaultCountryCode(cfg.Pixpoc.DefaultCountryCode),
	)
}
