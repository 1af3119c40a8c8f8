// Package bootstrap wires application dependencies.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"underwriter-backend/internal/llm"
	"underwriter-backend/internal/llm/anthropic"
	"underwriter-backend/internal/llm/google"
	"underwriter-backend/internal/llm/openai"
	"underwriter-backend/internal/shared/config"
	"underwriter-backend/internal/shared/server"
	"underwriter-backend/internal/shared/storage/db"
	"underwriter-backend/internal/shared/storage/object"
	localstore "underwriter-backend/internal/shared/storage/object/local"
	s3store "underwriter-backend/internal/shared/storage/object/s3"
	"underwriter-backend/internal/statements"
	"underwriter-backend/internal/underwriting"
	"underwriter-backend/internal/usage"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Hub    *underwriting.Hub
	Tokens *llm.TokenTracker

	StatementsRepo      statements.StatementsRepo
	RunsRepo            underwriting.Repo
	StatementsService   *statements.Service
	UnderwritingService *underwriting.Service
	UsageService        *usage.Service
	StatementsHandler   *statements.Handler
	UnderwritingHandler *underwriting.Handler
	UsageHandler        *usage.Handler
	Sweeper             *statements.Sweeper
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Hub:    underwriting.NewHub(),
		Tokens: llm.NewTokenTracker(),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		Statements:   app.StatementsHandler,
		Underwriting: app.UnderwritingHandler,
		Usage:        app.UsageHandler,
	})

	return app, nil
}

// Close stops background work and releases the database pool.
func (a *App) Close() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	var stmtRepo statements.StatementsRepo
	var runsRepo underwriting.Repo
	var usageSvc *usage.Service

	if app.DB != nil {
		stmtRepo = &statements.PGRepo{DB: app.DB}
		runsRepo = &underwriting.PGRepo{DB: app.DB}
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB, app.Config.RunQuotaPerUser))
	} else {
		stmtRepo = statements.NewMemoryRepo()
		runsRepo = underwriting.NewMemoryRepo()
		usageSvc = usage.NewService(app.Config.RunQuotaPerUser)
	}

	stmtSvc := &statements.Service{Store: app.Store, Repo: stmtRepo}

	sweeper, err := statements.NewSweeper(stmtSvc, app.Config.CleanupSchedule, app.Config.UploadRetention)
	if err != nil {
		return fmt.Errorf("upload sweeper: %w", err)
	}

	underwritingSvc := &underwriting.Service{
		Repo:            runsRepo,
		Statements:      stmtSvc,
		Store:           app.Store,
		Hub:             app.Hub,
		Usage:           usageSvc,
		Clients:         NewClientFactory(app.Config, app.Tokens),
		DefaultProvider: app.Config.LLMProvider,
	}

	app.StatementsRepo = stmtRepo
	app.RunsRepo = runsRepo
	app.StatementsService = stmtSvc
	app.UnderwritingService = underwritingSvc
	app.UsageService = usageSvc
	app.StatementsHandler = statements.NewHandler(stmtSvc)
	app.UnderwritingHandler = underwriting.NewHandler(underwritingSvc)
	app.UsageHandler = usage.NewHandler(usageSvc)
	app.Sweeper = sweeper

	return nil
}

// NewClientFactory builds provider clients on demand, wrapped with the
// shared rate limiter for that provider and the process token tracker.
// API keys come straight from the environment so a key rotation only
// needs a restart, not a config reload.
func NewClientFactory(cfg config.Config, tracker *llm.TokenTracker) underwriting.ClientFactory {
	var mu sync.Mutex
	limiters := map[string]*llm.RateLimiter{}

	limiterFor := func(provider string) *llm.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[provider]; ok {
			return l
		}
		l := llm.NewRateLimiter(llm.RateLimitConfigFor(provider))
		limiters[provider] = l
		return l
	}

	return func(provider string) (llm.Client, error) {
		model := ""
		if provider == cfg.LLMProvider {
			model = cfg.LLMModel
		}

		var base llm.Client
		var err error
		switch provider {
		case llm.ProviderAnthropic:
			base, err = anthropic.NewClient(os.Getenv("ANTHROPIC_API_KEY"), model)
		case llm.ProviderGoogle:
			base, err = google.NewClient(os.Getenv("GOOGLE_API_KEY"), model)
		case llm.ProviderOpenAI:
			base, err = openai.NewClient(os.Getenv("OPENAI_API_KEY"), model)
		default:
			return nil, fmt.Errorf("unsupported provider %q", provider)
		}
		if err != nil {
			return nil, err
		}
		return llm.Instrument(base, limiterFor(provider), tracker), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
