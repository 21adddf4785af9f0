package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/account"
	googleauth "resulenz-backend/internal/auth"
	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/llm/gemini"
	"resulenz-backend/internal/llm/openai"
	"resulenz-backend/internal/render"
	"resulenz-backend/internal/resumes"
	"resulenz-backend/internal/services/health"
	"resulenz-backend/internal/shared/auth"
	"resulenz-backend/internal/shared/config"
	"resulenz-backend/internal/shared/server"
	"resulenz-backend/internal/shared/server/middleware"
	"resulenz-backend/internal/shared/storage/db"
	"resulenz-backend/internal/shared/storage/kv"
	kvmemory "resulenz-backend/internal/shared/storage/kv/memory"
	kvpostgres "resulenz-backend/internal/shared/storage/kv/postgres"
	kvredis "resulenz-backend/internal/shared/storage/kv/redis"
	"resulenz-backend/internal/shared/storage/object"
	localstore "resulenz-backend/internal/shared/storage/object/local"
	miniostore "resulenz-backend/internal/shared/storage/object/minio"
	s3store "resulenz-backend/internal/shared/storage/object/s3"
	"resulenz-backend/internal/shared/telemetry"
)

// ObjectsPath is where transient references are served.
const ObjectsPath = "/api/v1/objects/"

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	KV        kv.Store
	Store     object.ObjectStore
	LLM       llm.Client
	Converter render.Converter
	Refs      *blobref.Registry
	Views     *resumes.Views
	Revoker   *auth.Revoker

	Repo           *resumes.Repo
	ResumeService  *resumes.Service
	AccountService *account.Service
	Health         *health.Service

	closers []io.Closer
}

// Options tunes Build for non-server callers.
type Options struct {
	// DBOptions defaults to db.DefaultServerOptions.
	DBOptions *db.Options
	// SkipRouter leaves App.Router nil.
	SkipRouter bool
}

// Build prepares every dependency selected by cfg and wires the router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if cfg.Env == "production" && strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required in production")
	}

	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	var err error
	if app.KV, err = app.buildKV(ctx, opts); err != nil {
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.LLM, err = buildLLM(ctx, cfg); err != nil {
		return nil, err
	}
	app.Converter = buildConverter(cfg)

	app.Refs = blobref.New(ObjectsPath, cfg.ViewTTL)
	app.Views = resumes.NewViews(cfg.ViewTTL)
	app.Revoker = auth.NewRevoker(app.KV)
	app.Repo = resumes.NewRepo(app.KV)
	app.ResumeService = &resumes.Service{
		Blobs:          app.Store,
		Repo:           app.Repo,
		Converter:      app.Converter,
		LLM:            app.LLM,
		Refs:           app.Refs,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	app.AccountService = account.NewService(app.Store, app.Repo, app.Revoker)
	app.Health = health.NewService(
		health.Check{Name: "kv", Backend: cfg.KVStoreType, Pinger: app.KV},
		health.Check{Name: "objects", Backend: cfg.ObjectStoreType},
		health.Check{Name: "llm", Backend: cfg.LLMProvider},
		health.Check{Name: "renderer", Backend: cfg.RendererType},
	)

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:  cfg,
			Health:  app.Health,
			Resumes: resumes.NewHandler(app.ResumeService, app.Views),
			Account: account.NewHandler(app.AccountService),
			Objects: blobref.NewHandler(app.Refs),
			Google: googleauth.NewGoogleService(
				cfg.GoogleClientID,
				cfg.GoogleClientSecret,
				cfg.GoogleRedirectURL,
				cfg.UIRedirectURL,
				app.Revoker,
			),
			Revoker: app.Revoker,
			Limiter: middleware.NewRateLimiter(nil),
		})
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":      cfg.Env,
		"kv":       cfg.KVStoreType,
		"objects":  cfg.ObjectStoreType,
		"llm":      cfg.LLMProvider,
		"renderer": cfg.RendererType,
	})
	ok = true
	return app, nil
}

// Close releases views and backend connections.
func (a *App) Close() {
	if a.Views != nil {
		a.Views.CloseAll()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"error": err})
		}
	}
	a.closers = nil
}

// RunJanitors sweeps expired views and references until ctx ends.
func (a *App) RunJanitors(ctx context.Context) {
	interval := a.Config.ViewTTL / 4
	if interval <= 0 {
		interval = blobref.DefaultTTL / 4
	}
	go a.Views.Run(ctx, interval)
	go a.Refs.Run(ctx, interval)
}

func (a *App) buildKV(ctx context.Context, opts Options) (kv.Store, error) {
	cfg := a.Config
	switch cfg.KVStoreType {
	case "redis":
		store := kvredis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.closers = append(a.closers, store)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return store, nil
	case "postgres":
		dbOpts := db.DefaultServerOptions()
		if opts.DBOptions != nil {
			dbOpts = *opts.DBOptions
		}
		conn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(dbOpts))
		if err != nil {
			return nil, err
		}
		a.DB = conn
		a.closers = append(a.closers, conn)
		if err := db.RunMigrations(ctx, conn); err != nil {
			return nil, err
		}
		return kvpostgres.New(conn), nil
	default:
		return kvmemory.New(nil), nil
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var client llm.Client
	switch cfg.LLMProvider {
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = "gpt-4o"
		}
		c, err := openai.NewClient(cfg.OpenAIAPIKey, model, openai.Options{Timeout: cfg.LLMTimeout})
		if err != nil {
			return nil, err
		}
		client = c
	case "gemini":
		model := cfg.LLMModel
		if model == "" {
			model = "gemini-2.5-flash"
		}
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, model, gemini.Options{Timeout: cfg.LLMTimeout})
		if err != nil {
			return nil, err
		}
		client = c
	default:
		if cfg.Env == "production" {
			return nil, errors.New("LLM_PROVIDER is required in production")
		}
		telemetry.Warn("bootstrap.llm_not_configured", nil)
		return llm.PlaceholderClient{}, nil
	}
	if !cfg.LLMBreakerEnabled {
		return client, nil
	}
	return llm.WithBreaker(client, llm.BreakerSettings{
		Name:                cfg.LLMProvider,
		ConsecutiveFailures: cfg.LLMBreakerThreshold,
		FailureRatio:        cfg.LLMBreakerRatio,
		MinRequests:         cfg.LLMBreakerMinCalls,
		Interval:            cfg.LLMBreakerInterval,
		OpenTimeout:         cfg.LLMBreakerTimeout,
	}), nil
}

// buildConverter prefers poppler when selected and installed, keeping the
// native renderer as fallback.
func buildConverter(cfg config.Config) render.Converter {
	native := render.NewNative(cfg.RenderDPI)
	if cfg.RendererType != "pdftoppm" {
		return native
	}
	p := render.Pdftoppm{DPI: cfg.RenderDPI, Timeout: cfg.RenderTimeout}
	if !p.Available() {
		telemetry.Warn("bootstrap.pdftoppm_missing", map[string]any{"fallback": "native"})
		return native
	}
	return render.Chain{p, native}
}
