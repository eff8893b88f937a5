package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/analyses"
	googleauth "resume-critic/internal/auth"
	"resume-critic/internal/events"
	"resume-critic/internal/llm"
	openai "resume-critic/internal/llm/openai"
	"resume-critic/internal/resumes"
	sharedauth "resume-critic/internal/shared/auth"
	"resume-critic/internal/shared/config"
	"resume-critic/internal/shared/server"
	"resume-critic/internal/shared/storage/db"
	"resume-critic/internal/shared/storage/object"
	localstore "resume-critic/internal/shared/storage/object/local"
	s3store "resume-critic/internal/shared/storage/object/s3"
	"resume-critic/internal/shared/telemetry"
	"resume-critic/internal/users"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "dev-insecure-secret"

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Signer *sharedauth.Signer
	Bus    *events.Bus
	LLM    llm.Client

	UsersRepo    users.Repo
	ResumesRepo  resumes.Repo
	AnalysesRepo analyses.Repo

	UsersService    *users.Service
	ResumesService  *resumes.Service
	AnalysesService *analyses.Service

	UsersHandler    *users.Handler
	ResumesHandler  *resumes.Handler
	AnalysesHandler *analyses.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, err := buildSigner(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Signer: signer,
		Bus:    events.NewBus(),
		LLM:    buildLLM(cfg),
	}

	if sqlDB != nil {
		app.UsersRepo = &users.PGRepo{DB: sqlDB}
		app.ResumesRepo = &resumes.PGRepo{DB: sqlDB}
		app.AnalysesRepo = &analyses.PGRepo{DB: sqlDB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ResumesRepo = resumes.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}

	app.UsersService = &users.Service{Repo: app.UsersRepo, Store: store}
	app.ResumesService = &resumes.Service{Repo: app.ResumesRepo, Store: store}
	app.AnalysesService = &analyses.Service{
		Repo:    app.AnalysesRepo,
		Resumes: app.ResumesService,
		LLM:     app.LLM,
		Bus:     app.Bus,
	}

	secure := cfg.IsProduction()
	app.UsersHandler = &users.Handler{Service: app.UsersService, Signer: signer, SecureCookies: secure}
	app.ResumesHandler = &resumes.Handler{Service: app.ResumesService}
	app.AnalysesHandler = &analyses.Handler{Service: app.AnalysesService}

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		app.GoogleAuth = googleauth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
			app.UsersService,
			signer,
		)
		app.GoogleAuth.SecureCookies = secure
	}

	app.Bus.Subscribe(func(e events.Event) {
		telemetry.Info("event", map[string]any{
			"type":       e.Type,
			"userId":     e.UserID,
			"resumeId":   e.ResumeID,
			"analysisId": e.AnalysisID,
		})
	})

	app.AnalysesService.StartReconciler(ctx, cfg.StaleProcessingAfter)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DB:              sqlDB,
		Store:           store,
		Signer:          signer,
		UsersHandler:    app.UsersHandler,
		ResumesHandler:  app.ResumesHandler,
		AnalysesHandler: app.AnalysesHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

// Close releases resources held by the app.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
		return nil, nil
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsProduction() {
			return nil, err
		}
		log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
		return nil, nil
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.RunMigrations(migrateCtx, sqlDB); err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
		_ = sqlDB.Close()
		return nil, nil
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSigner(cfg config.Config) (*sharedauth.Signer, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		log.Printf("bootstrap: JWT_SECRET empty; using dev secret")
		secret = devJWTSecret
	}
	return sharedauth.NewSigner(secret, sharedauth.DefaultSessionTTL)
}

func buildLLM(cfg config.Config) llm.Client {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Printf("bootstrap: OPENAI_API_KEY empty; analyses will fail until configured")
		return llm.PlaceholderClient{}
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMMaxTokens)
	if err != nil {
		log.Printf("bootstrap: openai client: %v", err)
		return llm.PlaceholderClient{}
	}
	return client
}
