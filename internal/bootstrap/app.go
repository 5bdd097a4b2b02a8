package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"protectedvision-backend/internal/detection"
	"protectedvision-backend/internal/documents"
	"protectedvision-backend/internal/queue"
	"protectedvision-backend/internal/scans"
	"protectedvision-backend/internal/shared/config"
	"protectedvision-backend/internal/shared/server"
	"protectedvision-backend/internal/shared/storage/db"
	"protectedvision-backend/internal/shared/storage/object"
	localstore "protectedvision-backend/internal/shared/storage/object/local"
	s3store "protectedvision-backend/internal/shared/storage/object/s3"
	"protectedvision-backend/internal/workerproc"
)

// App holds shared dependencies wired from configuration.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	DocumentsRepo    documents.DocumentsRepo
	ScansRepo        scans.Repo
	DocumentsService *documents.Service
	ScansService     *scans.Service
	ScanProcessor    ScanProcessor
	DocumentsHandler *documents.Handler
	ScansHandler     *scans.Handler
}

// ScanProcessor allows callers to override scan processing for tests.
type ScanProcessor interface {
	ProcessScan(ctx context.Context, scanID string) error
}

// Build prepares shared dependencies and wires the router.
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

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		DocumentsHandler: app.DocumentsHandler,
		ScansHandler:     app.ScansHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
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

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("PV_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var docRepo documents.DocumentsRepo
	var scanRepo scans.Repo
	var purger documents.ScanPurger

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		scanRepo = &scans.PGRepo{DB: app.DB}
		// Postgres cascades scan rows via foreign keys.
	} else {
		docRepo = documents.NewMemoryRepo()
		memScans := scans.NewMemoryRepo(docRepo)
		scanRepo = memScans
		purger = memScans
	}

	docSvc := &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: app.Config.ObjectStoreType,
		Scans:           purger,
	}

	scanSvc := &scans.Service{
		Repo:     scanRepo,
		Docs:     docRepo,
		JobQueue: app.Queue,
	}

	processor := &workerproc.Processor{
		Repo:     scanRepo,
		Docs:     docRepo,
		Store:    app.Store,
		Detector: detection.NewPatternDetector(),
	}

	app.DocumentsRepo = docRepo
	app.ScansRepo = scanRepo
	app.DocumentsService = docSvc
	app.ScansService = scanSvc
	app.ScanProcessor = processor
	app.DocumentsHandler = documents.NewHandler(docSvc, scanSvc)
	app.ScansHandler = scans.NewHandler(scanSvc)

	if app.DocumentsHandler == nil || app.ScansHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
