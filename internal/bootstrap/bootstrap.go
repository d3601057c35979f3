package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heilo27/rightrudder/internal/app/connectivity"
	appControllers "github.com/heilo27/rightrudder/internal/app/controllers"
	appMigrations "github.com/heilo27/rightrudder/internal/app/migrations"
	"github.com/heilo27/rightrudder/internal/app/remote"
	appRepos "github.com/heilo27/rightrudder/internal/app/repositories"
	appRoutes "github.com/heilo27/rightrudder/internal/app/routes"
	appServices "github.com/heilo27/rightrudder/internal/app/services"
	"github.com/heilo27/rightrudder/internal/config"
	"github.com/heilo27/rightrudder/internal/db"
	appMiddleware "github.com/heilo27/rightrudder/internal/middleware"
	pkgAuth "github.com/heilo27/rightrudder/internal/pkg/auth"
	"github.com/heilo27/rightrudder/internal/pkg/events"
	"github.com/heilo27/rightrudder/internal/pkg/idmap"
	"github.com/heilo27/rightrudder/internal/pkg/logger"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
	"github.com/heilo27/rightrudder/internal/seed"
)

// AppVersion is stamped into exported template documents.
const AppVersion = "1.0.0"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	JWTService  *pkgAuth.JWTService
	SaveQueue   *savequeue.Queue
	Hub         *events.Hub
	Mapper      *idmap.Mapper
	Monitor     connectivity.Monitor
	RemoteStore remote.Store

	AuthService       appServices.AuthService
	StudentService    appServices.StudentService
	TemplateService   appServices.TemplateService
	AssignmentService appServices.AssignmentService
	SyncService       appServices.SyncService
	ConflictService   appServices.ConflictService
	OfflineService    appServices.OfflineService
	IntegrityService  appServices.IntegrityService
	ShareService      appServices.ShareService
	ExportService     appServices.ExportService

	AuthController       *appControllers.AuthController
	StudentController    *appControllers.StudentController
	TemplateController   *appControllers.TemplateController
	AssignmentController *appControllers.AssignmentController
	SyncController       *appControllers.SyncController

	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "console"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the local database connection, runs migrations,
// and seeds the built-in template catalog.
func SetupDatabase(cfg *config.Config, mapper *idmap.Mapper, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	dbPool, err := db.NewLocalPool(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, mapper, lgr); err != nil {
		// The catalog can be repaired later by the integrity pass
		lgr.Error().Err(err).Msg("Failed to seed built-in templates, proceeding anyway...")
	}

	return dbPool, nil
}

// SetupRemoteStore connects to the cloud record store. A failed connection is
// not fatal: the app starts offline and the connectivity monitor picks the
// remote up when it becomes reachable.
func SetupRemoteStore(cfg *config.Config, lgr zerolog.Logger) (remote.Store, *pgxpool.Pool, error) {
	remotePool, err := db.NewRemotePool(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to configure remote store pool")
		return nil, nil, err
	}

	migrator := appMigrations.NewMigrator(remotePool)
	remoteMigrationsDir := filepath.Join("migrations", "remote")
	if _, err := os.Stat(remoteMigrationsDir); err == nil {
		if err := migrator.MigrateFromDirectory(remoteMigrationsDir); err != nil {
			// Unreachable remote is the common cause; retried on next startup
			lgr.Warn().Err(err).Msg("Remote store migrations not applied, continuing offline")
		}
	}

	return remote.NewPostgresStore(remotePool), remotePool, nil
}

// BuildDependencies initializes repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, store remote.Store, mapper *idmap.Mapper, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr, Mapper: mapper, RemoteStore: store}

	deps.Repos = appRepos.NewRepositories(dbPool)
	deps.SaveQueue = savequeue.New(cfg.Sync.WriteQueueBuffer, lgr)
	deps.Hub = events.NewHub(lgr)
	deps.Monitor = connectivity.NewProbeMonitor(store.Ping, cfg.ProbeInterval(), lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: parseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.ConflictService = appServices.NewConflictService(deps.Repos, deps.SaveQueue, lgr)
	deps.SyncService = appServices.NewSyncService(deps.Repos, store, deps.ConflictService, cfg.Sync.ZonePrefix, lgr)
	// Conflict resolution re-pushes through the sync service, which itself
	// needs conflict detection during pulls. The narrow pusher interface is
	// attached after both exist.
	deps.ConflictService.SetPusher(deps.SyncService)

	deps.OfflineService = appServices.NewOfflineService(deps.Repos, deps.SaveQueue, deps.SyncService, deps.Monitor, cfg.ReplayInterval(), cfg.CompletedOpTTL(), lgr)
	deps.AuthService = appServices.NewAuthService(deps.Repos, deps.SaveQueue, deps.JWTService, lgr)
	deps.StudentService = appServices.NewStudentService(deps.Repos, deps.SaveQueue, deps.SyncService, deps.OfflineService, deps.Monitor, lgr)
	deps.TemplateService = appServices.NewTemplateService(deps.Repos, deps.SaveQueue, lgr)
	deps.AssignmentService = appServices.NewAssignmentService(deps.Repos, deps.SaveQueue, mapper, deps.SyncService, deps.OfflineService, deps.Monitor, deps.Hub, lgr)
	deps.IntegrityService = appServices.NewIntegrityService(deps.Repos, deps.SaveQueue, mapper, deps.Hub, lgr)
	deps.ShareService = appServices.NewShareService(deps.Repos, deps.SaveQueue, store, deps.SyncService, lgr)
	deps.ExportService = appServices.NewExportService(deps.Repos, deps.SaveQueue, AppVersion, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.StudentController = appControllers.NewStudentController(deps.StudentService, deps.ConflictService, deps.ShareService, lgr)
	deps.TemplateController = appControllers.NewTemplateController(deps.TemplateService, deps.ExportService, lgr)
	deps.AssignmentController = appControllers.NewAssignmentController(deps.AssignmentService, lgr)
	deps.SyncController = appControllers.NewSyncController(deps.SyncService, deps.OfflineService, deps.IntegrityService, deps.Monitor, deps.SaveQueue, lgr)

	return deps, nil
}

// StartBackground launches the save queue, the connectivity monitor, and the
// offline replay loop. If configured, a startup integrity pass runs once the
// queue is accepting writes.
func StartBackground(ctx context.Context, cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) {
	deps.SaveQueue.Start(ctx)
	if pm, ok := deps.Monitor.(*connectivity.ProbeMonitor); ok {
		pm.Start(ctx)
	}
	deps.OfflineService.Start(ctx)

	if cfg.Sync.IntegrityOnStartup {
		go func() {
			report, err := deps.IntegrityService.VerifyAndRepair(ctx)
			if err != nil {
				lgr.Error().Err(err).Msg("Startup integrity verification failed")
				return
			}
			lgr.Info().
				Int("issuesFound", report.IssuesFound).
				Int("issuesRepaired", report.IssuesRepaired).
				Msg("Startup integrity verification complete")
		}()
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.StudentController,
		deps.TemplateController,
		deps.AssignmentController,
		deps.SyncController,
		deps.AuthMiddleware,
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
