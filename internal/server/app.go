// Package server initializes and runs the storage gateway: database,
// migrations, external service clients, business services and the HTTP API,
// with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/clients/archive"
	"github.com/merklebot/storage/internal/server/clients/custody"
	"github.com/merklebot/storage/internal/server/clients/instantstorage"
	"github.com/merklebot/storage/internal/server/clients/ipfs"
	"github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/httpapi"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
	"github.com/merklebot/storage/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	ipfsClient := ipfs.New(cfg.IpfsAPIURL, cfg.OutboundTimeout)
	custodyClient := custody.New(cfg.CustodyURL, cfg.CustodyAPIKey, cfg.OutboundTimeout)
	archiveClient := archive.New(cfg.ArchiveURL, cfg.OutboundTimeout)

	instant, err := instantstorage.New(ctx, instantstorage.Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKey:       cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("instant storage init error: %w", err)
	}

	tenantService := services.NewTenantService(db, repos, logger)
	userService := services.NewUserService(db, repos, logger)
	contentService := services.NewContentService(db, repos, cfg, logger, ipfsClient, instant)
	jobService := services.NewJobService(db, repos, cfg, logger, custodyClient, archiveClient, ipfsClient)
	keyService := services.NewKeyService(db, repos, logger, custodyClient)
	permissionService := services.NewPermissionService(db, repos, logger)
	packerService := services.NewPackerService(db, repos, cfg, logger)
	carService := services.NewCarService(db, repos, logger)
	restoreService := services.NewRestoreService(db, repos, cfg, logger)

	server := httpapi.NewServer(cfg, logger,
		tenantService, userService, contentService, jobService,
		keyService, permissionService, packerService, carService, restoreService)

	return &App{config: cfg, logger: logger, db: db, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server error", "error", err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http server shutdown error", "error", err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	wg.Wait()
	app.logger.Info(ctx, "app stopped")
}
