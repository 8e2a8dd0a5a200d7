// Package server initializes and runs the application server: it wires the
// configuration, database, object storage and services together, starts the
// HTTP endpoint and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/assistant"
	"github.com/simvex/simvex-server/internal/server/config"
	"github.com/simvex/simvex-server/internal/server/db"
	"github.com/simvex/simvex-server/internal/server/httpapi"
	"github.com/simvex/simvex-server/internal/server/services"
	"github.com/simvex/simvex-server/internal/server/storage"
	"github.com/simvex/simvex-server/internal/server/uploads"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager db.RepositoryManager
	handler http.Handler
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	manager, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := storage.NewS3Store(context.Background(), c)
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	policy := storage.NewKeyPolicy(storage.StrategyOpaque, c.CDNBase())
	uploader := uploads.NewService(store, policy, logger)

	projectService := services.NewProjectService(manager.Projects(), uploader, logger)
	nodeService := services.NewNodeService(manager.Projects(), nil, assistant.NewClient(c.AssistantBaseURL, nil), logger)
	userService := services.NewUserService(manager.Users(), c, logger)

	handler := httpapi.NewRouter(httpapi.Deps{
		Projects:  projectService,
		Nodes:     nodeService,
		Users:     userService,
		SecretKey: []byte(c.SecretKey),
		Logger:    logger,
		DBPinger:  manager.Conn().PingContext,
	})

	return &App{config: c, logger: logger, manager: manager, handler: handler}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
