package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/wrchecker/internal/adapters/backend"
	"github.com/okian/wrchecker/internal/adapters/heartbeat"
	"github.com/okian/wrchecker/internal/adapters/http/api"
	"github.com/okian/wrchecker/internal/adapters/mq/worker"
	"github.com/okian/wrchecker/internal/adapters/notify"
	"github.com/okian/wrchecker/internal/adapters/replay"
	"github.com/okian/wrchecker/internal/adapters/repository"
	app "github.com/okian/wrchecker/internal/app"
	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/config"
	"github.com/okian/wrchecker/internal/domain/weekly"
	"github.com/okian/wrchecker/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// version is shown in embed footers. Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "wrchecker stopped", logger.Error(err))
		os.Exit(1)
	}
}

// components is the wired process.
type components struct {
	store      *repository.SQLiteStore
	dispatcher *notify.WebhookDispatcher
	service    *app.Service
	catalog    *catalog.Catalog
}

// build wires every component from cfg. Every error it returns is fatal.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*components, error) {
	cat, err := catalog.Load(cfg.Catalog.LevelIDsPath, cfg.Catalog.LevelTitlesPath)
	if err != nil {
		return nil, &app.Error{Kind: app.KindFatal, Op: "load catalog", Err: err}
	}

	store, err := repository.Open(ctx, cfg.DatabasePath, repository.WithLogger(log.Named("store")))
	if err != nil {
		return nil, &app.Error{Kind: app.KindFatal, Op: "open store", Err: err}
	}

	client := backend.New(backend.Options{
		BaseURL:         cfg.Backend.BaseURL,
		AppID:           cfg.Backend.AppID,
		ClassName:       cfg.Backend.ClassName,
		WeeklyClassName: cfg.Backend.Weekly.ClassName,
		StatsClassName:  cfg.Backend.Weekly.StatsClassName,
		UserAgent:       cfg.Backend.UserAgent,
		Timeout:         cfg.RequestTimeout,
		Concurrency:     cfg.FetchConcurrency,
		Logger:          log.Named("backend"),
	})

	dispatcher := notify.NewWebhookDispatcher(cfg.Discord.MaxAttempts, log.Named("webhook"))
	discord := notify.New(dispatcher, cat,
		notify.WithRecordWebhooks(cfg.Discord.Webhooks...),
		notify.WithWeeklyWebhooks(cfg.Discord.WeeklyWebhooks...),
		notify.WithVersion(version),
		notify.WithLogger(log.Named("notify")))

	archiver := replay.New(client,
		replay.WithDir(cfg.ReplayDir),
		replay.WithEnabled(cfg.ReplayEnabled),
		replay.WithLogger(log.Named("replay")))

	tracker := weekly.NewTracker(client, store, store, discord, cat,
		weekly.WithWindow(cfg.RecapWindow),
		weekly.WithLogger(log.Named("weekly")))

	svc := app.New(store, client, discord, tracker, cat,
		app.WithLogger(log.Named("service")),
		app.WithReplays(archiver),
		app.WithHeartbeat(heartbeat.New(cfg.HeartbeatURL, cfg.RequestTimeout)))

	return &components{store: store, dispatcher: dispatcher, service: svc, catalog: cat}, nil
}

func (c *components) close(ctx context.Context, log logger.Logger) {
	c.dispatcher.Close(ctx)
	if err := c.store.Close(); err != nil {
		log.Error(ctx, "failed to close store", logger.Error(err))
	}
}

func newHTTPServer(addr string, c *components) *http.Server {
	apiServer := api.NewServer(c.service, c.service, c.catalog, c.store)
	return &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	c, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.close(context.Background(), log)

	if err := c.service.Seed(ctx); err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Addr != "" {
		srv = newHTTPServer(cfg.Addr, c)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
	}

	runner := worker.NewRunner(func(ctx context.Context) { c.service.Tick(ctx) }, cfg.LoopWait,
		worker.WithName("checker"), worker.WithLogger(log))
	go runner.Run(ctx)

	log.Info(ctx, "wrchecker started",
		logger.Int("levels", c.catalog.Len()),
		logger.Duration("loop_wait", cfg.LoopWait))

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "runner shutdown failed", logger.Error(err))
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}

	log.Info(ctx, "stopped")
	return nil
}
