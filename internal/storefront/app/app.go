package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/storefront/internal/storefront/http"
	"github.com/aussiebroadwan/storefront/internal/storefront/metrics"
	"github.com/aussiebroadwan/storefront/internal/storefront/service"
	"github.com/aussiebroadwan/storefront/internal/storefront/session"
	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/aussiebroadwan/storefront/internal/storefront/store/drivers/file"
	"github.com/aussiebroadwan/storefront/internal/storefront/store/drivers/memory"
	redisstore "github.com/aussiebroadwan/storefront/internal/storefront/store/drivers/redis"
	"github.com/aussiebroadwan/storefront/internal/storefront/store/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// BuildVersion should be set at build time via ldflags
	BuildVersion = "v0.1.0"

	sealerInfo = "storefront token store v1"
)

// Application wires the token store, the API client and the session
// coordinator into one long-lived client session.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store    store.Store
	client   *storefrontsdk.SDKClient
	registry *prometheus.Registry
	session  *session.Coordinator

	keepalive *service.KeepaliveService
	opsServer *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "storefront",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cfg.LogOutput,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	app.initClient()
	collector := app.initMetrics()

	coord, err := session.New(session.Options{
		API:               app.client,
		Headers:           app.client,
		Store:             app.store,
		Logger:            app.logger,
		Metrics:           collector,
		OAuthCallbackPath: cfg.OAuthCallbackPath,
	})
	if err != nil {
		_ = app.store.Close()
		return nil, err
	}
	app.session = coord

	app.initOps()
	if cfg.KeepaliveInterval > 0 {
		app.keepalive = service.NewKeepaliveService(coord, app.logger, cfg.KeepaliveInterval, cfg.RefreshWindow)
	}

	return app, nil
}

// Session returns the coordinator, for callers embedding the application.
func (app *Application) Session() *session.Coordinator {
	return app.session
}

// Run bootstraps the session and keeps it alive until ctx ends or a shutdown
// signal arrives. SIGHUP and external token changes trigger a refresh.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info("storefront session starting",
		"api", app.cfg.APIURL,
		"store", app.cfg.StoreDriver,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	if app.opsServer != nil {
		go func() {
			serverErrors <- app.opsServer.ListenAndServe()
		}()
		app.logger.Info("ops server listening", "addr", app.cfg.MetricsAddr)
	}

	// Watch before bootstrapping; the store filters out our own writes
	changes := make(chan struct{}, 1)
	if w, ok := app.store.(store.Watcher); ok {
		err := w.Watch(ctx, store.AccessTokenKey, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if err != nil {
			app.logger.Warn("token store watch unavailable", "error", err)
		}
	}

	app.session.Bootstrap(ctx, app.cfg.InitialPath)
	app.logState("session bootstrapped")

	if app.keepalive != nil {
		app.keepalive.Start(ctx)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return app.Shutdown()

		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				_ = app.Shutdown()
				return fmt.Errorf("ops server failed: %w", err)
			}

		case <-changes:
			app.logger.Info("token changed outside this process, refreshing session")
			app.session.Refresh(ctx)
			app.logState("session refreshed")

		case sig := <-signals:
			if sig == syscall.SIGHUP {
				app.session.Refresh(ctx)
				app.logState("session refreshed")
				continue
			}

			app.logger.Info("shutdown signal received", "signal", sig)
			if err := app.Shutdown(); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		}
	}
}

// Shutdown stops the keepalive and the ops server, then closes the token
// store. It is safe to call more than once.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		app.logger.Info("shutting down storefront session...")

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
		defer cancel()

		if app.keepalive != nil {
			app.keepalive.Stop()
		}

		if app.opsServer != nil {
			if err := app.opsServer.Shutdown(ctx); err != nil {
				app.logger.Error("graceful ops server shutdown failed", "error", err)
				_ = app.opsServer.Close()
			}
		}

		if err := app.store.Close(); err != nil {
			app.logger.Error("error closing token store", "error", err)
			app.shutdownErr = err
			return
		}

		app.logger.Info("storefront session stopped")
	})
	return app.shutdownErr
}

// initStore opens the configured token store driver and checks it is reachable.
func (app *Application) initStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		s   store.Store
		err error
	)

	switch app.cfg.StoreDriver {
	case "memory":
		s = memory.NewStore()

	case "file":
		s, err = app.openFileStore()

	case "sqlite":
		s, err = app.openSQLiteStore()

	case "redis":
		client, cerr := redisstore.Connect(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword)
		if cerr != nil {
			return fmt.Errorf("failed to connect to redis: %w", cerr)
		}
		s = redisstore.NewStore(client, redisstore.DefaultPrefix)
	}
	if err != nil {
		return err
	}

	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return fmt.Errorf("token store unavailable: %w", err)
	}

	app.store = s
	app.logger.Info("token store ready", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) openFileStore() (store.Store, error) {
	key, err := cryptox.LoadOrCreateMasterKey(app.cfg.MasterKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}

	sealer, err := cryptox.NewSealer(key, sealerInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}

	s, err := file.NewStore(app.cfg.StoreDir, sealer)
	if err != nil {
		return nil, fmt.Errorf("failed to open file store: %w", err)
	}
	return s, nil
}

func (app *Application) openSQLiteStore() (store.Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return db, nil
}

func (app *Application) initClient() {
	app.client = storefrontsdk.NewSDKClient(app.cfg.APIURL, app.logger)
	app.client.HTTPClient.Timeout = app.cfg.APITimeout

	if r := app.cfg.APIRateLimit; r > 0 {
		app.client.Limiter = storefrontsdk.NewLimiter(r, int(math.Ceil(r)))
	}
}

func (app *Application) initMetrics() *metrics.Collector {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(app.registry, session.StatusLabels()...)

	return collector
}

// initOps builds the operator server when an address is configured.
func (app *Application) initOps() {
	if app.cfg.MetricsAddr == "" {
		return
	}

	router := httpapi.NewRouter(BuildVersion, app.store, app.session, app.registry, app.logger)
	router.ApplyRoutes()

	app.opsServer = &http.Server{
		Addr:              app.cfg.MetricsAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// logState logs the session as the rest of the application sees it. Only
// claims derived from the token are logged, never the token.
func (app *Application) logState(msg string) {
	s := app.session.Snapshot()

	attrs := []any{
		"status", s.Status.String(),
		"user_id", s.UserID(),
		"cart_items", s.Cart.Count(),
		"cart_total", s.Cart.Total(),
	}

	if s.AccessToken != "" {
		if info, err := jwtx.Inspect(s.AccessToken); err == nil && !info.ExpiresAt.IsZero() {
			attrs = append(attrs, "token_expires_in", info.ExpiresIn(time.Now()).Round(time.Second).String())
		}
	}

	app.logger.Info(msg, attrs...)
}
