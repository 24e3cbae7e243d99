package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/edap/edap-server/internal/alert"
	"github.com/edap/edap-server/internal/api"
	"github.com/edap/edap-server/internal/api/admin"
	"github.com/edap/edap-server/internal/app/storage"
	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/connector"
	"github.com/edap/edap-server/internal/notify"
	"github.com/edap/edap-server/internal/service"
	pkgsync "github.com/edap/edap-server/internal/sync"
	"github.com/edap/edap-server/internal/telemetry"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	tracerName = "github.com/edap/edap-server"
)

// EdapAppOptions is a function that configures the app builder
type EdapAppOptions func(*edapAppConfig) error

// edapAppConfig collects everything NewEdapApp needs.
// Injected components take precedence over the ones built from config.
type edapAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	connector      connector.Connector
	sink           notify.Sink
	telemetry      *telemetry.Telemetry
	schedulerOpts  []pkgsync.Option

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...EdapAppOptions) (*edapAppConfig, error) {
	cfg := &edapAppConfig{
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.Server.GetAddress()
	}
	if cfg.requestTimeout == 0 {
		cfg.requestTimeout = cfg.config.Server.GetRequestTimeout()
	}

	return cfg, nil
}

// NewEdapApp builds every component and wires them together
func NewEdapApp(
	ctx context.Context,
	opts ...EdapAppOptions,
) (*EdapApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	ownsTelemetry := cfg.telemetry == nil
	if ownsTelemetry {
		cfg.telemetry, err = telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if !cleanupNeeded {
			return
		}
		if cfg.storageFactory != nil {
			cfg.storageFactory.Cleanup()
		}
		if ownsTelemetry {
			_ = cfg.telemetry.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	app := &EdapApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}
	if ownsTelemetry {
		app.telemetry = cfg.telemetry
	}
	return app, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address, overriding server.address
func WithAddress(addr string) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "localhost":
			host = "127.0.0.1"
		case "":
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithConnector allows injecting a portal connector (for testing)
func WithConnector(c connector.Connector) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.connector = c
		return nil
	}
}

// WithSink allows injecting a notification sink (for testing)
func WithSink(s notify.Sink) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.sink = s
		return nil
	}
}

// WithTelemetry uses an existing telemetry instance. The caller keeps
// ownership and shuts it down.
func WithTelemetry(t *telemetry.Telemetry) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// WithSchedulerOptions passes extra options to the sync scheduler
func WithSchedulerOptions(opts ...pkgsync.Option) EdapAppOptions {
	return func(cfg *edapAppConfig) error {
		cfg.schedulerOpts = append(cfg.schedulerOpts, opts...)
		return nil
	}
}

// buildComponents builds stores, the sync machinery and the service
func buildComponents(ctx context.Context, b *edapAppConfig) (*AppComponents, error) {
	slog.Info("Initializing components")

	profiles, err := b.storageFactory.CreateProfileStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile store: %w", err)
	}
	creds, err := b.storageFactory.CreateCredentialStore(ctx)
	if err != nil {
		return nil, err
	}

	if b.connector == nil {
		b.connector, err = connector.New(b.config.Connector)
		if err != nil {
			return nil, fmt.Errorf("failed to create connector: %w", err)
		}
	}
	if b.sink == nil {
		b.sink, err = notify.NewSink(ctx, b.config.Notifications)
		if err != nil {
			return nil, fmt.Errorf("failed to create notification sink: %w", err)
		}
	}
	alerts, err := alert.New(b.config.Alerts)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert notifier: %w", err)
	}

	meterProvider := b.telemetry.MeterProvider()
	tracer := b.telemetry.Tracer(tracerName)

	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	notifyMetrics, err := telemetry.NewNotifyMetrics(meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}
	loginMetrics, err := telemetry.NewLoginMetrics(meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create login metrics: %w", err)
	}

	dispatcher := notify.NewDispatcher(
		b.sink,
		notify.NewLocalizer(b.config.Notifications.GetDefaultLanguage()),
		notify.WithMetrics(notifyMetrics),
		notify.WithTracer(tracer),
	)

	fetchTimeout := b.config.Sync.GetFetchTimeout()
	syncer := pkgsync.NewSyncer(profiles, creds, b.connector, b.sink, dispatcher,
		pkgsync.WithFetchTimeout(fetchTimeout),
		pkgsync.WithAlerts(alerts),
		pkgsync.WithSyncMetrics(syncMetrics),
		pkgsync.WithTracer(tracer),
	)

	schedulerOpts := append([]pkgsync.Option{
		pkgsync.WithDelays(b.config.Sync.GetMinDelay(), b.config.Sync.GetMaxDelay()),
		pkgsync.WithMetrics(syncMetrics),
	}, b.schedulerOpts...)
	scheduler := pkgsync.NewScheduler(syncer, profiles, schedulerOpts...)

	svc, err := service.New(service.Dependencies{
		Store:       b.storageFactory.Store(),
		Profiles:    profiles,
		Credentials: creds,
		Connector:   b.connector,
		Scheduler:   scheduler,
		Simulator:   syncer,
		Sink:        b.sink,
		Dispatcher:  dispatcher,
	},
		service.WithAlerts(alerts),
		service.WithLoginMetrics(loginMetrics),
		service.WithFetchTimeout(fetchTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	slog.Info("Components initialized successfully")
	return &AppComponents{
		Storage:   b.storageFactory,
		Scheduler: scheduler,
		Service:   svc,
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	_ context.Context,
	b *edapAppConfig,
	svc service.Service,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// metrics and tracing go first so rejected requests are still observed
	metricsMiddleware, err := telemetry.MetricsMiddleware(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	b.middlewares = append([]func(http.Handler) http.Handler{
		metricsMiddleware,
		telemetry.TracingMiddleware(b.telemetry.TracerProvider()),
	}, b.middlewares...)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
	}
	if h := b.telemetry.MetricsHandler(); h != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(h))
	}
	if a := b.config.Admin; a != nil {
		serverOpts = append(serverOpts, api.WithAdmin(admin.Credentials{
			Username:     a.Username,
			PasswordHash: a.PasswordHash,
		}))
	} else {
		slog.Warn("Admin endpoints disabled, no admin credentials configured")
	}

	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
