package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/contact"
	"gigmaps-engine/internal/datasource"
	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/events"
	"gigmaps-engine/internal/httpapi"
	"gigmaps-engine/internal/license"
	"gigmaps-engine/internal/logger"
	"gigmaps-engine/internal/metrics"
	"gigmaps-engine/internal/postal"
	"gigmaps-engine/internal/ratelimit"
	"gigmaps-engine/internal/scheduler"
	"gigmaps-engine/internal/secrets"
	"gigmaps-engine/internal/session"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	envShutdownToken = "GIGMAPS_SHUTDOWN_TOKEN"
	outboundTimeout  = 30 * time.Second
	outboundRPS      = 5
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := config.LoadEnvFiles()

	// Engine data dir: use env if provided (the desktop shell passes one), else local folder.
	dataDir := os.Getenv(config.EnvDataDir)
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// One engine per data dir: the KV store has a single writer.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine is already running in %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}

	bootLog, err := logger.New(logger.Config{Level: os.Getenv(config.EnvLogLevel)})
	if err != nil {
		return err
	}
	cfg := config.LoadOrDefault(userCfgPath, bootLog)
	_ = bootLog.Sync()

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Warn("env file not loaded", logger.Error(envErr))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	kv, db, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	outbound := &http.Client{
		Timeout:   outboundTimeout,
		Transport: &ratelimit.Transport{Limiter: ratelimit.NewHostLimiter(outboundRPS, 2)},
	}

	dsKey := secrets.ResolveDataSourceKey(cfg.DataSource.Key, cfg.DataSource.KeyringAccount)
	ds := datasource.NewClient(cfg.DataSource, dsKey, outbound, log.With(logger.String("component", "datasource")), m)

	verifier := license.NewClient(outbound, cfg.Pro.License.VerifyURL, cfg.Pro.License.ProductID)
	grants := entitlement.NewManager(kv, verifier, cfg.Pro,
		log.With(logger.String("component", "entitlement")), entitlement.WithMetrics(m))

	postalLimiter := ratelimit.NewHostLimiter(cfg.Postal.RequestsPerSecond, 1)
	resolver := postal.NewResolver(
		postal.NewClient(cfg.Postal, postalLimiter),
		postal.NewCache(),
		cfg.Postal.Concurrency,
		log.With(logger.String("component", "postal")),
		m,
	)

	hub := events.NewHub()
	ctrl := session.NewController(cfg, session.Deps{
		Fetcher:      ds,
		Entitlements: grants,
		Postal:       resolver,
		Publisher:    hub,
		Logger:       log.With(logger.String("component", "session")),
	})
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// First load runs in the background so /health answers immediately.
	if cfg.App.RefreshSeconds > 0 {
		go scheduler.Every(ctx, time.Duration(cfg.App.RefreshSeconds)*time.Second, "refresh", log, ctrl.Refresh)
	} else {
		go func() {
			if err := ctrl.Refresh(ctx); err != nil {
				log.Warn("initial load failed", logger.Error(err))
			}
		}()
	}

	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)

	d := httpapi.Deps{
		Session:     ctrl,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg: func() (config.Config, error) {
			c, err := config.Load(userCfgPath)
			if err != nil {
				return c, err
			}
			c, _ = config.NormalizeAndValidate(c)
			return c, nil
		},
		DataSource:       ds,
		Contact:          contact.NewRelay(cfg.Contact, nil, log.With(logger.String("component", "contact"))),
		SetDataSourceKey: secrets.SetDataSourceKey,
		Metrics:          m,
		Logger:           log,
	}
	if db != nil {
		d.DB = db
	}
	mux := httpapi.NewMux(d)

	token := os.Getenv(envShutdownToken)
	if token == "" {
		if token, err = randomToken(16); err != nil {
			return err
		}
	}
	tokenPath, err := writeTokenFile(dataDir, token)
	if err != nil {
		return fmt.Errorf("write shutdown token: %w", err)
	}

	// Bind to a predictable local port so the shell can find the engine.
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           httpapi.NewHandler(mux, d),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("engine listening",
		logger.String("addr", "http://"+addr),
		logger.String("config", userCfgPath),
		logger.String("store", cfg.Store.Driver),
		logger.String("token_file", tokenPath),
		logger.Bool("data_source_configured", ds.Configured()),
	)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("engine stopped")
	return nil
}
