package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/orderflow/orderflow/config"
	"github.com/orderflow/orderflow/pkg/api"
	"github.com/orderflow/orderflow/pkg/api/handlers"
	"github.com/orderflow/orderflow/pkg/eventbus"
	"github.com/orderflow/orderflow/pkg/idempotency"
	"github.com/orderflow/orderflow/pkg/logger"
	"github.com/orderflow/orderflow/pkg/metrics"
	"github.com/orderflow/orderflow/pkg/order"
	"github.com/orderflow/orderflow/pkg/saga"
	"github.com/orderflow/orderflow/pkg/steps/inventory"
	"github.com/orderflow/orderflow/pkg/steps/payment"
	"github.com/orderflow/orderflow/pkg/steps/validation"
	"github.com/orderflow/orderflow/pkg/telemetry/tracing"
	"github.com/orderflow/orderflow/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	appName    = flag.String("app-name", "", "Override app name")
	serverPort = flag.Int("port", 0, "Override server port")
	logLevel   = flag.String("log-level", "", "Override log level")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
)

// Demo catalog seeded at startup. Replaced by real product data once an
// upstream catalog service exists.
var seedStock = map[string]int{
	"COMIC_BOOKS": 4,
	"BOOKS":       2,
	"MOVIES":      5,
	"MUSIC":       9,
}

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	overrides := buildOverrides()

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting Orderflow",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)

	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("Error shutting down tracing", "error", err)
		}
	}()

	// Initialize the idempotency and order storage backends.
	var (
		idemStore  idempotency.Store
		orderStore order.Store
	)
	switch cfg.Storage.Type {
	case "badger":
		opts := badger.DefaultOptions(cfg.Storage.Badger.Path).
			WithSyncWrites(cfg.Storage.Badger.SyncWrites).
			WithLogger(nil)
		if cfg.Storage.Badger.ValueLogFileSize > 0 {
			opts = opts.WithValueLogFileSize(cfg.Storage.Badger.ValueLogFileSize)
		}
		if cfg.Storage.Badger.NumVersionsToKeep > 0 {
			opts = opts.WithNumVersionsToKeep(cfg.Storage.Badger.NumVersionsToKeep)
		}
		db, err := badger.Open(opts)
		if err != nil {
			log.Error("Failed to open Badger database", "error", err, "path", cfg.Storage.Badger.Path)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing Badger database", "error", err)
			}
		}()
		idemStore, err = idempotency.NewBadgerStore(db)
		if err != nil {
			log.Error("Failed to create Badger idempotency store", "error", err)
			os.Exit(1)
		}
		orderStore, err = order.NewBadgerStore(db)
		if err != nil {
			log.Error("Failed to create Badger order store", "error", err)
			os.Exit(1)
		}
		log.Info("Initialized Badger storage", "path", cfg.Storage.Badger.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing Redis client", "error", err)
			}
		}()
		idemStore, err = idempotency.NewRedisStore(client, idempotency.RedisStoreConfig{
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
			TTL:       cfg.Storage.Redis.TTL,
		})
		if err != nil {
			log.Error("Failed to create Redis idempotency store", "error", err)
			os.Exit(1)
		}
		orderStore = order.NewMemoryStore()
		log.Info("Initialized Redis idempotency storage", "address", cfg.Storage.Redis.Address)
	case "memory":
		idemStore = idempotency.NewMemoryStore()
		orderStore = order.NewMemoryStore()
		log.Info("Initialized memory storage")
	default:
		idemStore = idempotency.NewMemoryStore()
		orderStore = order.NewMemoryStore()
		log.Warn("Unknown storage type, using memory storage", "type", cfg.Storage.Type)
	}

	metricsCfg := metrics.Config{
		Enabled:             cfg.Metrics.Enabled,
		Port:                cfg.Metrics.Port,
		Path:                cfg.Metrics.Path,
		HTTPDurationBuckets: metrics.DefaultConfig().HTTPDurationBuckets,
	}
	metricsManager := metrics.NewManager(metricsCfg)

	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Wire the message fabric: in-memory bus plus a retrying publisher
	// shared by the orchestrator, the step workers, and the order service.
	bus := eventbus.NewMemoryBus()
	publisher, err := eventbus.NewPublisher(bus, eventbus.RetryConfig{
		MaxRetries:     cfg.Broker.Retry.MaxRetries,
		InitialBackoff: cfg.Broker.Retry.InitialBackoff,
		MaxBackoff:     cfg.Broker.Retry.MaxBackoff,
		BackoffFactor:  cfg.Broker.Retry.BackoffFactor,
	}, metricsManager)
	if err != nil {
		log.Error("Failed to create publisher", "error", err)
		os.Exit(1)
	}

	router, err := saga.NewRouter(saga.DefaultTable(), publisher, log, saga.WithRouterMetrics(metricsManager))
	if err != nil {
		log.Error("Failed to create saga router", "error", err)
		os.Exit(1)
	}
	orchestrator, err := saga.NewOrchestratorWorker(router, bus, log)
	if err != nil {
		log.Error("Failed to create orchestrator worker", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := orchestrator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Orchestrator worker stopped", "error", err)
		}
	}()

	codes := make([]string, 0, len(seedStock))
	for code := range seedStock {
		codes = append(codes, code)
	}
	stepActions := []struct {
		cfg    saga.StepConfig
		action saga.Action
	}{
		{
			cfg: saga.StepConfig{
				Source:        saga.SourceProductValidation,
				ForwardTopic:  saga.TopicProductValidationStart,
				RollbackTopic: saga.TopicProductValidationRollback,
			},
			action: validation.NewService(codes...),
		},
		{
			cfg: saga.StepConfig{
				Source:        saga.SourcePayment,
				ForwardTopic:  saga.TopicPaymentStart,
				RollbackTopic: saga.TopicPaymentRollback,
			},
			action: payment.NewService(),
		},
		{
			cfg: saga.StepConfig{
				Source:        saga.SourceInventory,
				ForwardTopic:  saga.TopicInventoryStart,
				RollbackTopic: saga.TopicInventoryRollback,
			},
			action: inventory.NewService(seedStock),
		},
	}
	for _, step := range stepActions {
		worker, err := saga.NewStepWorker(step.cfg, step.action, idemStore, publisher, log,
			saga.WithStepMetrics(metricsManager))
		if err != nil {
			log.Error("Failed to create step worker", "error", err, "step", string(step.cfg.Source))
			os.Exit(1)
		}
		go func() {
			if err := worker.Run(ctx, bus); err != nil && ctx.Err() == nil {
				log.Error("Step worker stopped", "error", err, "step", string(step.cfg.Source))
			}
		}()
	}

	orderService, err := order.NewService(orderStore, publisher, log)
	if err != nil {
		log.Error("Failed to create order service", "error", err)
		os.Exit(1)
	}
	notifyWorker, err := order.NewNotifyWorker(orderStore, bus, log, cfg.Saga.SubscribeBuffer)
	if err != nil {
		log.Error("Failed to create notify worker", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := notifyWorker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Notify worker stopped", "error", err)
		}
	}()

	apiHandlers := &api.Handlers{
		Orders:  handlers.NewOrderHandler(orderService),
		Health:  handlers.NewHealthHandler(publisher.Degraded),
		Metrics: metricsManager,
	}

	httpServer := api.NewHTTPServer(cfg, log, apiHandlers)

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		if err := httpServer.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	log.Info("Orderflow is running",
		"http_port", cfg.Server.Port,
		"metrics_port", cfg.Metrics.Port,
		"storage", cfg.Storage.Type,
	)
	log.Info("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErrChan:
		log.Error("HTTP server error", "error", err)
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", "error", err)
	}

	// Stop the workers, then let deferred closers flush storage and traces.
	cancel()

	log.Info("Orderflow stopped gracefully")
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *serverPort != 0 {
		overrides["server.port"] = *serverPort
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("Orderflow - Saga Orchestration Service\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("Orderflow - Choreographed order fulfillment via an orchestrated saga\n\n")
	fmt.Printf("Usage: orderflow [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  orderflow                                 # Run with default config\n")
	fmt.Printf("  orderflow -config config.yaml             # Use specific config file\n")
	fmt.Printf("  orderflow -port 9090 -log-level debug     # Override specific options\n")
	fmt.Printf("  orderflow -version                        # Print version info\n")
}
