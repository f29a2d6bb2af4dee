package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/erp/shopcore/internal/application/event"
	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/erp/shopcore/internal/infrastructure/cache"
	"github.com/erp/shopcore/internal/infrastructure/config"
	"github.com/erp/shopcore/internal/infrastructure/event"
	"github.com/erp/shopcore/internal/infrastructure/logger"
	"github.com/erp/shopcore/internal/infrastructure/migration"
	"github.com/erp/shopcore/internal/infrastructure/persistence"
	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/erp/shopcore/internal/interfaces/http/handler"
	"github.com/erp/shopcore/internal/interfaces/http/middleware"
	"github.com/erp/shopcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	}
	baseCore, err := logger.NewCore(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := zap.New(baseCore, logger.Options(logCfg)...)
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	exporters, err := telemetry.NewExporters(ctx, telemetry.ExportConfig{
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Traces:            cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		Metrics:           cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsExportInterval,
		Logs:              cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	// Bridge before anything else logs so startup lines reach the collector too
	if exporters.LogsEnabled() {
		log = exporters.BridgeLogger(baseCore, logger.ParseLevel(cfg.Log.Level), logger.Options(logCfg)...)
	}
	defer shutdown(log, "telemetry", exporters.Shutdown)

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("settlement_currency", cfg.Sales.SettlementCurrency),
		zap.String("timezone", cfg.Sales.Timezone),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeAddress,
		ApplicationName:   serviceName,
		BasicAuthUser:     cfg.Telemetry.PyroscopeBasicUser,
		BasicAuthPassword: cfg.Telemetry.PyroscopeBasicPass,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileContention: true,
	}, log)
	if err != nil {
		log.Warn("Profiler unavailable, continuing without it", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Warn("Failed to stop profiler", zap.Error(err))
			}
		}()
	}
	if profiler != nil && profiler.IsEnabled() {
		exporters.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	gormTracer := telemetry.NewGormTracer(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := gormTracer.Attach(db.DB); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	if err := migrate(db, cfg.Database.AutoMigrate, log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	settlement, err := valueobject.ParseCurrency(cfg.Sales.SettlementCurrency)
	if err != nil {
		log.Fatal("Invalid settlement currency", zap.Error(err))
	}
	foreign, err := valueobject.ParseCurrency(cfg.Sales.ForeignCurrency)
	if err != nil {
		log.Fatal("Invalid foreign currency", zap.Error(err))
	}
	location := cfg.Sales.Location()

	// Outbox: domain events are stored in the same transaction as the change
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer).WithMaxRetries(cfg.Event.MaxRetries)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	if err := cacheFactory.Connect(ctx); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Warn("Failed to close cache", zap.Error(err))
		}
	}()

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	postingRepo := persistence.NewGormPostingRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	returnRepo := persistence.NewGormReturnRepository(db.DB)
	rateRepo := cacheFactory.Rates(persistence.NewGormRateRepository(db.DB), cfg.Sales.RateCacheTTL)
	receivableRepo := persistence.NewGormReceivableRepository(db.DB, settlement)
	customerStore := persistence.NewGormCustomerStore(db.DB)

	// Application services
	ledgerService := ledgerapp.NewService(scope.Ledger(), accountRepo, postingRepo, log)
	saleService := salesapp.NewSaleService(scope, saleRepo, returnRepo, rateRepo, salesapp.Config{
		SettlementCurrency: settlement,
		Location:           location,
	}, log)
	rateService := salesapp.NewRateService(rateRepo, settlement, foreign, log)
	receivablesService := salesapp.NewReceivablesService(receivableRepo, saleRepo, customerStore)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:    exporters.Meter("shopcore"),
		Logger:   log,
		Provider: telemetry.NewGormShopMetricsProvider(db.DB),
	})
	if err != nil {
		log.Warn("Business metrics unavailable", zap.Error(err))
	} else {
		ledgerService.SetMetrics(businessMetrics)
		saleService.SetMetrics(businessMetrics)
		if exporters.MetricsEnabled() {
			businessMetrics.StartPeriodicCollection(ctx, 0)
		}
		defer businessMetrics.Stop()
	}

	// Event relay
	eventBus := event.NewInMemoryEventBus(log)
	if cfg.Kafka.Enabled {
		writer, err := event.NewKafkaWriter(event.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		if err != nil {
			log.Fatal("Failed to configure Kafka", zap.Error(err))
		}
		kafkaHandler := event.NewKafkaHandler(writer, serializer, log)
		defer func() {
			if err := kafkaHandler.Close(); err != nil {
				log.Warn("Failed to close Kafka writer", zap.Error(err))
			}
		}()
		eventBus.Subscribe(event.NewIdempotentHandler("kafka", kafkaHandler, cacheFactory.IdempotencyStore(), log))
		log.Info("Kafka relay enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Failed to stop event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
		}, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := processor.Stop(context.Background()); err != nil {
				log.Error("Failed to stop outbox processor", zap.Error(err))
			}
		}()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Close()
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger:           log,
		HTTP:             cfg.HTTP,
		ServiceName:      serviceName,
		Telemetry:        exporters,
		ProfilingEnabled: cfg.Telemetry.ProfilingEnabled,
		RateLimiter:      limiter,
	}, router.Handlers{
		Accounts:    handler.NewAccountHandler(ledgerService),
		Sales:       handler.NewSaleHandler(saleService),
		Rates:       handler.NewRateHandler(rateService, location),
		Receivables: handler.NewReceivableHandler(receivablesService),
		Outbox:      handler.NewOutboxHandler(outboxService),
		System:      handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, db),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("Server stopped unexpectedly", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// migrate applies the embedded SQL migrations, or gorm's AutoMigrate when
// autoMigrate is set for throwaway databases.
func migrate(db *persistence.Database, autoMigrate bool, log *zap.Logger) error {
	if autoMigrate {
		log.Info("Running gorm auto-migration")
		return db.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared *sql.DB
	return m.Up()
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("Failed to shut down "+name, zap.Error(err))
	}
}
