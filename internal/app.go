package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"rent-watch-service/internal/adapters/avitofetcher"
	"rent-watch-service/internal/adapters/htmlfragments"
	"rent-watch-service/internal/adapters/logdelivery"
	logger_adapter "rent-watch-service/internal/adapters/logger"
	postgres_adapter "rent-watch-service/internal/adapters/postgres"
	rabbitmq_adapter "rent-watch-service/internal/adapters/rabbitmq"
	"rent-watch-service/internal/adapters/rest"
	"rent-watch-service/internal/configs"
	"rent-watch-service/internal/constants"
	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/port"
	"rent-watch-service/internal/core/port/usecases_port"
	"rent-watch-service/internal/core/usecase"
	fluentlogger "rent-watch-service/pkg/fluent_logger"
	"rent-watch-service/pkg/postgres"
	"rent-watch-service/pkg/rabbitmq/rabbitmq_common"
	"rent-watch-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher
	fluentClient  *fluent.Fluent
	logger        port.LoggerPort
	baseLogger    port.LoggerPort

	ingestUC   usecases_port.IngestCycleUseCasePort
	notifyUC   *usecase.NotifySubscribersUseCase
	restServer *rest.Server
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false, // текстовый формат
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	// Добавляем Fluent Bit логгер, если он включен в конфигурации
	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	// --- 2. СОЗДАЕМ БАЗОВЫЙ ЛОГГЕР ПРИЛОЖЕНИЯ С КОНТЕКСТОМ ---
	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 3. НИЗКОУРОВНЕВЫЕ ЗАВИСИМОСТИ ---
	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	listingStorage, err := postgres_adapter.NewPostgresListingAdapter(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create listing storage adapter: %w", err)
	}
	if err := listingStorage.EnsureSchema(context.Background()); err != nil {
		appLogger.Error("Failed to ensure database schema", err, nil)
		dbPool.Close()
		return nil, err
	}
	appLogger.Info("Database schema is ready.", nil)

	var connManager *rabbitmq_common.ConnectionManager
	var eventProducer *rabbitmq_producer.Publisher
	var delivery port.DeliveryPort
	var listingEvents port.ListingEventsPort

	if appConfig.RabbitMQ.Enabled {
		connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
		connManager, err = rabbitmq_common.NewManager(appConfig.RabbitMQ.URL, rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger))
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			dbPool.Close()
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}
		appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

		producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
		producerCfg := rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             constants.ParserExchange,
			ExchangeType:             constants.ExchangeType,
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(producerLogger),
		}
		eventProducer, err = rabbitmq_producer.NewPublisher(producerCfg, connManager)
		if err != nil {
			appLogger.Error("Failed to create event producer", err, port.Fields{"url": appConfig.RabbitMQ.URL})
			connManager.Close()
			dbPool.Close()
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}
		appLogger.Info("RabbitMQ Event Producer initialized.", nil)

		delivery, err = rabbitmq_adapter.NewRabbitMQNotificationAdapter(eventProducer)
		if err != nil {
			eventProducer.Close()
			connManager.Close()
			dbPool.Close()
			return nil, err
		}
		listingEvents, err = rabbitmq_adapter.NewRabbitMQNewListingAdapter(eventProducer)
		if err != nil {
			eventProducer.Close()
			connManager.Close()
			dbPool.Close()
			return nil, err
		}
	} else {
		appLogger.Warn("RabbitMQ is disabled, notifications go to the log only", nil)
		delivery = logdelivery.NewLogDeliveryAdapter(baseLogger)
		listingEvents = nil
	}

	fetcher, err := avitofetcher.NewAvitoFetcherAdapter(avitofetcher.Config{
		FeedURL:         appConfig.Fetcher.FeedURL,
		Headless:        appConfig.Fetcher.Headless,
		PageLoadTimeout: appConfig.Fetcher.PageLoadTimeout,
		SettleDelay:     appConfig.Fetcher.SettleDelay,
	})
	if err != nil {
		appLogger.Error("Failed to create Avito Fetcher Adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize avito fetcher: %w", err)
	}
	decomposer := htmlfragments.NewGoqueryDecomposerAdapter()
	appLogger.Info("All outgoing adapters initialized.", nil)

	// --- 4. ИНИЦИАЛИЗАЦИЯ USE CASES (ядра бизнес-логики) ---
	assembleUC, err := usecase.NewAssembleListingUseCase(constants.BaseOrigin)
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	ingestUC, err := usecase.NewIngestCycleUseCase(
		fetcher,
		decomposer,
		assembleUC,
		listingStorage,
		listingEvents,
		appConfig.Ingest.Interval,
		appConfig.Ingest.MaxConsecutiveFailures,
	)
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	notifyUC, err := usecase.NewNotifySubscribersUseCase(
		usecase.NewSubscriberRegistry(),
		listingStorage,
		delivery,
		appConfig.Notify.PollInterval,
		appConfig.Notify.GraceWindow,
		appConfig.Notify.PageLimit,
	)
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	appLogger.Info("All use cases initialized.", nil)

	// --- 5. ВХОДЯЩИЕ АДАПТЕРЫ ---
	handlers := rest.NewSubscriberHandlers(notifyUC)
	restServer := rest.NewServer(appConfig.HTTPPort, handlers, baseLogger)

	application := &App{
		config:        appConfig,
		dbPool:        dbPool,
		connManager:   connManager,
		eventProducer: eventProducer,
		fluentClient:  fluentClient,
		logger:        appLogger,
		baseLogger:    baseLogger,
		ingestUC:      ingestUC,
		notifyUC:      notifyUC,
		restServer:    restServer,
	}

	return application, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	// Единый контекст приложения для graceful shutdown
	appCtx, cancelApp := context.WithCancel(context.Background())
	appCtx = contextkeys.ContextWithLogger(appCtx, a.baseLogger)

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		// Останавливаем прием команд
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.restServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("Error stopping REST server", err, nil)
		}
		cancelShutdown()

		// Останавливаем циклы уведомлений и дожидаемся их
		a.notifyUC.StopAll(contextkeys.ContextWithLogger(context.Background(), a.baseLogger))

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		if a.eventProducer != nil {
			if err := a.eventProducer.Close(); err != nil {
				a.logger.Error("Error closing event producer", err, nil)
			}
		}
		if a.connManager != nil {
			if err := a.connManager.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
			}
		}
		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			a.logger.Info("Closing Fluent Bit connection...", nil)
			if err := a.fluentClient.Close(); err != nil {
				log.Printf("App: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	fatalErrors := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ingestLogger := a.logger.WithFields(port.Fields{"worker": "ingest_cycle"})
		ingestLogger.Info("Starting ingestion cycle...", nil)

		if err := a.ingestUC.Run(appCtx); err != nil && appCtx.Err() == nil {
			ingestLogger.Error("Ingestion cycle stopped with an unexpected error", err, nil)
			fatalErrors <- fmt.Errorf("ingest cycle error: %w", err)
		} else {
			ingestLogger.Info("Ingestion cycle stopped gracefully.", nil)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.restServer.Start(); err != nil {
			fatalErrors <- fmt.Errorf("rest server error: %w", err)
		}
	}()

	// Ожидание сигнала на завершение или ошибки от одного из компонентов
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case err := <-fatalErrors:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down", nil)
	}

	// Инициируем graceful shutdown, отменяя главный контекст
	cancelApp()

	return nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// Возвращаем безопасное значение по умолчанию
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
