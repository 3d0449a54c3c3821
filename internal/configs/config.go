package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"rent-watch-service/internal/constants"

	"github.com/joho/godotenv"
)

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL string
}

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	URL     string
	Enabled bool
}

// FetcherConfig — настройки получения страницы выдачи.
type FetcherConfig struct {
	FeedURL string
	// Headless == false полезен локально: капчу приходится проходить руками.
	Headless        bool
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration
}

// IngestConfig — настройки цикла парсинга.
type IngestConfig struct {
	Interval               time.Duration
	MaxConsecutiveFailures int
}

// NotifyConfig — настройки циклов уведомлений подписчиков.
type NotifyConfig struct {
	PollInterval time.Duration
	GraceWindow  time.Duration
	PageLimit    int
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	HTTPPort     string
	Database     DBconfig
	RabbitMQ     RabbitMQConfig
	Fetcher      FetcherConfig
	Ingest       IngestConfig
	Notify       NotifyConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		// Отсутствие .env не фатально: в контейнере переменные приходят из окружения.
		log.Printf("Info: Could not load .env file (path: %v): %v.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "rent-watch-service")
	cfg.HTTPPort = getEnvAsString("HTTP_PORT", "8080")

	// Читаем DATABASE URL
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// RabbitMQ опционален: без него уведомления и события не публикуются.
	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
	}

	cfg.Fetcher.FeedURL = getEnvAsString("FEED_URL", constants.DefaultFeedURL)
	cfg.Fetcher.Headless = getEnvAsBool("FETCHER_HEADLESS", true)
	cfg.Fetcher.PageLoadTimeout = time.Duration(getEnvAsInt("FETCHER_TIMEOUT_SECONDS", 120)) * time.Second
	cfg.Fetcher.SettleDelay = time.Duration(getEnvAsInt("FETCHER_SETTLE_SECONDS", 20)) * time.Second

	cfg.Ingest.Interval = time.Duration(getEnvAsInt("PARSE_INTERVAL", 300)) * time.Second
	cfg.Ingest.MaxConsecutiveFailures = getEnvAsInt("MAX_CONSECUTIVE_FAILURES", 5)

	cfg.Notify.PollInterval = time.Duration(getEnvAsInt("POLL_INTERVAL", 300)) * time.Second
	cfg.Notify.GraceWindow = time.Duration(getEnvAsInt("GRACE_WINDOW_SECONDS", 60)) * time.Second
	cfg.Notify.PageLimit = getEnvAsInt("NOTIFY_PAGE_LIMIT", 100)

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	return cfg, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
