package avitofetcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"rent-watch-service/internal/constants"
	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/port"

	"github.com/chromedp/chromedp"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config настройки загрузчика страницы выдачи.
type Config struct {
	FeedURL         string
	Headless        bool
	PageLoadTimeout time.Duration // общий бюджет на загрузку страницы
	SettleDelay     time.Duration // пауза после навигации, чтобы успела отработать динамическая подгрузка
}

// AvitoFetcherAdapter отвечает за получение разметки страницы выдачи через headless-браузер.
// Выдача рендерится на клиенте, поэтому обычный HTTP-запрос отдает пустой каркас.
type AvitoFetcherAdapter struct {
	config    Config
	chromeBin string
}

var _ port.MarkupFetcherPort = (*AvitoFetcherAdapter)(nil)

// NewAvitoFetcherAdapter - конструктор
func NewAvitoFetcherAdapter(cfg Config) (*AvitoFetcherAdapter, error) {
	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("AvitoFetcherAdapter: feed URL is required")
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 120 * time.Second
	}

	return &AvitoFetcherAdapter{
		config:    cfg,
		chromeBin: findChromeBinary(),
	}, nil
}

// FetchMarkup загружает страницу выдачи и возвращает ее итоговую разметку.
// Браузер поднимается на каждый вызов: выдача опрашивается редко, и свежий
// профиль дешевле, чем долгоживущая сессия, которую источник успевает пометить.
func (a *AvitoFetcherAdapter) FetchMarkup(ctx context.Context) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if a.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(a.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Убираем шум chromedp из стандартного лога
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, a.config.PageLoadTimeout)
	defer cancelTimeout()

	logger.Debug("AvitoFetcherAdapter: Navigating to feed page", port.Fields{"url": a.config.FeedURL})

	var markup string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(a.config.FeedURL),
		chromedp.Sleep(a.config.SettleDelay),
		chromedp.WaitVisible(constants.FragmentSelector, chromedp.ByQuery),

		// Скроллим, чтобы подгрузились карточки ниже первого экрана
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(2*time.Second),

		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("AvitoFetcherAdapter: failed to fetch feed markup: %w", err)
	}

	logger.Debug("AvitoFetcherAdapter: Feed markup fetched", port.Fields{"bytes": len(markup)})
	return markup, nil
}

// findChromeBinary ищет бинарник Chrome/Chromium.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}
