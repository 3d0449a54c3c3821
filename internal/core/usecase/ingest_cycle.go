package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
	"rent-watch-service/internal/core/port/usecases_port"
)

// IngestCycleUseCase — периодический цикл парсинга: получает разметку,
// разбирает её на фрагменты, собирает записи и идемпотентно сохраняет
// новые. Цикл с фиксированным интервалом, без экспоненциального
// backoff; после maxConsecutiveFailures последовательных ошибок цикла
// Run возвращает ошибку владельцу процесса.
type IngestCycleUseCase struct {
	fetcher   port.MarkupFetcherPort
	decompose port.FragmentDecomposerPort
	assembler usecases_port.AssembleListingUseCasePort
	storage   port.ListingStoragePort
	events    port.ListingEventsPort // может быть nil, если публикация выключена

	interval               time.Duration
	maxConsecutiveFailures int
}

// NewIngestCycleUseCase создает новый экземпляр use case.
func NewIngestCycleUseCase(
	fetcher port.MarkupFetcherPort,
	decompose port.FragmentDecomposerPort,
	assembler usecases_port.AssembleListingUseCasePort,
	storage port.ListingStoragePort,
	events port.ListingEventsPort,
	interval time.Duration,
	maxConsecutiveFailures int,
) (*IngestCycleUseCase, error) {
	if fetcher == nil || decompose == nil || assembler == nil || storage == nil {
		return nil, fmt.Errorf("ingest cycle: fetcher, decomposer, assembler and storage are required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("ingest cycle: interval must be positive")
	}
	if maxConsecutiveFailures <= 0 {
		return nil, fmt.Errorf("ingest cycle: failure threshold must be positive")
	}
	return &IngestCycleUseCase{
		fetcher:                fetcher,
		decompose:              decompose,
		assembler:              assembler,
		storage:                storage,
		events:                 events,
		interval:               interval,
		maxConsecutiveFailures: maxConsecutiveFailures,
	}, nil
}

// Run блокируется до отмены контекста либо до превышения порога
// последовательных ошибок. Первый проход выполняется сразу, далее —
// по тикам фиксированного интервала.
func (uc *IngestCycleUseCase) Run(ctx context.Context) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "IngestCycle"})
	logger.Info("Ingestion cycle started", port.Fields{
		"interval":          uc.interval.String(),
		"failure_threshold": uc.maxConsecutiveFailures,
	})

	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	for {
		if err := uc.runOnce(ctx, logger); err != nil {
			if ctx.Err() != nil {
				logger.Info("Ingestion cycle stopped by context", nil)
				return nil
			}

			consecutiveFailures++
			logger.Error("Ingestion pass failed", err, port.Fields{
				"consecutive_failures": consecutiveFailures,
				"failure_threshold":    uc.maxConsecutiveFailures,
			})

			if consecutiveFailures >= uc.maxConsecutiveFailures {
				// Дальше молча ретраить нельзя: лента протухла.
				return fmt.Errorf("ingest cycle: %d consecutive failures, giving up: %w",
					consecutiveFailures, err)
			}
		} else {
			consecutiveFailures = 0
		}

		select {
		case <-ctx.Done():
			logger.Info("Ingestion cycle stopped by context", nil)
			return nil
		case <-ticker.C:
		}
	}
}

// runOnce выполняет один проход «fetch → decompose → assemble → insert».
// Ошибка возвращается только для сбоя всего прохода; испорченные
// фрагменты и ошибки вставки отдельных записей логируются и пропускаются.
func (uc *IngestCycleUseCase) runOnce(ctx context.Context, logger port.LoggerPort) error {
	started := time.Now()

	markup, err := uc.fetcher.FetchMarkup(ctx)
	if err != nil {
		return fmt.Errorf("fetch markup: %w", err)
	}

	fragments, err := uc.decompose.Decompose(markup)
	if err != nil {
		return fmt.Errorf("decompose markup: %w", err)
	}

	assembled := 0
	skipped := 0
	inserted := 0

	for _, fragment := range fragments {
		rec, aerr := uc.assembler.Execute(ctx, fragment)
		if aerr != nil {
			if errors.Is(aerr, domain.ErrFragmentSkipped) {
				skipped++
				continue
			}
			skipped++
			logger.Warn("Unexpected assembler error, skipping fragment", port.Fields{
				"id_attr": fragment.IDAttr,
				"error":   aerr.Error(),
			})
			continue
		}
		assembled++

		// Момент наблюдения ставит сторона вставки: от него считаются
		// водяные знаки подписчиков.
		rec.ObservedAt = time.Now().UTC()

		ok, serr := uc.storage.InsertIfAbsent(ctx, *rec)
		if serr != nil {
			logger.Error("Failed to insert listing, continuing with the batch", serr, port.Fields{
				"listing_id": rec.ID,
			})
			continue
		}
		if !ok {
			continue // уже видели этот id
		}
		inserted++

		uc.publishNewListing(ctx, logger, *rec)
	}

	logger.Info("Ingestion pass finished", port.Fields{
		"fragments":   len(fragments),
		"assembled":   assembled,
		"skipped":     skipped,
		"inserted":    inserted,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return nil
}

// publishNewListing публикует событие о новой записи; сбой публикации
// не влияет на результат прохода.
func (uc *IngestCycleUseCase) publishNewListing(ctx context.Context, logger port.LoggerPort, rec domain.ListingRecord) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishNewListing(ctx, rec); err != nil {
		logger.Warn("Failed to publish new listing event", port.Fields{
			"listing_id": rec.ID,
			"error":      err.Error(),
		})
	}
}
