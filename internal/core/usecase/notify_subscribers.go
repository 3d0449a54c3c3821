package usecase

import (
	"context"
	"fmt"
	"time"

	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
)

// criticalFailureNotice отправляется подписчику при неустранимой
// ошибке его фонового цикла.
const criticalFailureNotice = "Произошла критическая ошибка в поиске. Перезапустите поиск."

// NotifySubscribersUseCase управляет фоновыми циклами уведомлений:
// по одной отменяемой задаче на подписчика с активным поиском. Каждый
// цикл опрашивает хранилище на записи новее водяного знака подписчика,
// доставляет совпадения и продвигает водяной знак.
type NotifySubscribersUseCase struct {
	registry *SubscriberRegistry
	storage  port.ListingStoragePort
	delivery port.DeliveryPort

	pollInterval time.Duration
	graceWindow  time.Duration
	pageLimit    int
}

// NewNotifySubscribersUseCase создает новый экземпляр use case.
func NewNotifySubscribersUseCase(
	registry *SubscriberRegistry,
	storage port.ListingStoragePort,
	delivery port.DeliveryPort,
	pollInterval time.Duration,
	graceWindow time.Duration,
	pageLimit int,
) (*NotifySubscribersUseCase, error) {
	if registry == nil || storage == nil || delivery == nil {
		return nil, fmt.Errorf("notify subscribers: registry, storage and delivery are required")
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("notify subscribers: poll interval must be positive")
	}
	if pageLimit <= 0 {
		return nil, fmt.Errorf("notify subscribers: page limit must be positive")
	}
	return &NotifySubscribersUseCase{
		registry:     registry,
		storage:      storage,
		delivery:     delivery,
		pollInterval: pollInterval,
		graceWindow:  graceWindow,
		pageLimit:    pageLimit,
	}, nil
}

// Start запускает фоновый цикл для подписчика. Водяной знак
// сбрасывается на «сейчас минус грейс-окно», чтобы не терять записи
// из-за расхождения часов между вставкой и подпиской.
func (uc *NotifySubscribersUseCase) Start(ctx context.Context, chatID int64, filter domain.SearchFilter) error {
	logger := contextkeys.LoggerFromContext(ctx)
	entry := uc.registry.getOrCreate(chatID)

	entry.mu.Lock()
	if entry.state.Searching {
		entry.mu.Unlock()
		return domain.ErrAlreadySearching
	}

	entry.state.Searching = true
	entry.state.Filter = filter
	entry.state.Watermark = time.Now().UTC().Add(-uc.graceWindow)

	// Цикл живет дольше запроса, поэтому наследуем только логгер,
	// а не дедлайн входящего контекста.
	loopCtx, cancel := context.WithCancel(context.Background())
	loopCtx = contextkeys.ContextWithLogger(loopCtx, logger)

	done := make(chan struct{})
	entry.cancel = cancel
	entry.done = done
	watermark := entry.state.Watermark
	entry.mu.Unlock()

	logger.Info("Subscriber search started", port.Fields{
		"chat_id":   chatID,
		"watermark": watermark.Format(time.RFC3339),
	})

	go uc.runLoop(loopCtx, chatID, entry, done)
	return nil
}

// Stop останавливает цикл подписчика и дожидается его завершения.
// Отмена кооперативная: доставка текущей пачки всегда завершается.
func (uc *NotifySubscribersUseCase) Stop(ctx context.Context, chatID int64) error {
	logger := contextkeys.LoggerFromContext(ctx)
	entry := uc.registry.getOrCreate(chatID)

	entry.mu.Lock()
	if !entry.state.Searching {
		entry.mu.Unlock()
		return domain.ErrNotSearching
	}
	cancel := entry.cancel
	done := entry.done
	entry.state.Searching = false
	entry.cancel = nil
	entry.done = nil
	entry.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	logger.Info("Subscriber search stopped", port.Fields{"chat_id": chatID})
	return nil
}

// SetFilter обновляет фильтр подписчика. Итерация цикла, находящаяся
// в полёте, доделывает работу со своим снимком фильтра; новый фильтр
// применяется со следующей итерации.
func (uc *NotifySubscribersUseCase) SetFilter(ctx context.Context, chatID int64, filter domain.SearchFilter) error {
	entry := uc.registry.getOrCreate(chatID)

	entry.mu.Lock()
	entry.state.Filter = filter
	entry.mu.Unlock()

	contextkeys.LoggerFromContext(ctx).Info("Subscriber filter updated", port.Fields{"chat_id": chatID})
	return nil
}

// State возвращает копию текущего состояния подписчика.
func (uc *NotifySubscribersUseCase) State(ctx context.Context, chatID int64) (domain.SubscriberState, error) {
	entry := uc.registry.getOrCreate(chatID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	state := entry.state
	state.Filter.Rooms = append([]int(nil), entry.state.Filter.Rooms...)
	return state, nil
}

// StopAll останавливает все активные циклы. Используется при
// graceful shutdown, чтобы не оставлять осиротевшие задачи.
func (uc *NotifySubscribersUseCase) StopAll(ctx context.Context) {
	for _, chatID := range uc.registry.activeIDs() {
		if err := uc.Stop(ctx, chatID); err != nil {
			contextkeys.LoggerFromContext(ctx).Warn("Failed to stop subscriber loop", port.Fields{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		}
	}
}

// runLoop — тело фонового цикла одного подписчика. Отмена проверяется
// на вершине цикла; I/O выполняется с отвязанным от отмены контекстом,
// чтобы пачка в полёте всегда доезжала до конца.
func (uc *NotifySubscribersUseCase) runLoop(ctx context.Context, chatID int64, entry *subscriberEntry, done chan struct{}) {
	defer close(done)

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "NotifySubscribers.loop",
		"chat_id":  chatID,
	})
	ioCtx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in subscriber loop", fmt.Errorf("%v", r), nil)
			uc.markStopped(entry, done)
			if nerr := uc.delivery.DeliverNotice(ioCtx, chatID, criticalFailureNotice); nerr != nil {
				logger.Error("Failed to deliver failure notice", nerr, nil)
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			logger.Debug("Subscriber loop leaving on cancellation", nil)
			return
		}

		// Снимок водяного знака и фильтра: команда stop, пришедшая во
		// время итерации, не портит уже начатый запрос.
		entry.mu.Lock()
		since := entry.state.Watermark
		filter := entry.state.Filter
		entry.mu.Unlock()

		records, err := uc.storage.QueryNewer(ioCtx, since, filter, uc.pageLimit)
		if err != nil {
			// Ошибка хранилища — преходящий сбой итерации, цикл живет.
			logger.Error("Poll iteration failed, will retry next tick", err, port.Fields{
				"since": since.Format(time.RFC3339),
			})
		} else {
			if len(records) == uc.pageLimit {
				logger.Warn("Poll page limit reached, there may be more matching listings", port.Fields{
					"limit": uc.pageLimit,
				})
			}

			uc.deliverBatch(ioCtx, logger, chatID, records)

			if len(records) > 0 {
				uc.advanceWatermark(entry, done, maxObservedAt(records))
			}
		}

		select {
		case <-ctx.Done():
			logger.Debug("Subscriber loop leaving on cancellation", nil)
			return
		case <-time.After(uc.pollInterval):
		}
	}
}

// deliverBatch доставляет пачку записей; сбой доставки одной записи
// логируется и не блокирует остальные.
func (uc *NotifySubscribersUseCase) deliverBatch(ctx context.Context, logger port.LoggerPort, chatID int64, records []domain.ListingRecord) {
	delivered := 0
	for _, rec := range records {
		if err := uc.delivery.Deliver(ctx, chatID, rec); err != nil {
			logger.Error("Failed to deliver listing", err, port.Fields{"listing_id": rec.ID})
			continue
		}
		delivered++
	}
	if len(records) > 0 {
		logger.Info("Batch delivered", port.Fields{
			"matched":   len(records),
			"delivered": delivered,
		})
	}
}

// advanceWatermark продвигает водяной знак до максимального observed_at
// доставленной пачки — не до «сейчас», чтобы расхождение часов между
// вставкой и запросом не создавало дыр. Старое поколение цикла (после
// stop→start) состояние не трогает.
func (uc *NotifySubscribersUseCase) advanceWatermark(entry *subscriberEntry, done chan struct{}, observed time.Time) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.done != done && entry.done != nil {
		return
	}
	if observed.After(entry.state.Watermark) {
		entry.state.Watermark = observed
	}
}

// markStopped переводит подписчика в остановленное состояние, если
// запись все еще принадлежит этому поколению цикла.
func (uc *NotifySubscribersUseCase) markStopped(entry *subscriberEntry, done chan struct{}) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.done != done {
		return
	}
	entry.state.Searching = false
	if entry.cancel != nil {
		entry.cancel()
	}
	entry.cancel = nil
	entry.done = nil
}

func maxObservedAt(records []domain.ListingRecord) time.Time {
	var max time.Time
	for _, rec := range records {
		if rec.ObservedAt.After(max) {
			max = rec.ObservedAt
		}
	}
	return max
}
