package usecases_port

import (
	"context"

	"rent-watch-service/internal/core/domain"
)

// NotifySubscribersUseCasePort — командная поверхность управления
// фоновыми циклами уведомлений (вызывается фронтендом чата).
type NotifySubscribersUseCasePort interface {
	// Start запускает фоновый цикл для подписчика. Если цикл уже
	// запущен, возвращает domain.ErrAlreadySearching.
	Start(ctx context.Context, chatID int64, filter domain.SearchFilter) error

	// Stop останавливает цикл и дожидается его завершения. Если цикл
	// не запущен, возвращает domain.ErrNotSearching.
	Stop(ctx context.Context, chatID int64) error

	// SetFilter обновляет фильтр подписчика; применяется со следующей
	// итерации цикла.
	SetFilter(ctx context.Context, chatID int64, filter domain.SearchFilter) error

	// State возвращает копию текущего состояния подписчика.
	State(ctx context.Context, chatID int64) (domain.SubscriberState, error)

	// StopAll останавливает все активные циклы (graceful shutdown).
	StopAll(ctx context.Context)
}
