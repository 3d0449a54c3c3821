package port

import (
	"context"
	"time"

	"rent-watch-service/internal/core/domain"
)

// ListingStoragePort — контракт хранилища объявлений.
type ListingStoragePort interface {
	// InsertIfAbsent сохраняет запись, если записи с таким id ещё нет.
	// Возвращает true, если запись была вставлена. Повторная вставка
	// того же id — no-op, не ошибка.
	InsertIfAbsent(ctx context.Context, rec domain.ListingRecord) (bool, error)

	// QueryNewer возвращает записи с observed_at строго больше since,
	// проходящие через фильтр, отсортированные по observed_at по
	// возрастанию, не более limit штук.
	QueryNewer(ctx context.Context, since time.Time, filter domain.SearchFilter, limit int) ([]domain.ListingRecord, error)
}
