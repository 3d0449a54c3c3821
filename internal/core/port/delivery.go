package port

import (
	"context"

	"rent-watch-service/internal/core/domain"
)

// DeliveryPort — канал доставки уведомлений подписчику.
// Ошибка доставки одной записи не фатальна для цикла уведомлений.
type DeliveryPort interface {
	Deliver(ctx context.Context, chatID int64, rec domain.ListingRecord) error

	// DeliverNotice отправляет подписчику служебное текстовое сообщение
	// (например, о неустранимой ошибке поиска).
	DeliverNotice(ctx context.Context, chatID int64, text string) error
}
