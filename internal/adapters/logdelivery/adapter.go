package logdelivery

import (
	"context"

	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
)

// LogDeliveryAdapter пишет уведомления в лог вместо брокера.
// Используется при выключенном RabbitMQ (локальная отладка парсинга).
type LogDeliveryAdapter struct {
	logger port.LoggerPort
}

var _ port.DeliveryPort = (*LogDeliveryAdapter)(nil)

// NewLogDeliveryAdapter - конструктор
func NewLogDeliveryAdapter(logger port.LoggerPort) *LogDeliveryAdapter {
	return &LogDeliveryAdapter{
		logger: logger.WithFields(port.Fields{"component": "LogDeliveryAdapter"}),
	}
}

func (a *LogDeliveryAdapter) Deliver(ctx context.Context, chatID int64, rec domain.ListingRecord) error {
	a.logger.Info("Notification (broker disabled)", port.Fields{
		"chat_id":    chatID,
		"listing_id": rec.ID,
		"title":      rec.Title,
		"price":      rec.Price,
		"url":        rec.URL,
	})
	return nil
}

func (a *LogDeliveryAdapter) DeliverNotice(ctx context.Context, chatID int64, text string) error {
	a.logger.Info("Service notice (broker disabled)", port.Fields{
		"chat_id": chatID,
		"text":    text,
	})
	return nil
}
