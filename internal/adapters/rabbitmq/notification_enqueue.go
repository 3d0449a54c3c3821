package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"rent-watch-service/internal/constants"
	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
	"rent-watch-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQNotificationAdapter доставляет уведомления подписчикам через брокер.
// Очередь конкретного чата объявляет и привязывает внешний фронтенд чата,
// адаптер только публикует в обменник с ключом notifications.<chat_id>.
type RabbitMQNotificationAdapter struct {
	producer *rabbitmq_producer.Publisher
}

var _ port.DeliveryPort = (*RabbitMQNotificationAdapter)(nil)

// NewRabbitMQNotificationAdapter создает новый экземпляр
func NewRabbitMQNotificationAdapter(producer *rabbitmq_producer.Publisher) (*RabbitMQNotificationAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	return &RabbitMQNotificationAdapter{producer: producer}, nil
}

// Deliver отправляет подписчику уведомление о новом объявлении
func (a *RabbitMQNotificationAdapter) Deliver(ctx context.Context, chatID int64, rec domain.ListingRecord) error {
	listingDTO := toListingDTO(rec)
	return a.publish(ctx, chatID, NotificationEventDTO{
		ChatID:  chatID,
		Listing: &listingDTO,
	}, "ListingNotificationEvent")
}

// DeliverNotice отправляет подписчику служебное текстовое сообщение
func (a *RabbitMQNotificationAdapter) DeliverNotice(ctx context.Context, chatID int64, text string) error {
	return a.publish(ctx, chatID, NotificationEventDTO{
		ChatID: chatID,
		Text:   text,
	}, "ServiceNoticeEvent")
}

func (a *RabbitMQNotificationAdapter) publish(ctx context.Context, chatID int64, event NotificationEventDTO, eventType string) error {
	logger := contextkeys.LoggerFromContext(ctx)
	routingKey := constants.RoutingKeyNotificationsPrefix + strconv.FormatInt(chatID, 10)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "RabbitMQNotificationAdapter",
		"routing_key": routingKey,
		"chat_id":     chatID,
	})

	eventJSON, err := json.Marshal(event)
	if err != nil {
		adapterLogger.Error("Failed to marshal notification to JSON", err, nil)
		return fmt.Errorf("failed to marshal notification for chat %d: %w", chatID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         eventJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"event-type":    eventType,
			"event-version": "1.0.0",
		},
	}

	traceID := contextkeys.TraceIDFromContext(ctx)
	if traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish notification", err, nil)
		return err
	}

	adapterLogger.Debug("Notification published", port.Fields{"event_type": eventType})
	return nil
}
