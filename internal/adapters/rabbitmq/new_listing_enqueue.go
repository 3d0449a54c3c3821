package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rent-watch-service/internal/constants"
	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
	"rent-watch-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQNewListingAdapter публикует события о впервые увиденных объявлениях
type RabbitMQNewListingAdapter struct {
	producer   *rabbitmq_producer.Publisher
	routingKey string
}

var _ port.ListingEventsPort = (*RabbitMQNewListingAdapter)(nil)

// NewRabbitMQNewListingAdapter создает новый экземпляр
func NewRabbitMQNewListingAdapter(producer *rabbitmq_producer.Publisher) (*RabbitMQNewListingAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	return &RabbitMQNewListingAdapter{
		producer:   producer,
		routingKey: constants.RoutingKeyNewListings,
	}, nil
}

// PublishNewListing отправляет событие о новом объявлении
func (a *RabbitMQNewListingAdapter) PublishNewListing(ctx context.Context, rec domain.ListingRecord) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "RabbitMQNewListingAdapter",
		"routing_key": a.routingKey,
		"listing_id":  rec.ID,
	})

	eventJSON, err := json.Marshal(NewListingEventDTO{Listing: toListingDTO(rec)})
	if err != nil {
		adapterLogger.Error("Failed to marshal new listing event to JSON", err, nil)
		return fmt.Errorf("failed to marshal new listing event for %d: %w", rec.ID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         eventJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"event-type":    "NewListingEvent",
			"event-version": "1.0.0",
		},
	}

	traceID := contextkeys.TraceIDFromContext(ctx)
	if traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish new listing event", err, nil)
		return err
	}

	adapterLogger.Debug("New listing event published", nil)
	return nil
}
