package port

import (
	"context"

	"rent-watch-service/internal/core/domain"
)

// ListingEventsPort публикует события о новых объявлениях для
// внешних потребителей (аналитика, дедупликация, витрины).
type ListingEventsPort interface {
	PublishNewListing(ctx context.Context, rec domain.ListingRecord) error
}
