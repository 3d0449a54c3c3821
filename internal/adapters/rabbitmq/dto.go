package rabbitmq

import (
	"time"

	"rent-watch-service/internal/core/domain"
)

// ListingDTO — представление объявления в сообщениях брокера.
type ListingDTO struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	URL              string    `json:"url"`
	Price            int       `json:"price"`
	Commission       int       `json:"commission"`
	Deposit          int       `json:"deposit"`
	AreaSqm          float64   `json:"area_sqm"`
	Floor            int       `json:"floor"`
	BuildingFloors   int       `json:"building_floors"`
	Rooms            int       `json:"rooms"`
	TransitStopName  string    `json:"transit_stop_name"`
	MinutesToTransit int       `json:"minutes_to_transit"`
	ObservedAt       time.Time `json:"observed_at"`
}

// NotificationEventDTO — уведомление для подписчика чата.
type NotificationEventDTO struct {
	ChatID  int64       `json:"chat_id"`
	Listing *ListingDTO `json:"listing,omitempty"`

	// Text заполняется для служебных сообщений без объявления.
	Text string `json:"text,omitempty"`
}

// NewListingEventDTO — событие о впервые увиденном объявлении.
type NewListingEventDTO struct {
	Listing ListingDTO `json:"listing"`
}

func toListingDTO(rec domain.ListingRecord) ListingDTO {
	return ListingDTO{
		ID:               rec.ID,
		Title:            rec.Title,
		URL:              rec.URL,
		Price:            rec.Price,
		Commission:       rec.Commission,
		Deposit:          rec.Deposit,
		AreaSqm:          rec.AreaSqm,
		Floor:            rec.Floor,
		BuildingFloors:   rec.BuildingFloors,
		Rooms:            rec.Rooms,
		TransitStopName:  rec.TransitStopName,
		MinutesToTransit: rec.MinutesToTransit,
		ObservedAt:       rec.ObservedAt,
	}
}
