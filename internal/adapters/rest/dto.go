package rest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rent-watch-service/internal/core/domain"
)

// StartSearchRequestDTO - тело POST-запроса на запуск поиска.
// Фильтры принимаются в том же свободном формате, в котором их
// вводит пользователь чата: "30000-60000" для цены, "0,1,2" для комнат.
type StartSearchRequestDTO struct {
	Price string `json:"price,omitempty"` // "мин-макс", "-макс", "мин-" или просто минимум
	Rooms string `json:"rooms,omitempty"` // перечисление через запятую, 0 = студия
}

// SetFilterRequestDTO - тело PUT-запроса на смену фильтра.
type SetFilterRequestDTO struct {
	Price string `json:"price,omitempty"`
	Rooms string `json:"rooms,omitempty"`
}

// SubscriberStateDTO - ответ на запрос состояния подписчика.
type SubscriberStateDTO struct {
	ChatID    int64      `json:"chat_id"`
	Searching bool       `json:"searching"`
	Watermark *time.Time `json:"watermark,omitempty"`
	Price     string     `json:"price,omitempty"`
	Rooms     string     `json:"rooms,omitempty"`
}

// parseFilter превращает свободный ввод пользователя в доменный фильтр.
func parseFilter(price, rooms string) (domain.SearchFilter, error) {
	var filter domain.SearchFilter

	price = strings.TrimSpace(price)
	if price != "" && !strings.Contains(price, "-") {
		// Пользователь может прислать один минимум: "40000".
		v, err := strconv.Atoi(price)
		if err != nil {
			return filter, fmt.Errorf("invalid minimum price %q", price)
		}
		filter.MinPrice = &v
	} else if price != "" {
		parts := strings.SplitN(price, "-", 2)
		if low := strings.TrimSpace(parts[0]); low != "" {
			v, err := strconv.Atoi(low)
			if err != nil {
				return filter, fmt.Errorf("invalid minimum price %q", low)
			}
			filter.MinPrice = &v
		}
		if high := strings.TrimSpace(parts[1]); high != "" {
			v, err := strconv.Atoi(high)
			if err != nil {
				return filter, fmt.Errorf("invalid maximum price %q", high)
			}
			filter.MaxPrice = &v
		}
		if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
			return filter, fmt.Errorf("minimum price %d is greater than maximum %d", *filter.MinPrice, *filter.MaxPrice)
		}
	}

	rooms = strings.TrimSpace(rooms)
	if rooms != "" {
		for _, token := range strings.Split(rooms, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			v, err := strconv.Atoi(token)
			if err != nil || v < 0 {
				return filter, fmt.Errorf("invalid rooms value %q", token)
			}
			filter.Rooms = append(filter.Rooms, v)
		}
	}

	return filter, nil
}

// formatFilter - обратное преобразование для ответов о состоянии.
func formatFilter(filter domain.SearchFilter) (price, rooms string) {
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		var low, high string
		if filter.MinPrice != nil {
			low = strconv.Itoa(*filter.MinPrice)
		}
		if filter.MaxPrice != nil {
			high = strconv.Itoa(*filter.MaxPrice)
		}
		price = low + "-" + high
	}

	if len(filter.Rooms) > 0 {
		tokens := make([]string, len(filter.Rooms))
		for i, r := range filter.Rooms {
			tokens[i] = strconv.Itoa(r)
		}
		rooms = strings.Join(tokens, ",")
	}

	return price, rooms
}

func toSubscriberStateDTO(chatID int64, state domain.SubscriberState) SubscriberStateDTO {
	dto := SubscriberStateDTO{
		ChatID:    chatID,
		Searching: state.Searching,
	}
	if !state.Watermark.IsZero() {
		wm := state.Watermark
		dto.Watermark = &wm
	}
	dto.Price, dto.Rooms = formatFilter(state.Filter)
	return dto
}
