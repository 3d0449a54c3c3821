package domain

import "time"

// SearchFilter — фильтры подписчика для отбора новых объявлений.
// Нулевые указатели означают отсутствие границы.
type SearchFilter struct {
	MinPrice *int
	MaxPrice *int
	// Rooms — набор допустимых значений количества комнат (0 = студия).
	// Пустой срез означает «без ограничения».
	Rooms []int
}

// Matches сообщает, проходит ли запись через фильтр.
func (f SearchFilter) Matches(rec ListingRecord) bool {
	if f.MinPrice != nil && rec.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && rec.Price > *f.MaxPrice {
		return false
	}
	if len(f.Rooms) > 0 {
		found := false
		for _, r := range f.Rooms {
			if rec.Rooms == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SubscriberState — состояние одного подписчика (чата).
type SubscriberState struct {
	Filter    SearchFilter
	Searching bool
	// Watermark — эксклюзивная нижняя граница «нового» для этого
	// подписчика. Монотонно не убывает, пока Searching == true.
	Watermark time.Time
}
