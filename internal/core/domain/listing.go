package domain

import "time"

// ListingRecord — одно наблюдаемое объявление об аренде квартиры.
// Запись неизменяема после создания: повторное наблюдение того же id
// не изменяет уже сохранённую запись.
type ListingRecord struct {
	// ID — внешний идентификатор объявления на площадке (натуральный ключ).
	ID    int64
	Title string
	URL   string

	// Price — стоимость аренды в месяц в рублях (0, если не распознана).
	Price      int
	Commission int
	Deposit    int

	AreaSqm        float64
	Floor          int
	BuildingFloors int

	// Rooms — количество комнат; 0 означает студию.
	Rooms int

	// TransitStopName — ближайшая станция метро, если указана.
	TransitStopName string
	// MinutesToTransit — время до станции в минутах; 0 = не указано.
	MinutesToTransit int

	// ObservedAt назначается хранилищем в момент вставки.
	ObservedAt time.Time
}

// ListingFragment — один фрагмент страницы выдачи, соответствующий
// одному объявлению, уже разобранный декомпозером на под-фрагменты.
// Отсутствие под-фрагмента — нормальное состояние (пустая строка или
// пустой срез), а не ошибка.
type ListingFragment struct {
	IDAttr        string
	TitleText     string
	PriceText     string
	SpecificsText string
	// LocationSpans — упорядоченный список текстовых span'ов блока
	// локации: [адрес, станция, время до станции].
	LocationSpans []string
	LinkHref      string
}
