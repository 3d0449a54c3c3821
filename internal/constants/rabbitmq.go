package constants

// Имена сущностей RabbitMQ, которые объявляет и использует сервис.
const (
	ParserExchange = "rent_watch_exchange"
	ExchangeType   = "direct"

	// RoutingKeyNewListings — события о впервые увиденных объявлениях.
	RoutingKeyNewListings = "listings.new"

	// RoutingKeyNotificationsPrefix — префикс ключа доставки уведомлений;
	// полный ключ: notifications.<chat_id>. Очередь подписчика объявляет
	// и привязывает внешний фронтенд чата.
	RoutingKeyNotificationsPrefix = "notifications."
)
