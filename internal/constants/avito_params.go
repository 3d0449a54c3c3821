package constants

// Константы источника объявлений.
const (
	// BaseOrigin — базовый origin для разрешения относительных ссылок.
	BaseOrigin = "https://www.avito.ru"

	// DefaultFeedURL — выдача долгосрочной аренды квартир по Москве.
	DefaultFeedURL = "https://www.avito.ru/moskva/kvartiry/sdam/na_dlitelnyy_srok-ASgBAgICAkSSA8gQ8AeQUg?cd=1"

	// FragmentSelector — корневой селектор одного объявления в выдаче.
	FragmentSelector = "div[data-marker='item']"
)
