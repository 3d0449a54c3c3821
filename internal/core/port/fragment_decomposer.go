package port

import "rent-watch-service/internal/core/domain"

// FragmentDecomposerPort разбирает сырую разметку на фрагменты объявлений.
// Отсутствие под-фрагментов внутри фрагмента — нормальное состояние;
// ошибка возвращается только если разметка не разбирается целиком.
type FragmentDecomposerPort interface {
	Decompose(markup string) ([]domain.ListingFragment, error)
}
