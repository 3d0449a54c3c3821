package port

import "context"

// MarkupFetcherPort — контракт получения сырой разметки страницы выдачи.
// Ошибка получения считается ошибкой всего цикла парсинга.
type MarkupFetcherPort interface {
	FetchMarkup(ctx context.Context) (string, error)
}
