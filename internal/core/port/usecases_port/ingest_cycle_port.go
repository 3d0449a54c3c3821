package usecases_port

import "context"

// IngestCycleUseCasePort — периодический цикл «fetch → decompose →
// assemble → insert». Run блокируется до отмены контекста либо до
// превышения порога последовательных ошибок (тогда возвращает ошибку).
type IngestCycleUseCasePort interface {
	Run(ctx context.Context) error
}
