package usecases_port

import (
	"context"

	"rent-watch-service/internal/core/domain"
)

// AssembleListingUseCasePort собирает валидную запись из одного фрагмента.
// Возвращает domain.ErrFragmentSkipped, если фрагмент непригоден.
type AssembleListingUseCasePort interface {
	Execute(ctx context.Context, fragment domain.ListingFragment) (*domain.ListingRecord, error)
}
