package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
)

// AssembleListingUseCase собирает валидную запись ListingRecord из
// одного фрагмента выдачи. Один испорченный фрагмент никогда не
// прерывает обработку пакета: любая неустранимая проблема внутри
// фрагмента превращается в domain.ErrFragmentSkipped.
type AssembleListingUseCase struct {
	baseOrigin string
}

// NewAssembleListingUseCase создает новый экземпляр use case.
// baseOrigin используется для разрешения относительных ссылок.
func NewAssembleListingUseCase(baseOrigin string) (*AssembleListingUseCase, error) {
	if baseOrigin == "" {
		return nil, fmt.Errorf("assemble listing: base origin is required")
	}
	if _, err := url.Parse(baseOrigin); err != nil {
		return nil, fmt.Errorf("assemble listing: invalid base origin %q: %w", baseOrigin, err)
	}
	return &AssembleListingUseCase{baseOrigin: baseOrigin}, nil
}

// Execute превращает фрагмент в запись. Требуется числовой id; всё
// остальное — best effort с нулевыми значениями по умолчанию.
func (uc *AssembleListingUseCase) Execute(ctx context.Context, fragment domain.ListingFragment) (rec *domain.ListingRecord, err error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "AssembleListing"})

	// Паника при разборе одного фрагмента не должна ронять пакет.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while assembling fragment, skipping it", fmt.Errorf("%v", r), port.Fields{
				"id_attr": fragment.IDAttr,
			})
			rec = nil
			err = domain.ErrFragmentSkipped
		}
	}()

	id, parseErr := strconv.ParseInt(strings.TrimSpace(fragment.IDAttr), 10, 64)
	if parseErr != nil {
		logger.Warn("Fragment without numeric id, skipping", port.Fields{"id_attr": fragment.IDAttr})
		return nil, domain.ErrFragmentSkipped
	}

	rooms, areaSqm, floor, buildingFloors := SplitTitle(fragment.TitleText)
	deposit, commission := SplitDepositCommission(fragment.SpecificsText)

	// Цена опциональна: нечисловое содержимое даёт 0, а не пропуск.
	price := 0
	if p, perr := strconv.Atoi(strings.TrimSpace(fragment.PriceText)); perr == nil && p >= 0 {
		price = p
	}

	stopName := ""
	minutesToStop := 0
	if len(fragment.LocationSpans) > 1 {
		stopName = NormalizeStopName(fragment.LocationSpans[1])
	}
	if len(fragment.LocationSpans) > 2 {
		minutesToStop = MaxIntegerToken(fragment.LocationSpans[2])
	}

	return &domain.ListingRecord{
		ID:               id,
		Title:            strings.TrimSpace(fragment.TitleText),
		URL:              uc.resolveLink(fragment.LinkHref),
		Price:            price,
		Commission:       commission,
		Deposit:          deposit,
		AreaSqm:          areaSqm,
		Floor:            floor,
		BuildingFloors:   buildingFloors,
		Rooms:            rooms,
		TransitStopName:  stopName,
		MinutesToTransit: minutesToStop,
	}, nil
}

// resolveLink разрешает относительный href против базового origin.
func (uc *AssembleListingUseCase) resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base, err := url.Parse(uc.baseOrigin)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
