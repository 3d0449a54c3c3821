package htmlfragments

import (
	"fmt"
	"strings"

	"rent-watch-service/internal/constants"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"

	"github.com/PuerkitoBio/goquery"
)

// GoqueryDecomposerAdapter разбирает разметку страницы выдачи на фрагменты карточек.
// Каждый фрагмент содержит только сырые куски текста и атрибутов, без типизации:
// типизацией занимается сборка записи.
type GoqueryDecomposerAdapter struct{}

var _ port.FragmentDecomposerPort = (*GoqueryDecomposerAdapter)(nil)

// NewGoqueryDecomposerAdapter - конструктор
func NewGoqueryDecomposerAdapter() *GoqueryDecomposerAdapter {
	return &GoqueryDecomposerAdapter{}
}

// Decompose выделяет из разметки карточки объявлений.
// Карточка без обязательных кусков все равно попадает в результат:
// решение пропустить ее принимается на этапе сборки записи.
func (a *GoqueryDecomposerAdapter) Decompose(markup string) ([]domain.ListingFragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("GoqueryDecomposerAdapter: failed to parse markup: %w", err)
	}

	var fragments []domain.ListingFragment
	doc.Find(constants.FragmentSelector).Each(func(_ int, card *goquery.Selection) {
		var frag domain.ListingFragment

		frag.IDAttr, _ = card.Attr("data-item-id")
		frag.TitleText = strings.TrimSpace(card.Find("a[data-marker='item-title']").First().Text())

		// Цена лежит в микроразметке, текстовый узел может содержать валюту и пробелы
		price := card.Find("p[data-marker='item-price'] meta[itemprop='price']").First()
		if content, ok := price.Attr("content"); ok {
			frag.PriceText = content
		} else {
			frag.PriceText = strings.TrimSpace(card.Find("p[data-marker='item-price']").First().Text())
		}

		frag.SpecificsText = strings.TrimSpace(card.Find("p[data-marker='item-specific-params']").First().Text())

		// Во втором абзаце блока локации лежат спаны: метка, название остановки, минуты пешком
		location := card.Find("div[data-marker='item-location'] p").Eq(1)
		location.Find("span").Each(func(_ int, span *goquery.Selection) {
			frag.LocationSpans = append(frag.LocationSpans, strings.TrimSpace(span.Text()))
		})

		frag.LinkHref, _ = card.Find("a").First().Attr("href")

		fragments = append(fragments, frag)
	})

	return fragments, nil
}
