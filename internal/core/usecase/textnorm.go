package usecase

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeStopName очищает название станции: обрезает пробелы и
// поднимает первую букву по правилам русского языка. Остальные буквы
// не трогаем: «ВДНХ» должна остаться «ВДНХ».
func NormalizeStopName(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}

	runes := []rune(trimmed)
	caser := cases.Upper(language.Russian)

	// Преобразуем только первую руну
	firstRuneUpper := []rune(caser.String(string(runes[0])))
	runes[0] = firstRuneUpper[0]

	return string(runes)
}
