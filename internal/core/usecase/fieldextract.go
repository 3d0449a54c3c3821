package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// Чистые функции разбора «шумного» текста объявлений. Каждая функция
// тотальна: на любом входе возвращает значение из своего домена,
// нераспознанные поля остаются нулевыми.

var (
	// digitRunRegexp захватывает первую последовательность цифр,
	// возможно разделённых пробелами («30 000»).
	digitRunRegexp = regexp.MustCompile(`\d[\d\s]*`)
	// areaRegexp захватывает площадь вида «60 м²» или «60,5 м²».
	areaRegexp = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*м²`)
	// roomsRegexp захватывает число комнат перед маркером «к»: «2-к», «3 к».
	roomsRegexp = regexp.MustCompile(`(\d+)[-\s]*к`)
	// floorsRegexp захватывает пару «этаж/этажность»: «7/12».
	floorsRegexp = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
)

// IsAllDigits сообщает, состоит ли строка только из десятичных цифр.
// Пустая строка считается состоящей из цифр (вакуумная истина).
func IsAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MaxIntegerToken разбивает строку на токены по пробельным символам и
// длинному тире (диапазоны «10–15» дают 15), разбирает цифровые токены
// и возвращает максимум, либо 0, если чисел нет. Используется для
// нормализации фраз вида «10–15 мин. пешком».
func MaxIntegerToken(s string) int {
	tokens := strings.Fields(strings.ReplaceAll(s, "–", " "))
	res := 0
	for _, t := range tokens {
		if t == "" || !IsAllDigits(t) {
			continue
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			continue
		}
		if n > res {
			res = n
		}
	}
	return res
}

// SplitDepositCommission разбирает строку с дополнительными условиями
// («без залога · комиссия 15 000») и возвращает размеры залога и
// комиссии в рублях. Условия оцениваются слева направо, последнее
// применимое условие по каждому полю выигрывает; нераспознанное число
// оставляет поле без изменений.
func SplitDepositCommission(s string) (deposit int, commission int) {
	for _, p := range strings.Split(s, " · ") {
		p = strings.TrimSpace(strings.ReplaceAll(p, " ", " "))
		pl := strings.ToLower(p)

		if strings.Contains(pl, "без залога") {
			deposit = 0
		} else if strings.Contains(pl, "залог") {
			if n, ok := firstDigitRun(p); ok {
				deposit = n
			}
		}

		if strings.Contains(pl, "без комиссии") {
			commission = 0
		} else if strings.Contains(pl, "комис") {
			if n, ok := firstDigitRun(p); ok {
				commission = n
			}
		}
	}
	return deposit, commission
}

// firstDigitRun извлекает первую последовательность цифр, убирая
// пробелы внутри числа.
func firstDigitRun(s string) (int, bool) {
	m := digitRunRegexp.FindString(s)
	if m == "" {
		return 0, false
	}
	num := strings.Join(strings.Fields(m), "")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SplitTitle разбирает заголовок объявления и извлекает количество
// комнат (0 = студия), площадь в м², этаж квартиры и этажность дома.
// Любое ненайденное поле остаётся нулевым; пустой или полностью
// неструктурированный заголовок — валидный вход.
func SplitTitle(title string) (rooms int, areaSqm float64, floor int, buildingFloors int) {
	title = strings.ReplaceAll(title, "эт.", "")
	title = strings.ReplaceAll(title, "этаж", "")
	title = strings.ReplaceAll(title, " ", " ")

	if m := areaRegexp.FindStringSubmatch(title); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			areaSqm = v
		}
	}

	if strings.Contains(strings.ToLower(title), "студ") {
		rooms = 0
	} else if m := roomsRegexp.FindStringSubmatch(title); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			rooms = v
		}
	}

	if m := floorsRegexp.FindStringSubmatch(title); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			floor = v
		}
		if v, err := strconv.Atoi(m[2]); err == nil {
			buildingFloors = v
		}
	}

	return rooms, areaSqm, floor, buildingFloors
}
