package usecase

import "testing"

func TestIsAllDigits(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"0", true},
		{"123456", true},
		{"12a", false},
		{"12 3", false},
		{"-5", false},
		{"1.5", false},
	}

	for _, tt := range tests {
		if got := IsAllDigits(tt.in); got != tt.want {
			t.Errorf("IsAllDigits(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestMaxIntegerToken(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"10–15 мин. пешком", 15},
		{"5 мин", 5},
		{"от 3 до 7", 7},
		{"пешком", 0},
		{"", 0},
		{"2 1 9", 9},
	}

	for _, tt := range tests {
		if got := MaxIntegerToken(tt.in); got != tt.want {
			t.Errorf("MaxIntegerToken(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestSplitDepositCommission(t *testing.T) {
	tests := []struct {
		in             string
		wantDeposit    int
		wantCommission int
	}{
		{"", 0, 0},
		{"без залога · без комиссии", 0, 0},
		{"залог 30 000 · без комиссии", 30000, 0},
		{"без залога · комиссия 15 000", 0, 15000},
		{"залог 45 000 · комиссия 22 500", 45000, 22500},
		{"залог 20 000", 20000, 0},
		{"комис. 10", 0, 10},
		// Последнее применимое условие по каждому полю выигрывает
		{"залог 10 000 · залог 20 000", 20000, 0},
		{"залог 30 000 · без залога", 0, 0},
		// Нераспознанное число оставляет поле без изменений
		{"залог 5 000 · залог", 5000, 0},
	}

	for _, tt := range tests {
		deposit, commission := SplitDepositCommission(tt.in)
		if deposit != tt.wantDeposit || commission != tt.wantCommission {
			t.Errorf("SplitDepositCommission(%q) = (%d, %d); want (%d, %d)",
				tt.in, deposit, commission, tt.wantDeposit, tt.wantCommission)
		}
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		in         string
		wantRooms  int
		wantArea   float64
		wantFloor  int
		wantFloors int
	}{
		{"2-к. квартира, 60 м², 7/12 эт.", 2, 60, 7, 12},
		{"Квартира-студия, 25,5 м², 3/9 эт.", 0, 25.5, 3, 9},
		{"1-к. квартира, 33 м²", 1, 33, 0, 0},
		{"3 к квартира, 80,2 м², 15/25 этаж", 3, 80.2, 15, 25},
		{"Квартира без деталей", 0, 0, 0, 0},
		{"", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		rooms, area, floor, floors := SplitTitle(tt.in)
		if rooms != tt.wantRooms || area != tt.wantArea || floor != tt.wantFloor || floors != tt.wantFloors {
			t.Errorf("SplitTitle(%q) = (%d, %g, %d, %d); want (%d, %g, %d, %d)",
				tt.in, rooms, area, floor, floors,
				tt.wantRooms, tt.wantArea, tt.wantFloor, tt.wantFloors)
		}
	}
}

func TestNormalizeStopName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  чертановская ", "Чертановская"},
		{"площадь ленина", "Площадь ленина"},
		{"", ""},
		{"   ", ""},
		{"ВДНХ", "ВДНХ"},
		{"улица 1905 года", "Улица 1905 года"},
	}

	for _, tt := range tests {
		if got := NormalizeStopName(tt.in); got != tt.want {
			t.Errorf("NormalizeStopName(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
