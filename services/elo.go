package services

import "math"

// Side обозначает сторону матча независимо от конкретных ролей
// player1/player2, чтобы калькулятор не был привязан к схеме матча.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// RatingUpdate — результат пересчёта рейтинга после одного матча.
type RatingUpdate struct {
	NewRatingA int `json:"new_rating_a"`
	NewRatingB int `json:"new_rating_b"`
	ChangeA    int `json:"change_a"`
	ChangeB    int `json:"change_b"`
	// Ожидаемая вероятность победы в процентах, округлённая до целого.
	WinProbabilityA int `json:"win_probability_a"`
	WinProbabilityB int `json:"win_probability_b"`
}

// ComputeRatingUpdate пересчитывает рейтинги двух сторон по стандартной
// логистической формуле Эло:
//
//	expectedA = 1 / (1 + 10^((ratingB-ratingA)/400))
//	newA = round(ratingA + k*(actualA - expectedA))
//
// Округление — math.Round (половина от нуля), что важно для
// воспроизводимости результатов. Функция чистая и детерминированная;
// отрицательные рейтинги математически корректны и не отбрасываются.
// winner вне {SideA, SideB} — нарушение контракта вызывающей стороной.
func ComputeRatingUpdate(ratingA, ratingB int, winner Side, kFactor int) RatingUpdate {
	expectedA := 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
	expectedB := 1.0 - expectedA

	var actualA, actualB float64
	if winner == SideA {
		actualA = 1.0
	} else {
		actualB = 1.0
	}

	k := float64(kFactor)
	newRatingA := int(math.Round(float64(ratingA) + k*(actualA-expectedA)))
	newRatingB := int(math.Round(float64(ratingB) + k*(actualB-expectedB)))

	return RatingUpdate{
		NewRatingA:      newRatingA,
		NewRatingB:      newRatingB,
		ChangeA:         newRatingA - ratingA,
		ChangeB:         newRatingB - ratingB,
		WinProbabilityA: int(math.Round(expectedA * 100)),
		WinProbabilityB: int(math.Round(expectedB * 100)),
	}
}
