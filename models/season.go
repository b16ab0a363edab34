package models

import "time"

// ResetPolicy определяет, как переносится рейтинг игроков в новый сезон.
type ResetPolicy string

const (
	// ResetComplete: все начинают с 1000, пик тоже сбрасывается.
	ResetComplete ResetPolicy = "complete"
	// ResetPartial: initialElo = round((current + 1000) / 2).
	ResetPartial ResetPolicy = "partial"
	// ResetNone: рейтинг переносится без изменений.
	ResetNone ResetPolicy = "none"
)

func (p ResetPolicy) Valid() bool {
	switch p {
	case ResetComplete, ResetPartial, ResetNone:
		return true
	}
	return false
}

// Season представляет сезон. Инвариант: не более одного сезона с IsActive=true.
type Season struct {
	ID        int        `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	StartDate time.Time  `json:"start_date" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`

	// Счётчики для списков (не мапятся напрямую)
	MatchCount *int `json:"match_count,omitempty" db:"-"`
	StatsCount *int `json:"stats_count,omitempty" db:"-"`
}
