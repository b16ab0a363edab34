package models

import "time"

// Match — сыгранный матч. Инвариант: WinnerID ∈ {Player1ID, Player2ID}.
// Дельты рейтинга записываются при создании и используются для отмены матча.
type Match struct {
	ID               int       `json:"id" db:"id"`
	Player1ID        int       `json:"player1_id" db:"player1_id"`
	Player2ID        int       `json:"player2_id" db:"player2_id"`
	WinnerID         int       `json:"winner_id" db:"winner_id"`
	SeasonID         *int      `json:"season_id,omitempty" db:"season_id"`
	Player1EloChange *int      `json:"player1_elo_change,omitempty" db:"player1_elo_change"`
	Player2EloChange *int      `json:"player2_elo_change,omitempty" db:"player2_elo_change"`
	Date             time.Time `json:"date" db:"date"`
	Notes            *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Player1 *Player `json:"player1,omitempty" db:"-"`
	Player2 *Player `json:"player2,omitempty" db:"-"`
	Winner  *Player `json:"winner,omitempty" db:"-"`
}
