package models

// PlayerSeasonStats хранит статистику игрока в рамках одного сезона.
// Уникальность по паре (player_id, season_id).
type PlayerSeasonStats struct {
	ID         int  `json:"id" db:"id"`
	PlayerID   int  `json:"player_id" db:"player_id"`
	SeasonID   int  `json:"season_id" db:"season_id"`
	InitialElo int  `json:"initial_elo" db:"initial_elo"`
	HighestElo int  `json:"highest_elo" db:"highest_elo"`
	Wins       int  `json:"wins" db:"wins"`
	Losses     int  `json:"losses" db:"losses"`
	// FinalElo заполняется ровно один раз — при закрытии сезона.
	FinalElo *int `json:"final_elo,omitempty" db:"final_elo"`

	Player *Player `json:"player,omitempty" db:"-"`
}
