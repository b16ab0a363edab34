package models

import "time"

// Player представляет игрока рейтинга.
type Player struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	EloScore   int       `json:"elo_score" db:"elo_score"`
	HighestElo int       `json:"highest_elo" db:"highest_elo"`
	Wins       int       `json:"wins" db:"wins"`
	Losses     int       `json:"losses" db:"losses"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	UserID     *int      `json:"user_id,omitempty" db:"user_id"`
	AvatarKey  *string   `json:"-" db:"avatar_key"`
	AvatarURL  *string   `json:"avatar_url,omitempty" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
