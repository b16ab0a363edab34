package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fishram/Rankly/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchPlayerInvalid = errors.New("match player conflict or invalid")
	ErrMatchSeasonInvalid = errors.New("match season conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// List возвращает матчи по дате (новые первыми) вместе с именами участников.
	List(ctx context.Context, seasonID *int, limit int) ([]*models.Match, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(player1_id, player2_id, winner_id, season_id, player1_elo_change, player2_elo_change, date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.Player1ID,
		match.Player2ID,
		match.WinnerID,
		match.SeasonID,
		match.Player1EloChange,
		match.Player2EloChange,
		match.Date,
		match.Notes,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, player1_id, player2_id, winner_id, season_id,
		       player1_elo_change, player2_elo_change, date, notes, created_at
		FROM matches
		WHERE id = $1`

	match := &models.Match{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.Player1ID,
		&match.Player2ID,
		&match.WinnerID,
		&match.SeasonID,
		&match.Player1EloChange,
		&match.Player2EloChange,
		&match.Date,
		&match.Notes,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, seasonID *int, limit int) ([]*models.Match, error) {
	query := `
		SELECT m.id, m.player1_id, m.player2_id, m.winner_id, m.season_id,
		       m.player1_elo_change, m.player2_elo_change, m.date, m.notes, m.created_at,
		       p1.name, p2.name, w.name
		FROM matches m
		JOIN players p1 ON p1.id = m.player1_id
		JOIN players p2 ON p2.id = m.player2_id
		JOIN players w ON w.id = m.winner_id`

	args := make([]interface{}, 0, 2)
	if seasonID != nil {
		query += ` WHERE m.season_id = $1`
		args = append(args, *seasonID)
	}
	query += ` ORDER BY m.date DESC, m.id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		var p1Name, p2Name, wName string
		if err := rows.Scan(
			&match.ID,
			&match.Player1ID,
			&match.Player2ID,
			&match.WinnerID,
			&match.SeasonID,
			&match.Player1EloChange,
			&match.Player2EloChange,
			&match.Date,
			&match.Notes,
			&match.CreatedAt,
			&p1Name,
			&p2Name,
			&wName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		match.Player1 = &models.Player{ID: match.Player1ID, Name: p1Name}
		match.Player2 = &models.Player{ID: match.Player2ID, Name: p2Name}
		match.Winner = &models.Player{ID: match.WinnerID, Name: wName}
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_player1_id_fkey", "matches_player2_id_fkey", "matches_winner_id_fkey":
			return ErrMatchPlayerInvalid
		case "matches_season_id_fkey":
			return ErrMatchSeasonInvalid
		}
	}
	return err
}
