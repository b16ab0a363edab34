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
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player name conflict")
	ErrPlayerUserInvalid  = errors.New("player user conflict or invalid")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	GetByUserID(ctx context.Context, userID int) (*models.Player, error)
	List(ctx context.Context, onlyActive bool) ([]*models.Player, error)
	ListActive(ctx context.Context, exec SQLExecutor) ([]*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	SetActive(ctx context.Context, id int, active bool) error
	UpdateAvatarKey(ctx context.Context, id int, key *string) error
	Delete(ctx context.Context, id int) error

	// ApplyMatchResult записывает игроку результат матча: новый рейтинг,
	// обновление пика и инкремент счётчика побед либо поражений.
	ApplyMatchResult(ctx context.Context, exec SQLExecutor, id, newElo int, won bool) error
	// RevertMatchResult откатывает результат: восстанавливает рейтинг и
	// декрементирует счётчик. Пик не откатывается.
	RevertMatchResult(ctx context.Context, exec SQLExecutor, id, priorElo int, wasWinner bool) error
	// ResetRating выставляет рейтинг при старте нового сезона.
	ResetRating(ctx context.Context, exec SQLExecutor, id, elo int, resetHighest bool) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, name, elo_score, highest_elo, wins, losses, is_active, user_id, avatar_key, created_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO players (name, elo_score, highest_elo, wins, losses, is_active, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		player.Name,
		player.EloScore,
		player.HighestElo,
		player.Wins,
		player.Losses,
		player.IsActive,
		player.UserID,
	).Scan(&player.ID, &player.CreatedAt)

	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return r.scanPlayer(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByUserID(ctx context.Context, userID int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE user_id = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, userID))
}

func (r *postgresPlayerRepository) List(ctx context.Context, onlyActive bool) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY elo_score DESC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	return r.collectPlayers(rows)
}

func (r *postgresPlayerRepository) ListActive(ctx context.Context, exec SQLExecutor) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + playerColumns + ` FROM players WHERE is_active ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active players: %w", err)
	}
	defer rows.Close()

	return r.collectPlayers(rows)
}

func (r *postgresPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players SET
			name = $1,
			elo_score = $2,
			highest_elo = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		player.Name,
		player.EloScore,
		player.HighestElo,
		player.ID,
	)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) SetActive(ctx context.Context, id int, active bool) error {
	query := `UPDATE players SET is_active = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateAvatarKey(ctx context.Context, id int, key *string) error {
	query := `UPDATE players SET avatar_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, key, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM players WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ApplyMatchResult(ctx context.Context, exec SQLExecutor, id, newElo int, won bool) error {
	executor := r.getExecutor(exec)
	var query string
	if won {
		query = `
			UPDATE players SET
				elo_score = $1,
				highest_elo = GREATEST(highest_elo, $1),
				wins = wins + 1
			WHERE id = $2`
	} else {
		query = `
			UPDATE players SET
				elo_score = $1,
				highest_elo = GREATEST(highest_elo, $1),
				losses = losses + 1
			WHERE id = $2`
	}
	result, err := executor.ExecContext(ctx, query, newElo, id)
	if err != nil {
		return fmt.Errorf("ApplyMatchResult: failed to update player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) RevertMatchResult(ctx context.Context, exec SQLExecutor, id, priorElo int, wasWinner bool) error {
	executor := r.getExecutor(exec)
	var query string
	if wasWinner {
		query = `
			UPDATE players SET
				elo_score = $1,
				wins = GREATEST(wins - 1, 0)
			WHERE id = $2`
	} else {
		query = `
			UPDATE players SET
				elo_score = $1,
				losses = GREATEST(losses - 1, 0)
			WHERE id = $2`
	}
	result, err := executor.ExecContext(ctx, query, priorElo, id)
	if err != nil {
		return fmt.Errorf("RevertMatchResult: failed to update player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ResetRating(ctx context.Context, exec SQLExecutor, id, elo int, resetHighest bool) error {
	executor := r.getExecutor(exec)
	var query string
	if resetHighest {
		query = `UPDATE players SET elo_score = $1, highest_elo = $1 WHERE id = $2`
	} else {
		query = `UPDATE players SET elo_score = $1 WHERE id = $2`
	}
	result, err := executor.ExecContext(ctx, query, elo, id)
	if err != nil {
		return fmt.Errorf("ResetRating: failed to update player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) scanPlayer(row *sql.Row) (*models.Player, error) {
	player := &models.Player{}
	err := row.Scan(
		&player.ID,
		&player.Name,
		&player.EloScore,
		&player.HighestElo,
		&player.Wins,
		&player.Losses,
		&player.IsActive,
		&player.UserID,
		&player.AvatarKey,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) collectPlayers(rows *sql.Rows) ([]*models.Player, error) {
	players := make([]*models.Player, 0)
	for rows.Next() {
		var player models.Player
		if err := rows.Scan(
			&player.ID,
			&player.Name,
			&player.EloScore,
			&player.HighestElo,
			&player.Wins,
			&player.Losses,
			&player.IsActive,
			&player.UserID,
			&player.AvatarKey,
			&player.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, &player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "players_name_key" {
				return ErrPlayerNameConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "players_user_id_fkey" {
				return ErrPlayerUserInvalid
			}
		}
	}
	return err
}
