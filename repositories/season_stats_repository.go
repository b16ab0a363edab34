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
	ErrSeasonStatsNotFound = errors.New("player season stats not found")
	ErrSeasonStatsConflict = errors.New("player season stats already exist")
)

type SeasonStatsRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stats *models.PlayerSeasonStats) error
	BatchCreate(ctx context.Context, exec SQLExecutor, stats []*models.PlayerSeasonStats) error
	GetByPlayerAndSeason(ctx context.Context, exec SQLExecutor, playerID, seasonID int) (*models.PlayerSeasonStats, error)
	ListBySeason(ctx context.Context, seasonID int) ([]*models.PlayerSeasonStats, error)
	ApplyMatchResult(ctx context.Context, exec SQLExecutor, id, newElo int, won bool) error
	RevertMatchResult(ctx context.Context, exec SQLExecutor, playerID, seasonID int, wasWinner bool) error
	// FinalizeSeason снимает срез текущего рейтинга каждого игрока в final_elo.
	FinalizeSeason(ctx context.Context, exec SQLExecutor, seasonID int) error
	DeleteBySeason(ctx context.Context, exec SQLExecutor, seasonID int) error
}

type postgresSeasonStatsRepository struct {
	db *sql.DB
}

func NewPostgresSeasonStatsRepository(db *sql.DB) SeasonStatsRepository {
	return &postgresSeasonStatsRepository{db: db}
}

func (r *postgresSeasonStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const seasonStatsColumns = `id, player_id, season_id, initial_elo, highest_elo, wins, losses, final_elo`

func (r *postgresSeasonStatsRepository) Create(ctx context.Context, exec SQLExecutor, stats *models.PlayerSeasonStats) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_season_stats (player_id, season_id, initial_elo, highest_elo, wins, losses, final_elo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		stats.PlayerID,
		stats.SeasonID,
		stats.InitialElo,
		stats.HighestElo,
		stats.Wins,
		stats.Losses,
		stats.FinalElo,
	).Scan(&stats.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "player_season_stats_player_id_season_id_key" {
				return ErrSeasonStatsConflict
			}
		}
		return fmt.Errorf("failed to insert season stats for player %d: %w", stats.PlayerID, err)
	}
	return nil
}

func (r *postgresSeasonStatsRepository) BatchCreate(ctx context.Context, exec SQLExecutor, stats []*models.PlayerSeasonStats) error {
	if len(stats) == 0 {
		return nil
	}
	for _, s := range stats {
		if err := r.Create(ctx, exec, s); err != nil {
			return fmt.Errorf("BatchCreate failed for player %d: %w", s.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresSeasonStatsRepository) GetByPlayerAndSeason(ctx context.Context, exec SQLExecutor, playerID, seasonID int) (*models.PlayerSeasonStats, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + seasonStatsColumns + ` FROM player_season_stats WHERE player_id = $1 AND season_id = $2`

	stats := &models.PlayerSeasonStats{}
	err := executor.QueryRowContext(ctx, query, playerID, seasonID).Scan(
		&stats.ID,
		&stats.PlayerID,
		&stats.SeasonID,
		&stats.InitialElo,
		&stats.HighestElo,
		&stats.Wins,
		&stats.Losses,
		&stats.FinalElo,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonStatsNotFound
		}
		return nil, fmt.Errorf("failed to scan season stats for player %d season %d: %w", playerID, seasonID, err)
	}
	return stats, nil
}

func (r *postgresSeasonStatsRepository) ListBySeason(ctx context.Context, seasonID int) ([]*models.PlayerSeasonStats, error) {
	query := `
		SELECT ps.id, ps.player_id, ps.season_id, ps.initial_elo, ps.highest_elo, ps.wins, ps.losses, ps.final_elo,
		       p.name, p.is_active
		FROM player_season_stats ps
		JOIN players p ON p.id = ps.player_id
		WHERE ps.season_id = $1
		ORDER BY ps.final_elo DESC NULLS LAST, ps.initial_elo DESC`

	rows, err := r.db.QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query season stats for season %d: %w", seasonID, err)
	}
	defer rows.Close()

	list := make([]*models.PlayerSeasonStats, 0)
	for rows.Next() {
		var stats models.PlayerSeasonStats
		var player models.Player
		if err := rows.Scan(
			&stats.ID,
			&stats.PlayerID,
			&stats.SeasonID,
			&stats.InitialElo,
			&stats.HighestElo,
			&stats.Wins,
			&stats.Losses,
			&stats.FinalElo,
			&player.Name,
			&player.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan season stats row: %w", err)
		}
		player.ID = stats.PlayerID
		stats.Player = &player
		list = append(list, &stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during season stats rows iteration: %w", err)
	}
	return list, nil
}

func (r *postgresSeasonStatsRepository) ApplyMatchResult(ctx context.Context, exec SQLExecutor, id, newElo int, won bool) error {
	executor := r.getExecutor(exec)
	var query string
	if won {
		query = `
			UPDATE player_season_stats SET
				highest_elo = GREATEST(highest_elo, $1),
				wins = wins + 1
			WHERE id = $2`
	} else {
		query = `
			UPDATE player_season_stats SET
				highest_elo = GREATEST(highest_elo, $1),
				losses = losses + 1
			WHERE id = $2`
	}
	result, err := executor.ExecContext(ctx, query, newElo, id)
	if err != nil {
		return fmt.Errorf("ApplyMatchResult: failed to update season stats %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrSeasonStatsNotFound)
}

func (r *postgresSeasonStatsRepository) RevertMatchResult(ctx context.Context, exec SQLExecutor, playerID, seasonID int, wasWinner bool) error {
	executor := r.getExecutor(exec)
	// highest_elo и initial_elo сознательно не откатываются: без полного
	// журнала рейтингов нельзя определить, этот ли матч дал пик.
	var query string
	if wasWinner {
		query = `
			UPDATE player_season_stats SET wins = GREATEST(wins - 1, 0)
			WHERE player_id = $1 AND season_id = $2`
	} else {
		query = `
			UPDATE player_season_stats SET losses = GREATEST(losses - 1, 0)
			WHERE player_id = $1 AND season_id = $2`
	}
	result, err := executor.ExecContext(ctx, query, playerID, seasonID)
	if err != nil {
		return fmt.Errorf("RevertMatchResult: failed to update season stats for player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrSeasonStatsNotFound)
}

func (r *postgresSeasonStatsRepository) FinalizeSeason(ctx context.Context, exec SQLExecutor, seasonID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE player_season_stats ps
		SET final_elo = p.elo_score
		FROM players p
		WHERE ps.player_id = p.id AND ps.season_id = $1`
	if _, err := executor.ExecContext(ctx, query, seasonID); err != nil {
		return fmt.Errorf("failed to finalize season stats for season %d: %w", seasonID, err)
	}
	return nil
}

func (r *postgresSeasonStatsRepository) DeleteBySeason(ctx context.Context, exec SQLExecutor, seasonID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM player_season_stats WHERE season_id = $1`
	if _, err := executor.ExecContext(ctx, query, seasonID); err != nil {
		return fmt.Errorf("failed to delete season stats for season %d: %w", seasonID, err)
	}
	return nil
}
