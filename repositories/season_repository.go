package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fishram/Rankly/models"
	"github.com/lib/pq"
)

var (
	ErrSeasonNotFound     = errors.New("season not found")
	ErrNoActiveSeason     = errors.New("no active season")
	ErrSeasonNameConflict = errors.New("season name conflict")
)

type SeasonRepository interface {
	Create(ctx context.Context, exec SQLExecutor, season *models.Season) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error)
	// GetActive возвращает единственный активный сезон либо ErrNoActiveSeason.
	GetActive(ctx context.Context, exec SQLExecutor) (*models.Season, error)
	List(ctx context.Context) ([]*models.Season, error)
	End(ctx context.Context, exec SQLExecutor, id int, endDate time.Time) error
	CountMatches(ctx context.Context, exec SQLExecutor, seasonID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const seasonColumns = `id, name, start_date, end_date, is_active, created_at`

func (r *postgresSeasonRepository) Create(ctx context.Context, exec SQLExecutor, season *models.Season) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO seasons (name, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		season.Name,
		season.StartDate,
		season.EndDate,
		season.IsActive,
	).Scan(&season.ID, &season.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "seasons_name_key" {
				return ErrSeasonNameConflict
			}
		}
		return fmt.Errorf("failed to insert season: %w", err)
	}
	return nil
}

func (r *postgresSeasonRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`
	season, err := r.scanSeason(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return season, nil
}

func (r *postgresSeasonRepository) GetActive(ctx context.Context, exec SQLExecutor) (*models.Season, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE is_active`
	season, err := r.scanSeason(executor.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSeason
		}
		return nil, err
	}
	return season, nil
}

func (r *postgresSeasonRepository) List(ctx context.Context) ([]*models.Season, error) {
	query := `
		SELECT s.id, s.name, s.start_date, s.end_date, s.is_active, s.created_at,
		       (SELECT COUNT(*) FROM matches m WHERE m.season_id = s.id),
		       (SELECT COUNT(*) FROM player_season_stats ps WHERE ps.season_id = s.id)
		FROM seasons s
		ORDER BY s.start_date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	seasons := make([]*models.Season, 0)
	for rows.Next() {
		var season models.Season
		var matchCount, statsCount int
		if err := rows.Scan(
			&season.ID,
			&season.Name,
			&season.StartDate,
			&season.EndDate,
			&season.IsActive,
			&season.CreatedAt,
			&matchCount,
			&statsCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan season row: %w", err)
		}
		season.MatchCount = &matchCount
		season.StatsCount = &statsCount
		seasons = append(seasons, &season)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during season rows iteration: %w", err)
	}
	return seasons, nil
}

func (r *postgresSeasonRepository) End(ctx context.Context, exec SQLExecutor, id int, endDate time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE seasons SET end_date = $1, is_active = FALSE WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, endDate, id)
	if err != nil {
		return fmt.Errorf("failed to end season %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}

func (r *postgresSeasonRepository) CountMatches(ctx context.Context, exec SQLExecutor, seasonID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE season_id = $1`
	if err := executor.QueryRowContext(ctx, query, seasonID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches for season %d: %w", seasonID, err)
	}
	return count, nil
}

func (r *postgresSeasonRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM seasons WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}

func (r *postgresSeasonRepository) scanSeason(row *sql.Row) (*models.Season, error) {
	season := &models.Season{}
	err := row.Scan(
		&season.ID,
		&season.Name,
		&season.StartDate,
		&season.EndDate,
		&season.IsActive,
		&season.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return season, nil
}
