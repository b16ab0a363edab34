package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fishram/Rankly/models"
)

var ErrSettingsNotFound = errors.New("settings row not found")

// SettingsRepository работает с единственной строкой конфигурации (id = 1).
// K-фактор живёт в БД, чтобы переживать рестарты и быть общим для всех
// инстансов сервера.
type SettingsRepository interface {
	Get(ctx context.Context, exec SQLExecutor) (*models.Settings, error)
	UpdateKFactor(ctx context.Context, kFactor int) (*models.Settings, error)
}

type postgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSettingsRepository) Get(ctx context.Context, exec SQLExecutor) (*models.Settings, error) {
	executor := r.getExecutor(exec)
	settings := &models.Settings{}
	query := `SELECT id, k_factor FROM settings WHERE id = 1`
	err := executor.QueryRowContext(ctx, query).Scan(&settings.ID, &settings.KFactor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to scan settings: %w", err)
	}
	return settings, nil
}

func (r *postgresSettingsRepository) UpdateKFactor(ctx context.Context, kFactor int) (*models.Settings, error) {
	settings := &models.Settings{}
	query := `UPDATE settings SET k_factor = $1 WHERE id = 1 RETURNING id, k_factor`
	err := r.db.QueryRowContext(ctx, query, kFactor).Scan(&settings.ID, &settings.KFactor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to update k-factor: %w", err)
	}
	return settings, nil
}
