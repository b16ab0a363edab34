package services

import (
	"context"
	"errors"

	"github.com/fishram/Rankly/models"
	"github.com/fishram/Rankly/repositories"
)

type SettingsService interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	// UpdateKFactor меняет сохранённый K-фактор; он применяется ко всем
	// последующим матчам и действует для всех процессов сразу, так как
	// хранится в БД, а не в памяти.
	UpdateKFactor(ctx context.Context, kFactor int) (*models.Settings, error)
}

type settingsService struct {
	settingsRepo repositories.SettingsRepository
}

func NewSettingsService(settingsRepo repositories.SettingsRepository) SettingsService {
	return &settingsService{settingsRepo: settingsRepo}
}

func (s *settingsService) GetSettings(ctx context.Context) (*models.Settings, error) {
	settings, err := s.settingsRepo.Get(ctx, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			// Сид-миграция гарантирует строку, но на пустой БД вернём дефолт.
			return &models.Settings{ID: 1, KFactor: models.DefaultKFactor}, nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *settingsService) UpdateKFactor(ctx context.Context, kFactor int) (*models.Settings, error) {
	if kFactor < models.MinKFactor || kFactor > models.MaxKFactor {
		return nil, ErrInvalidKFactor
	}
	settings, err := s.settingsRepo.UpdateKFactor(ctx, kFactor)
	if err != nil {
		return nil, err
	}
	return settings, nil
}
