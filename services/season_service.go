package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fishram/Rankly/models"
	"github.com/fishram/Rankly/repositories"
)

// baseSeasonElo — рейтинг, к которому тяготеют сбросы между сезонами.
const baseSeasonElo = 1000

type CreateSeasonInput struct {
	Name        string             `json:"name"`
	StartDate   time.Time          `json:"start_date"`
	ResetPolicy models.ResetPolicy `json:"reset_policy"`
}

// SeasonDetail — сезон вместе с его матчами и статистикой игроков.
type SeasonDetail struct {
	Season      *models.Season              `json:"season"`
	Matches     []*models.Match             `json:"matches"`
	PlayerStats []*models.PlayerSeasonStats `json:"player_stats"`
}

type SeasonService interface {
	// CreateSeason создаёт новый активный сезон. Если активный сезон уже
	// существует, он закрывается в той же транзакции: это единственный
	// способ завершить сезон так, чтобы ни на миг не оказалось ноль
	// активных сезонов при записи матчей.
	CreateSeason(ctx context.Context, input CreateSeasonInput) (*models.Season, error)
	EndSeason(ctx context.Context, seasonID int, endDate time.Time) (*models.Season, error)
	DeleteSeason(ctx context.Context, seasonID int) error
	ListSeasons(ctx context.Context) ([]*models.Season, error)
	GetSeason(ctx context.Context, seasonID int) (*SeasonDetail, error)
}

type seasonService struct {
	txRunner   TxRunner
	seasonRepo repositories.SeasonRepository
	statsRepo  repositories.SeasonStatsRepository
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	hub        EventBroadcaster
}

func NewSeasonService(
	txRunner TxRunner,
	seasonRepo repositories.SeasonRepository,
	statsRepo repositories.SeasonStatsRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	hub EventBroadcaster,
) SeasonService {
	return &seasonService{
		txRunner:   txRunner,
		seasonRepo: seasonRepo,
		statsRepo:  statsRepo,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		hub:        hub,
	}
}

func (s *seasonService) CreateSeason(ctx context.Context, input CreateSeasonInput) (*models.Season, error) {
	if input.Name == "" {
		return nil, ErrSeasonNameRequired
	}
	if input.StartDate.IsZero() {
		return nil, ErrSeasonStartDateRequired
	}
	if !input.ResetPolicy.Valid() {
		return nil, ErrInvalidResetPolicy
	}

	season := &models.Season{
		Name:      input.Name,
		StartDate: input.StartDate,
		IsActive:  true,
	}

	err := s.txRunner.RunInTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		// Сначала закрываем текущий активный сезон, если он есть:
		// final_elo фиксируется до любых сбросов рейтинга.
		active, err := s.seasonRepo.GetActive(ctx, exec)
		switch {
		case err == nil:
			if err := s.statsRepo.FinalizeSeason(ctx, exec, active.ID); err != nil {
				return err
			}
			if err := s.seasonRepo.End(ctx, exec, active.ID, time.Now()); err != nil {
				return err
			}
		case errors.Is(err, repositories.ErrNoActiveSeason):
			// Первый сезон в истории.
		default:
			return err
		}

		if err := s.seasonRepo.Create(ctx, exec, season); err != nil {
			if errors.Is(err, repositories.ErrSeasonNameConflict) {
				return ErrSeasonNameConflict
			}
			return err
		}

		players, err := s.playerRepo.ListActive(ctx, exec)
		if err != nil {
			return err
		}

		statsRows := make([]*models.PlayerSeasonStats, 0, len(players))
		for _, player := range players {
			initialElo, statsHighest, resetHighest := carryOverRating(player, input.ResetPolicy)

			statsRows = append(statsRows, &models.PlayerSeasonStats{
				PlayerID:   player.ID,
				SeasonID:   season.ID,
				InitialElo: initialElo,
				HighestElo: statsHighest,
			})

			if input.ResetPolicy != models.ResetNone {
				if err := s.playerRepo.ResetRating(ctx, exec, player.ID, initialElo, resetHighest); err != nil {
					return err
				}
			}
		}

		return s.statsRepo.BatchCreate(ctx, exec, statsRows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create season %q: %w", input.Name, err)
	}

	if s.hub != nil {
		s.hub.Broadcast("SEASON_STARTED", season)
	}
	return season, nil
}

// carryOverRating возвращает initialElo нового сезона, пик для строки
// статистики и признак сброса пика у самого игрока.
func carryOverRating(player *models.Player, policy models.ResetPolicy) (initialElo, statsHighest int, resetHighest bool) {
	switch policy {
	case models.ResetComplete:
		return baseSeasonElo, baseSeasonElo, true
	case models.ResetPartial:
		initialElo = int(math.Round((float64(player.EloScore) + baseSeasonElo) / 2))
		return initialElo, initialElo, false
	default: // ResetNone
		return player.EloScore, player.HighestElo, false
	}
}

func (s *seasonService) EndSeason(ctx context.Context, seasonID int, endDate time.Time) (*models.Season, error) {
	if endDate.IsZero() {
		endDate = time.Now()
	}

	var season *models.Season
	err := s.txRunner.RunInTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		var err error
		season, err = s.seasonRepo.GetByID(ctx, exec, seasonID)
		if err != nil {
			if errors.Is(err, repositories.ErrSeasonNotFound) {
				return ErrSeasonNotFound
			}
			return err
		}
		if !season.IsActive {
			return ErrSeasonAlreadyEnded
		}

		// final_elo — прямой срез текущего рейтинга, не реконструкция
		// из истории матчей.
		if err := s.statsRepo.FinalizeSeason(ctx, exec, seasonID); err != nil {
			return err
		}
		if err := s.seasonRepo.End(ctx, exec, seasonID, endDate); err != nil {
			return err
		}

		season.IsActive = false
		season.EndDate = &endDate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return season, nil
}

func (s *seasonService) DeleteSeason(ctx context.Context, seasonID int) error {
	return s.txRunner.RunInTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		if _, err := s.seasonRepo.GetByID(ctx, exec, seasonID); err != nil {
			if errors.Is(err, repositories.ErrSeasonNotFound) {
				return ErrSeasonNotFound
			}
			return err
		}

		count, err := s.seasonRepo.CountMatches(ctx, exec, seasonID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSeasonHasMatches
		}

		if err := s.statsRepo.DeleteBySeason(ctx, exec, seasonID); err != nil {
			return err
		}
		return s.seasonRepo.Delete(ctx, exec, seasonID)
	})
}

func (s *seasonService) ListSeasons(ctx context.Context) ([]*models.Season, error) {
	seasons, err := s.seasonRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return seasons, nil
}

func (s *seasonService) GetSeason(ctx context.Context, seasonID int) (*SeasonDetail, error) {
	season, err := s.seasonRepo.GetByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}

	matches, err := s.matchRepo.List(ctx, &seasonID, 0)
	if err != nil {
		return nil, err
	}
	stats, err := s.statsRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	return &SeasonDetail{
		Season:      season,
		Matches:     matches,
		PlayerStats: stats,
	}, nil
}
