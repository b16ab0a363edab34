package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fishram/Rankly/models"
	"github.com/fishram/Rankly/repositories"
	"github.com/lib/pq"
)

const (
	// Транзиентные конфликты записи повторяются ограниченное число раз
	// с экспоненциальной паузой, после чего вызывающий получает
	// окончательный отказ.
	recordMatchMaxAttempts = 3
	recordMatchBaseBackoff = 50 * time.Millisecond
)

type RecordMatchInput struct {
	Player1ID int `json:"player1_id"`
	Player2ID int `json:"player2_id"`
	WinnerID  int `json:"winner_id"`
	// KFactor переопределяет сохранённое значение; nil — взять из настроек.
	KFactor *int      `json:"k_factor,omitempty"`
	Date    time.Time `json:"date"`
	Notes   *string   `json:"notes,omitempty"`
}

// MatchResult — записанный матч вместе со свежими снимками игроков.
type MatchResult struct {
	Match   *models.Match  `json:"match"`
	Player1 *models.Player `json:"player1"`
	Player2 *models.Player `json:"player2"`
	Update  RatingUpdate   `json:"rating_update"`
}

type UndoMatchInput struct {
	MatchID         int
	RequesterUserID int
	IsAdmin         bool
	// Запасной вариант для старых матчей без сохранённых дельт.
	// Для матчей с дельтами прежний рейтинг вычисляется на сервере:
	// prior = current − storedDelta.
	PriorElo1 *int
	PriorElo2 *int
}

type MatchService interface {
	RecordMatch(ctx context.Context, input RecordMatchInput) (*MatchResult, error)
	UndoMatch(ctx context.Context, input UndoMatchInput) error
	ListMatches(ctx context.Context, seasonID *int, limit int) ([]*models.Match, error)
}

type matchService struct {
	txRunner     TxRunner
	playerRepo   repositories.PlayerRepository
	seasonRepo   repositories.SeasonRepository
	statsRepo    repositories.SeasonStatsRepository
	matchRepo    repositories.MatchRepository
	settingsRepo repositories.SettingsRepository
	hub          EventBroadcaster
}

func NewMatchService(
	txRunner TxRunner,
	playerRepo repositories.PlayerRepository,
	seasonRepo repositories.SeasonRepository,
	statsRepo repositories.SeasonStatsRepository,
	matchRepo repositories.MatchRepository,
	settingsRepo repositories.SettingsRepository,
	hub EventBroadcaster,
) MatchService {
	return &matchService{
		txRunner:     txRunner,
		playerRepo:   playerRepo,
		seasonRepo:   seasonRepo,
		statsRepo:    statsRepo,
		matchRepo:    matchRepo,
		settingsRepo: settingsRepo,
		hub:          hub,
	}
}

func (s *matchService) RecordMatch(ctx context.Context, input RecordMatchInput) (*MatchResult, error) {
	if input.Player1ID == input.Player2ID {
		return nil, ErrSamePlayer
	}
	if input.WinnerID != input.Player1ID && input.WinnerID != input.Player2ID {
		return nil, ErrInvalidWinner
	}
	if input.KFactor != nil && (*input.KFactor < models.MinKFactor || *input.KFactor > models.MaxKFactor) {
		return nil, ErrInvalidKFactor
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	var result *MatchResult
	backoff := recordMatchBaseBackoff

	for attempt := 1; ; attempt++ {
		err := s.txRunner.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(exec repositories.SQLExecutor) error {
			var txErr error
			result, txErr = s.recordMatchTx(ctx, exec, input)
			return txErr
		})
		if err == nil {
			break
		}
		if !isRetryableWriteError(err) || attempt >= recordMatchMaxAttempts {
			if isRetryableWriteError(err) {
				return nil, fmt.Errorf("%w: %v", ErrWriteConflict, err)
			}
			return nil, err
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.hub != nil {
		s.hub.Broadcast("MATCH_RECORDED", result)
	}
	return result, nil
}

// recordMatchTx выполняет все шаги записи матча внутри одной транзакции.
// Рейтинги читаются заново внутри транзакции, чтобы параллельные записи
// по пересекающимся игрокам не работали с устаревшими значениями.
func (s *matchService) recordMatchTx(ctx context.Context, exec repositories.SQLExecutor, input RecordMatchInput) (*MatchResult, error) {
	season, err := s.seasonRepo.GetActive(ctx, exec)
	if err != nil {
		if errors.Is(err, repositories.ErrNoActiveSeason) {
			return nil, ErrNoActiveSeason
		}
		return nil, err
	}

	kFactor := derefInt(input.KFactor)
	if input.KFactor == nil {
		settings, err := s.settingsRepo.Get(ctx, exec)
		if err != nil {
			return nil, err
		}
		kFactor = settings.KFactor
	}

	player1, err := s.playerRepo.GetByID(ctx, exec, input.Player1ID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	player2, err := s.playerRepo.GetByID(ctx, exec, input.Player2ID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	winner := SideA
	if input.WinnerID == player2.ID {
		winner = SideB
	}
	update := ComputeRatingUpdate(player1.EloScore, player2.EloScore, winner, kFactor)

	player1Won := winner == SideA
	if err := s.playerRepo.ApplyMatchResult(ctx, exec, player1.ID, update.NewRatingA, player1Won); err != nil {
		return nil, err
	}
	if err := s.playerRepo.ApplyMatchResult(ctx, exec, player2.ID, update.NewRatingB, !player1Won); err != nil {
		return nil, err
	}

	if err := s.upsertSeasonStats(ctx, exec, player1, season.ID, update.NewRatingA, player1Won); err != nil {
		return nil, err
	}
	if err := s.upsertSeasonStats(ctx, exec, player2, season.ID, update.NewRatingB, !player1Won); err != nil {
		return nil, err
	}

	match := &models.Match{
		Player1ID:        player1.ID,
		Player2ID:        player2.ID,
		WinnerID:         input.WinnerID,
		SeasonID:         &season.ID,
		Player1EloChange: &update.ChangeA,
		Player2EloChange: &update.ChangeB,
		Date:             input.Date,
		Notes:            input.Notes,
	}
	if err := s.matchRepo.Create(ctx, exec, match); err != nil {
		return nil, err
	}

	applyResultToSnapshot(player1, update.NewRatingA, player1Won)
	applyResultToSnapshot(player2, update.NewRatingB, !player1Won)

	return &MatchResult{
		Match:   match,
		Player1: player1,
		Player2: player2,
		Update:  update,
	}, nil
}

// upsertSeasonStats обновляет строку сезонной статистики игрока или лениво
// создаёт её, если игрок появился после старта сезона: initialElo в этом
// случае — рейтинг игрока до матча.
func (s *matchService) upsertSeasonStats(ctx context.Context, exec repositories.SQLExecutor, player *models.Player, seasonID, newElo int, won bool) error {
	stats, err := s.statsRepo.GetByPlayerAndSeason(ctx, exec, player.ID, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonStatsNotFound) {
			row := &models.PlayerSeasonStats{
				PlayerID:   player.ID,
				SeasonID:   seasonID,
				InitialElo: player.EloScore,
				HighestElo: newElo,
			}
			if won {
				row.Wins = 1
			} else {
				row.Losses = 1
			}
			return s.statsRepo.Create(ctx, exec, row)
		}
		return err
	}
	return s.statsRepo.ApplyMatchResult(ctx, exec, stats.ID, newElo, won)
}

func applyResultToSnapshot(player *models.Player, newElo int, won bool) {
	player.EloScore = newElo
	if newElo > player.HighestElo {
		player.HighestElo = newElo
	}
	if won {
		player.Wins++
	} else {
		player.Losses++
	}
}

func (s *matchService) UndoMatch(ctx context.Context, input UndoMatchInput) error {
	err := s.txRunner.RunInTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, input.MatchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		player1, err := s.playerRepo.GetByID(ctx, exec, match.Player1ID)
		if err != nil {
			return err
		}
		player2, err := s.playerRepo.GetByID(ctx, exec, match.Player2ID)
		if err != nil {
			return err
		}

		// Отменить матч может админ или владелец первого игрока.
		if !input.IsAdmin {
			if player1.UserID == nil || *player1.UserID != input.RequesterUserID {
				return ErrForbiddenOperation
			}
		}

		prior1, err := priorRating(player1.EloScore, match.Player1EloChange, input.PriorElo1)
		if err != nil {
			return err
		}
		prior2, err := priorRating(player2.EloScore, match.Player2EloChange, input.PriorElo2)
		if err != nil {
			return err
		}

		if err := s.matchRepo.Delete(ctx, exec, match.ID); err != nil {
			return err
		}

		if err := s.playerRepo.RevertMatchResult(ctx, exec, player1.ID, prior1, match.WinnerID == player1.ID); err != nil {
			return err
		}
		if err := s.playerRepo.RevertMatchResult(ctx, exec, player2.ID, prior2, match.WinnerID == player2.ID); err != nil {
			return err
		}

		if match.SeasonID != nil {
			for _, playerID := range []int{player1.ID, player2.ID} {
				err := s.statsRepo.RevertMatchResult(ctx, exec, playerID, *match.SeasonID, match.WinnerID == playerID)
				if err != nil && !errors.Is(err, repositories.ErrSeasonStatsNotFound) {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Broadcast("MATCH_UNDONE", map[string]int{"match_id": input.MatchID})
	}
	return nil
}

// priorRating восстанавливает рейтинг до матча. Предпочтение — сохранённой
// при записи дельте (prior = current − delta); присланные клиентом
// абсолютные значения принимаются только для матчей без дельт.
func priorRating(currentElo int, storedDelta, supplied *int) (int, error) {
	if storedDelta != nil {
		return currentElo - *storedDelta, nil
	}
	if supplied != nil {
		return *supplied, nil
	}
	return 0, ErrPriorRatingsRequired
}

func (s *matchService) ListMatches(ctx context.Context, seasonID *int, limit int) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, seasonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// isRetryableWriteError распознаёт транзиентные конфликты, которые имеет
// смысл повторить: сбой сериализации, дедлок, гонка по уникальному ключу.
func isRetryableWriteError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}
