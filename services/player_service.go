package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fishram/Rankly/models"
	"github.com/fishram/Rankly/repositories"
	"github.com/fishram/Rankly/storage"
	"golang.org/x/sync/errgroup"
)

type CreatePlayerInput struct {
	Name string `json:"name"`
	// EloScore задаёт стартовый рейтинг; nil — 1000.
	EloScore *int `json:"elo_score,omitempty"`
}

type UpdatePlayerInput struct {
	Name     *string `json:"name,omitempty"`
	EloScore *int    `json:"elo_score,omitempty"`
}

// SeasonStanding — строка сезонного рейтинга: данные игрока, спроецированные
// на один сезон.
type SeasonStanding struct {
	PlayerID   int    `json:"player_id"`
	Name       string `json:"name"`
	IsActive   bool   `json:"is_active"`
	EloScore   int    `json:"elo_score"`
	HighestElo int    `json:"highest_elo"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	InitialElo int    `json:"initial_elo"`
	FinalElo   *int   `json:"final_elo,omitempty"`
}

type PlayerService interface {
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	GetPlayer(ctx context.Context, id int) (*models.Player, error)
	ListPlayers(ctx context.Context, onlyActive bool) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error)
	// SetPlayerStatus — мягкое удаление: неактивный игрок исчезает из
	// рейтинга, но его история сохраняется.
	SetPlayerStatus(ctx context.Context, id int, isActive bool) (*models.Player, error)
	DeletePlayer(ctx context.Context, id int) error
	SeasonStandings(ctx context.Context, seasonID int) ([]*SeasonStanding, error)
	UploadAvatar(ctx context.Context, playerID int, contentType string, file io.Reader) (*models.Player, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	statsRepo  repositories.SeasonStatsRepository
	uploader   storage.FileUploader
}

func NewPlayerService(
	playerRepo repositories.PlayerRepository,
	statsRepo repositories.SeasonStatsRepository,
	uploader storage.FileUploader,
) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		statsRepo:  statsRepo,
		uploader:   uploader,
	}
}

func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	if input.Name == "" {
		return nil, ErrPlayerNameRequired
	}

	elo := baseSeasonElo
	if input.EloScore != nil {
		elo = *input.EloScore
	}

	player := &models.Player{
		Name:       input.Name,
		EloScore:   elo,
		HighestElo: elo,
		IsActive:   true,
	}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	s.populateAvatarURL(player)
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context, onlyActive bool) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	for _, player := range players {
		s.populateAvatarURL(player)
	}
	return players, nil
}

func (s *playerService) UpdatePlayer(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error) {
	if input.Name == nil && input.EloScore == nil {
		return nil, ErrValidationFailed
	}

	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrPlayerNameRequired
		}
		player.Name = *input.Name
	}
	if input.EloScore != nil {
		player.EloScore = *input.EloScore
		if player.EloScore > player.HighestElo {
			player.HighestElo = player.EloScore
		}
	}

	if err := s.playerRepo.Update(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, err
	}
	s.populateAvatarURL(player)
	return player, nil
}

func (s *playerService) SetPlayerStatus(ctx context.Context, id int, isActive bool) (*models.Player, error) {
	if err := s.playerRepo.SetActive(ctx, id, isActive); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetPlayer(ctx, id)
}

func (s *playerService) DeletePlayer(ctx context.Context, id int) error {
	err := s.playerRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	return nil
}

// SeasonStandings собирает сезонную таблицу: игроки и их статистика
// загружаются параллельно, затем соединяются в памяти. Игроки без единого
// матча в сезоне в таблицу не попадают.
func (s *playerService) SeasonStandings(ctx context.Context, seasonID int) ([]*SeasonStanding, error) {
	var (
		players []*models.Player
		stats   []*models.PlayerSeasonStats
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = s.playerRepo.List(gCtx, true)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.statsRepo.ListBySeason(gCtx, seasonID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load season standings: %w", err)
	}

	statsByPlayer := make(map[int]*models.PlayerSeasonStats, len(stats))
	for _, row := range stats {
		statsByPlayer[row.PlayerID] = row
	}

	standings := make([]*SeasonStanding, 0, len(players))
	for _, player := range players {
		row, ok := statsByPlayer[player.ID]
		if !ok || (row.Wins == 0 && row.Losses == 0) {
			continue
		}

		elo := player.EloScore
		if row.FinalElo != nil {
			elo = *row.FinalElo
		}
		standings = append(standings, &SeasonStanding{
			PlayerID:   player.ID,
			Name:       player.Name,
			IsActive:   player.IsActive,
			EloScore:   elo,
			HighestElo: row.HighestElo,
			Wins:       row.Wins,
			Losses:     row.Losses,
			InitialElo: row.InitialElo,
			FinalElo:   row.FinalElo,
		})
	}
	return standings, nil
}

func (s *playerService) UploadAvatar(ctx context.Context, playerID int, contentType string, file io.Reader) (*models.Player, error) {
	if s.uploader == nil {
		return nil, ErrAvatarStorageDisabled
	}

	player, err := s.playerRepo.GetByID(ctx, nil, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("players/%d/avatar", playerID)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload avatar for player %d: %w", playerID, err)
	}
	if err := s.playerRepo.UpdateAvatarKey(ctx, playerID, &key); err != nil {
		return nil, err
	}

	player.AvatarKey = &key
	s.populateAvatarURL(player)
	return player, nil
}

func (s *playerService) populateAvatarURL(player *models.Player) {
	if player == nil || player.AvatarKey == nil || *player.AvatarKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*player.AvatarKey); url != "" {
		player.AvatarURL = &url
	}
}
