package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fishram/Rankly/models"
	"github.com/fishram/Rankly/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthService interface {
	// Register создаёт пользователя и привязанного к нему игрока в одной
	// транзакции: у каждого аккаунта сразу есть строка в рейтинге.
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type authService struct {
	txRunner   TxRunner
	userRepo   repositories.UserRepository
	playerRepo repositories.PlayerRepository
}

func NewAuthService(txRunner TxRunner, userRepo repositories.UserRepository, playerRepo repositories.PlayerRepository) AuthService {
	return &authService{
		txRunner:   txRunner,
		userRepo:   userRepo,
		playerRepo: playerRepo,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Username = strings.TrimSpace(input.Username)

	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrValidationFailed)
	}
	if input.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hash),
	}

	err = s.txRunner.RunInTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		if err := s.userRepo.Create(ctx, exec, user); err != nil {
			switch {
			case errors.Is(err, repositories.ErrUserEmailConflict):
				return ErrUserEmailConflict
			case errors.Is(err, repositories.ErrUserUsernameConflict):
				return ErrUserUsernameConflict
			}
			return err
		}

		player := &models.Player{
			Name:       user.Username,
			EloScore:   baseSeasonElo,
			HighestElo: baseSeasonElo,
			IsActive:   true,
			UserID:     &user.ID,
		}
		if err := s.playerRepo.Create(ctx, exec, player); err != nil {
			if errors.Is(err, repositories.ErrPlayerNameConflict) {
				return ErrPlayerNameConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, ErrAuthInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// Не раскрываем, существует ли такой email.
			return nil, ErrAuthInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrAuthInvalidCredentials
	}
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
