package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrPlayerNameRequired      = errors.New("player name is required")
	ErrSeasonNameRequired      = errors.New("season name is required")
	ErrSeasonStartDateRequired = errors.New("season start date is required")
	ErrInvalidResetPolicy      = errors.New("reset policy must be one of: complete, partial, none")
	ErrInvalidKFactor          = errors.New("k-factor must be between 1 and 100")
	ErrSamePlayer              = errors.New("a player cannot play against themselves")
	ErrInvalidWinner           = errors.New("winner must be one of the two participants")
	ErrNoActiveSeason          = errors.New("no active season: create a season before recording matches")
	ErrPriorRatingsRequired    = errors.New("prior ratings are required to undo a match without recorded deltas")

	// Ошибки состояний и конфликтов
	ErrSeasonAlreadyEnded = errors.New("season has already ended")
	ErrSeasonHasMatches   = errors.New("cannot delete a season with recorded matches")
	ErrWriteConflict      = errors.New("write conflict: operation could not be completed after retries")

	// Конфликты уникальности
	ErrPlayerNameConflict   = errors.New("player name is already in use")
	ErrSeasonNameConflict   = errors.New("season name is already in use")
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserUsernameConflict = errors.New("username is already in use")

	// Аутентификация и авторизация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrSeasonNotFound = errors.New("season not found")
	ErrUserNotFound   = errors.New("user not found")

	// Загрузка аватаров
	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")
)
