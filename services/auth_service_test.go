package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fishram/Rankly/models"
)

func TestRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user, err := f.authSvc.Register(ctx, RegisterInput{
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if user.PasswordHash == "correct horse" || user.PasswordHash == "" {
		t.Error("password was not hashed")
	}

	// Вместе с пользователем создаётся привязанный игрок.
	player, err := f.playerRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("linked player was not created: %v", err)
	}
	if player.Name != "alice" {
		t.Errorf("player name = %q, want %q", player.Name, "alice")
	}
	if player.EloScore != 1000 || player.HighestElo != 1000 {
		t.Errorf("player rating = %d/%d, want 1000/1000", player.EloScore, player.HighestElo)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "bad email",
			input:   RegisterInput{Email: "not-an-email", Username: "alice", Password: "correct horse"},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "missing username",
			input:   RegisterInput{Email: "a@b.com", Password: "correct horse"},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "a@b.com", Username: "alice", Password: "1234567"},
			wantErr: ErrPasswordTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.authSvc.Register(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	base := RegisterInput{Email: "a@b.com", Username: "alice", Password: "correct horse"}
	if _, err := f.authSvc.Register(ctx, base); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := f.authSvc.Register(ctx, RegisterInput{
		Email: "a@b.com", Username: "other", Password: "correct horse",
	}); !errors.Is(err, ErrUserEmailConflict) {
		t.Errorf("duplicate email error = %v, want ErrUserEmailConflict", err)
	}

	if _, err := f.authSvc.Register(ctx, RegisterInput{
		Email: "c@d.com", Username: "alice", Password: "correct horse",
	}); !errors.Is(err, ErrUserUsernameConflict) {
		t.Errorf("duplicate username error = %v, want ErrUserUsernameConflict", err)
	}

	// Конфликт игрока откатывает и пользователя.
	f.addPlayer("bob", 1000)
	if _, err := f.authSvc.Register(ctx, RegisterInput{
		Email: "bob@b.com", Username: "bob", Password: "correct horse",
	}); !errors.Is(err, ErrPlayerNameConflict) {
		t.Fatalf("player conflict error = %v, want ErrPlayerNameConflict", err)
	}
	if _, err := f.userRepo.GetByEmail(ctx, "bob@b.com"); err == nil {
		t.Error("user row survived the rolled back registration")
	}
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.authSvc.Register(ctx, RegisterInput{
		Email: "a@b.com", Username: "alice", Password: "correct horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := f.authSvc.Login(ctx, models.Credentials{Email: "A@B.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.Username != "alice" {
			t.Errorf("username = %q, want alice", user.Username)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.authSvc.Login(ctx, models.Credentials{Email: "a@b.com", Password: "wrong"})
		if !errors.Is(err, ErrAuthInvalidCredentials) {
			t.Fatalf("Login() error = %v, want ErrAuthInvalidCredentials", err)
		}
	})

	t.Run("unknown email looks identical to wrong password", func(t *testing.T) {
		_, err := f.authSvc.Login(ctx, models.Credentials{Email: "nobody@b.com", Password: "correct horse"})
		if !errors.Is(err, ErrAuthInvalidCredentials) {
			t.Fatalf("Login() error = %v, want ErrAuthInvalidCredentials", err)
		}
	})
}
