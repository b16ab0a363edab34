package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fishram/Rankly/models"
)

func TestCreateSeasonValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateSeasonInput
		wantErr error
	}{
		{
			name:    "missing name",
			input:   CreateSeasonInput{StartDate: time.Now(), ResetPolicy: models.ResetComplete},
			wantErr: ErrSeasonNameRequired,
		},
		{
			name:    "missing start date",
			input:   CreateSeasonInput{Name: "Season 1", ResetPolicy: models.ResetComplete},
			wantErr: ErrSeasonStartDateRequired,
		},
		{
			name:    "unknown reset policy",
			input:   CreateSeasonInput{Name: "Season 1", StartDate: time.Now(), ResetPolicy: "half"},
			wantErr: ErrInvalidResetPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.seasonSvc.CreateSeason(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateSeason() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSeasonEndsPreviousActiveSeason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	old := f.addActiveSeason("Spring")
	p := f.addPlayer("alice", 1300)
	f.addStats(p.ID, old.ID, 1000)

	season, err := f.seasonSvc.CreateSeason(ctx, CreateSeasonInput{
		Name:        "Summer",
		StartDate:   time.Now(),
		ResetPolicy: models.ResetNone,
	})
	if err != nil {
		t.Fatalf("CreateSeason() error = %v", err)
	}

	activeCount := 0
	for _, s := range f.store.seasons {
		if s.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("active seasons = %d, want exactly 1", activeCount)
	}
	if !f.store.seasons[season.ID].IsActive {
		t.Error("new season is not the active one")
	}
	if f.store.seasons[old.ID].EndDate == nil {
		t.Error("previous season has no end date")
	}

	// final_elo прошлого сезона снят до старта нового.
	oldStats, err := f.statsRepo.GetByPlayerAndSeason(ctx, nil, p.ID, old.ID)
	if err != nil {
		t.Fatalf("GetByPlayerAndSeason() error = %v", err)
	}
	if oldStats.FinalElo == nil || *oldStats.FinalElo != 1300 {
		t.Errorf("previous season final elo = %v, want 1300", oldStats.FinalElo)
	}
}

func TestCreateSeasonResetPolicies(t *testing.T) {
	tests := []struct {
		name           string
		policy         models.ResetPolicy
		startElo       int
		startHighest   int
		wantElo        int
		wantHighest    int
		wantInitialElo int
	}{
		{
			name:   "complete reset returns everyone to 1000",
			policy: models.ResetComplete,
			startElo: 1400, startHighest: 1450,
			wantElo: 1000, wantHighest: 1000, wantInitialElo: 1000,
		},
		{
			name:   "partial reset moves halfway to 1000, peak survives",
			policy: models.ResetPartial,
			startElo: 1400, startHighest: 1450,
			wantElo: 1200, wantHighest: 1450, wantInitialElo: 1200,
		},
		{
			name:   "partial reset rounds half away from zero",
			policy: models.ResetPartial,
			startElo: 1401, startHighest: 1401,
			// (1401+1000)/2 = 1200.5 → 1201
			wantElo: 1201, wantHighest: 1401, wantInitialElo: 1201,
		},
		{
			name:   "no reset carries ratings over",
			policy: models.ResetNone,
			startElo: 1400, startHighest: 1450,
			wantElo: 1400, wantHighest: 1450, wantInitialElo: 1400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			p := f.addPlayer("alice", tt.startElo)
			f.store.players[p.ID].HighestElo = tt.startHighest

			season, err := f.seasonSvc.CreateSeason(ctx, CreateSeasonInput{
				Name:        "Season",
				StartDate:   time.Now(),
				ResetPolicy: tt.policy,
			})
			if err != nil {
				t.Fatalf("CreateSeason() error = %v", err)
			}

			got := f.store.players[p.ID]
			if got.EloScore != tt.wantElo {
				t.Errorf("player elo = %d, want %d", got.EloScore, tt.wantElo)
			}
			if got.HighestElo != tt.wantHighest {
				t.Errorf("player highest elo = %d, want %d", got.HighestElo, tt.wantHighest)
			}

			stats, err := f.statsRepo.GetByPlayerAndSeason(ctx, nil, p.ID, season.ID)
			if err != nil {
				t.Fatalf("stats row was not created: %v", err)
			}
			if stats.InitialElo != tt.wantInitialElo {
				t.Errorf("stats initial elo = %d, want %d", stats.InitialElo, tt.wantInitialElo)
			}
			if stats.Wins != 0 || stats.Losses != 0 {
				t.Errorf("fresh stats have non-zero counters: %d/%d", stats.Wins, stats.Losses)
			}
		})
	}
}

func TestCreateSeasonCoversAllActivePlayers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.addPlayer("alice", 1200)
	f.addPlayer("bob", 900)
	inactive := f.addPlayer("carol", 1100)
	f.store.players[inactive.ID].IsActive = false

	season, err := f.seasonSvc.CreateSeason(ctx, CreateSeasonInput{
		Name:        "Season",
		StartDate:   time.Now(),
		ResetPolicy: models.ResetComplete,
	})
	if err != nil {
		t.Fatalf("CreateSeason() error = %v", err)
	}

	rows, err := f.statsRepo.ListBySeason(ctx, season.ID)
	if err != nil {
		t.Fatalf("ListBySeason() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("stats rows = %d, want 2 (inactive players excluded)", len(rows))
	}
	for _, row := range rows {
		if row.PlayerID == inactive.ID {
			t.Error("inactive player received a stats row")
		}
	}
}

func TestCreateSeasonNameConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addActiveSeason("Spring")

	_, err := f.seasonSvc.CreateSeason(ctx, CreateSeasonInput{
		Name:        "Spring",
		StartDate:   time.Now(),
		ResetPolicy: models.ResetNone,
	})
	if !errors.Is(err, ErrSeasonNameConflict) {
		t.Fatalf("CreateSeason() error = %v, want ErrSeasonNameConflict", err)
	}

	// Конфликт откатывает транзакцию целиком: старый сезон остаётся активным.
	for _, s := range f.store.seasons {
		if s.Name == "Spring" && !s.IsActive {
			t.Error("previous season was deactivated despite rollback")
		}
	}
}

func TestEndSeason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	season := f.addActiveSeason("Spring")
	p := f.addPlayer("alice", 1234)
	f.addStats(p.ID, season.ID, 1000)

	end := time.Now()
	got, err := f.seasonSvc.EndSeason(ctx, season.ID, end)
	if err != nil {
		t.Fatalf("EndSeason() error = %v", err)
	}
	if got.IsActive {
		t.Error("season still marked active")
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("end date = %v, want %v", got.EndDate, end)
	}

	stats, err := f.statsRepo.GetByPlayerAndSeason(ctx, nil, p.ID, season.ID)
	if err != nil {
		t.Fatalf("GetByPlayerAndSeason() error = %v", err)
	}
	if stats.FinalElo == nil || *stats.FinalElo != 1234 {
		t.Errorf("final elo = %v, want 1234", stats.FinalElo)
	}
}

func TestEndSeasonAlreadyEnded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	season := f.addActiveSeason("Spring")
	if _, err := f.seasonSvc.EndSeason(ctx, season.ID, time.Now()); err != nil {
		t.Fatalf("first EndSeason() error = %v", err)
	}
	if _, err := f.seasonSvc.EndSeason(ctx, season.ID, time.Now()); !errors.Is(err, ErrSeasonAlreadyEnded) {
		t.Fatalf("second EndSeason() error = %v, want ErrSeasonAlreadyEnded", err)
	}
}

func TestEndSeasonNotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.seasonSvc.EndSeason(context.Background(), 404, time.Now()); !errors.Is(err, ErrSeasonNotFound) {
		t.Fatalf("EndSeason() error = %v, want ErrSeasonNotFound", err)
	}
}

func TestDeleteSeason(t *testing.T) {
	t.Run("deletes empty season with stats rows", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		season := f.addActiveSeason("Spring")
		p := f.addPlayer("alice", 1000)
		f.addStats(p.ID, season.ID, 1000)

		if err := f.seasonSvc.DeleteSeason(ctx, season.ID); err != nil {
			t.Fatalf("DeleteSeason() error = %v", err)
		}
		if _, ok := f.store.seasons[season.ID]; ok {
			t.Error("season still present")
		}
		if rows, _ := f.statsRepo.ListBySeason(ctx, season.ID); len(rows) != 0 {
			t.Errorf("stats rows left behind: %d", len(rows))
		}
	})

	t.Run("refuses season with matches", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		season := f.addActiveSeason("Spring")
		p1 := f.addPlayer("alice", 1000)
		p2 := f.addPlayer("bob", 1000)
		f.addStats(p1.ID, season.ID, 1000)
		f.addStats(p2.ID, season.ID, 1000)
		if _, err := f.matchSvc.RecordMatch(ctx, RecordMatchInput{
			Player1ID: p1.ID, Player2ID: p2.ID, WinnerID: p1.ID,
		}); err != nil {
			t.Fatalf("RecordMatch() error = %v", err)
		}

		if err := f.seasonSvc.DeleteSeason(ctx, season.ID); !errors.Is(err, ErrSeasonHasMatches) {
			t.Fatalf("DeleteSeason() error = %v, want ErrSeasonHasMatches", err)
		}
		if _, ok := f.store.seasons[season.ID]; !ok {
			t.Error("season was deleted despite recorded matches")
		}
	})

	t.Run("unknown season", func(t *testing.T) {
		f := newFixture()
		if err := f.seasonSvc.DeleteSeason(context.Background(), 404); !errors.Is(err, ErrSeasonNotFound) {
			t.Fatalf("DeleteSeason() error = %v, want ErrSeasonNotFound", err)
		}
	})
}
