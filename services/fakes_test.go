package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/fishram/Rankly/models"
	"github.com/fishram/Rankly/repositories"
)

// memStore — общее in-memory состояние для фейковых репозиториев.
// fakeTxRunner делает снимок перед транзакцией и откатывает его при ошибке,
// что позволяет проверять атомарность без реальной БД.
type memStore struct {
	players  map[int]*models.Player
	seasons  map[int]*models.Season
	stats    map[int]*models.PlayerSeasonStats
	matches  map[int]*models.Match
	users    map[int]*models.User
	settings models.Settings
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		players:  map[int]*models.Player{},
		seasons:  map[int]*models.Season{},
		stats:    map[int]*models.PlayerSeasonStats{},
		matches:  map[int]*models.Match{},
		users:    map[int]*models.User{},
		settings: models.Settings{ID: 1, KFactor: models.DefaultKFactor},
		nextID:   1,
	}
}

func (s *memStore) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func clonePlayer(p *models.Player) *models.Player {
	cp := *p
	if p.UserID != nil {
		cp.UserID = intPtr(*p.UserID)
	}
	if p.AvatarKey != nil {
		cp.AvatarKey = strPtr(*p.AvatarKey)
	}
	if p.AvatarURL != nil {
		cp.AvatarURL = strPtr(*p.AvatarURL)
	}
	return &cp
}

func cloneSeason(v *models.Season) *models.Season {
	cp := *v
	if v.EndDate != nil {
		end := *v.EndDate
		cp.EndDate = &end
	}
	cp.MatchCount = nil
	cp.StatsCount = nil
	return &cp
}

func cloneStats(v *models.PlayerSeasonStats) *models.PlayerSeasonStats {
	cp := *v
	if v.FinalElo != nil {
		cp.FinalElo = intPtr(*v.FinalElo)
	}
	cp.Player = nil
	return &cp
}

func cloneMatch(v *models.Match) *models.Match {
	cp := *v
	if v.SeasonID != nil {
		cp.SeasonID = intPtr(*v.SeasonID)
	}
	if v.Player1EloChange != nil {
		cp.Player1EloChange = intPtr(*v.Player1EloChange)
	}
	if v.Player2EloChange != nil {
		cp.Player2EloChange = intPtr(*v.Player2EloChange)
	}
	if v.Notes != nil {
		cp.Notes = strPtr(*v.Notes)
	}
	cp.Player1, cp.Player2, cp.Winner = nil, nil, nil
	return &cp
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	cp.settings = s.settings
	cp.nextID = s.nextID
	for id, p := range s.players {
		cp.players[id] = clonePlayer(p)
	}
	for id, v := range s.seasons {
		cp.seasons[id] = cloneSeason(v)
	}
	for id, v := range s.stats {
		cp.stats[id] = cloneStats(v)
	}
	for id, v := range s.matches {
		cp.matches[id] = cloneMatch(v)
	}
	for id, v := range s.users {
		u := *v
		cp.users[id] = &u
	}
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.players = from.players
	s.seasons = from.seasons
	s.stats = from.stats
	s.matches = from.matches
	s.users = from.users
	s.settings = from.settings
	s.nextID = from.nextID
}

// fakeTxRunner исполняет транзакцию поверх memStore. Первые failures
// вызовов завершаются ошибкой failWith — для проверки повторов.
type fakeTxRunner struct {
	store    *memStore
	failures int
	failWith error
	runs     int
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(exec repositories.SQLExecutor) error) error {
	r.runs++
	if r.failures > 0 {
		r.failures--
		return r.failWith
	}
	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

type fakeBroadcaster struct {
	events []string
}

func (b *fakeBroadcaster) Broadcast(eventType string, payload interface{}) {
	b.events = append(b.events, eventType)
}

// --- репозитории ---

type fakePlayerRepo struct {
	store *memStore
	// applyErrFor/applyErr подставляют сбой записи результата конкретному
	// игроку — для проверки отката транзакции.
	applyErrFor int
	applyErr    error
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	for _, p := range r.store.players {
		if p.Name == player.Name {
			return repositories.ErrPlayerNameConflict
		}
	}
	player.ID = r.store.id()
	player.CreatedAt = time.Now()
	r.store.players[player.ID] = clonePlayer(player)
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Player, error) {
	p, ok := r.store.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

func (r *fakePlayerRepo) GetByUserID(ctx context.Context, userID int) (*models.Player, error) {
	for _, p := range r.store.players {
		if p.UserID != nil && *p.UserID == userID {
			return clonePlayer(p), nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) List(ctx context.Context, onlyActive bool) ([]*models.Player, error) {
	var out []*models.Player
	for _, p := range r.store.players {
		if onlyActive && !p.IsActive {
			continue
		}
		out = append(out, clonePlayer(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) ListActive(ctx context.Context, exec repositories.SQLExecutor) ([]*models.Player, error) {
	return r.List(ctx, true)
}

func (r *fakePlayerRepo) Update(ctx context.Context, player *models.Player) error {
	if _, ok := r.store.players[player.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	r.store.players[player.ID] = clonePlayer(player)
	return nil
}

func (r *fakePlayerRepo) SetActive(ctx context.Context, id int, active bool) error {
	p, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.IsActive = active
	return nil
}

func (r *fakePlayerRepo) UpdateAvatarKey(ctx context.Context, id int, key *string) error {
	p, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.AvatarKey = key
	return nil
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.store.players[id]; !ok {
		return repositories.ErrPlayerNotFound
	}
	delete(r.store.players, id)
	return nil
}

func (r *fakePlayerRepo) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, id, newElo int, won bool) error {
	if r.applyErrFor == id && r.applyErr != nil {
		return r.applyErr
	}
	p, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.EloScore = newElo
	if newElo > p.HighestElo {
		p.HighestElo = newElo
	}
	if won {
		p.Wins++
	} else {
		p.Losses++
	}
	return nil
}

func (r *fakePlayerRepo) RevertMatchResult(ctx context.Context, exec repositories.SQLExecutor, id, priorElo int, wasWinner bool) error {
	p, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.EloScore = priorElo
	if wasWinner {
		if p.Wins > 0 {
			p.Wins--
		}
	} else if p.Losses > 0 {
		p.Losses--
	}
	return nil
}

func (r *fakePlayerRepo) ResetRating(ctx context.Context, exec repositories.SQLExecutor, id, elo int, resetHighest bool) error {
	p, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.EloScore = elo
	if resetHighest {
		p.HighestElo = elo
	}
	return nil
}

type fakeSeasonRepo struct {
	store *memStore
}

func (r *fakeSeasonRepo) Create(ctx context.Context, exec repositories.SQLExecutor, season *models.Season) error {
	for _, s := range r.store.seasons {
		if s.Name == season.Name {
			return repositories.ErrSeasonNameConflict
		}
	}
	season.ID = r.store.id()
	season.CreatedAt = time.Now()
	r.store.seasons[season.ID] = cloneSeason(season)
	return nil
}

func (r *fakeSeasonRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Season, error) {
	s, ok := r.store.seasons[id]
	if !ok {
		return nil, repositories.ErrSeasonNotFound
	}
	return cloneSeason(s), nil
}

func (r *fakeSeasonRepo) GetActive(ctx context.Context, exec repositories.SQLExecutor) (*models.Season, error) {
	for _, s := range r.store.seasons {
		if s.IsActive {
			return cloneSeason(s), nil
		}
	}
	return nil, repositories.ErrNoActiveSeason
}

func (r *fakeSeasonRepo) List(ctx context.Context) ([]*models.Season, error) {
	var out []*models.Season
	for _, s := range r.store.seasons {
		out = append(out, cloneSeason(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeSeasonRepo) End(ctx context.Context, exec repositories.SQLExecutor, id int, endDate time.Time) error {
	s, ok := r.store.seasons[id]
	if !ok {
		return repositories.ErrSeasonNotFound
	}
	s.IsActive = false
	s.EndDate = &endDate
	return nil
}

func (r *fakeSeasonRepo) CountMatches(ctx context.Context, exec repositories.SQLExecutor, seasonID int) (int, error) {
	count := 0
	for _, m := range r.store.matches {
		if m.SeasonID != nil && *m.SeasonID == seasonID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSeasonRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.store.seasons[id]; !ok {
		return repositories.ErrSeasonNotFound
	}
	delete(r.store.seasons, id)
	return nil
}

type fakeSeasonStatsRepo struct {
	store *memStore
}

func (r *fakeSeasonStatsRepo) Create(ctx context.Context, exec repositories.SQLExecutor, stats *models.PlayerSeasonStats) error {
	for _, row := range r.store.stats {
		if row.PlayerID == stats.PlayerID && row.SeasonID == stats.SeasonID {
			return repositories.ErrSeasonStatsConflict
		}
	}
	stats.ID = r.store.id()
	r.store.stats[stats.ID] = cloneStats(stats)
	return nil
}

func (r *fakeSeasonStatsRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, stats []*models.PlayerSeasonStats) error {
	for _, row := range stats {
		if err := r.Create(ctx, exec, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSeasonStatsRepo) GetByPlayerAndSeason(ctx context.Context, exec repositories.SQLExecutor, playerID, seasonID int) (*models.PlayerSeasonStats, error) {
	for _, row := range r.store.stats {
		if row.PlayerID == playerID && row.SeasonID == seasonID {
			return cloneStats(row), nil
		}
	}
	return nil, repositories.ErrSeasonStatsNotFound
}

func (r *fakeSeasonStatsRepo) ListBySeason(ctx context.Context, seasonID int) ([]*models.PlayerSeasonStats, error) {
	var out []*models.PlayerSeasonStats
	for _, row := range r.store.stats {
		if row.SeasonID == seasonID {
			out = append(out, cloneStats(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (r *fakeSeasonStatsRepo) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, id, newElo int, won bool) error {
	row, ok := r.store.stats[id]
	if !ok {
		return repositories.ErrSeasonStatsNotFound
	}
	if newElo > row.HighestElo {
		row.HighestElo = newElo
	}
	if won {
		row.Wins++
	} else {
		row.Losses++
	}
	return nil
}

func (r *fakeSeasonStatsRepo) RevertMatchResult(ctx context.Context, exec repositories.SQLExecutor, playerID, seasonID int, wasWinner bool) error {
	for _, row := range r.store.stats {
		if row.PlayerID != playerID || row.SeasonID != seasonID {
			continue
		}
		if wasWinner {
			if row.Wins > 0 {
				row.Wins--
			}
		} else if row.Losses > 0 {
			row.Losses--
		}
		return nil
	}
	return repositories.ErrSeasonStatsNotFound
}

func (r *fakeSeasonStatsRepo) FinalizeSeason(ctx context.Context, exec repositories.SQLExecutor, seasonID int) error {
	for _, row := range r.store.stats {
		if row.SeasonID != seasonID {
			continue
		}
		if p, ok := r.store.players[row.PlayerID]; ok {
			row.FinalElo = intPtr(p.EloScore)
		}
	}
	return nil
}

func (r *fakeSeasonStatsRepo) DeleteBySeason(ctx context.Context, exec repositories.SQLExecutor, seasonID int) error {
	for id, row := range r.store.stats {
		if row.SeasonID == seasonID {
			delete(r.store.stats, id)
		}
	}
	return nil
}

type fakeMatchRepo struct {
	store *memStore
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = r.store.id()
	match.CreatedAt = time.Now()
	r.store.matches[match.ID] = cloneMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r *fakeMatchRepo) List(ctx context.Context, seasonID *int, limit int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.store.matches {
		if seasonID != nil && (m.SeasonID == nil || *m.SeasonID != *seasonID) {
			continue
		}
		out = append(out, cloneMatch(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.store.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.store.matches, id)
	return nil
}

type fakeSettingsRepo struct {
	store *memStore
}

func (r *fakeSettingsRepo) Get(ctx context.Context, exec repositories.SQLExecutor) (*models.Settings, error) {
	settings := r.store.settings
	return &settings, nil
}

func (r *fakeSettingsRepo) UpdateKFactor(ctx context.Context, kFactor int) (*models.Settings, error) {
	r.store.settings.KFactor = kFactor
	settings := r.store.settings
	return &settings, nil
}

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) Create(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.Username == user.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	user.ID = r.store.id()
	user.CreatedAt = time.Now()
	u := *user
	r.store.users[user.ID] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// fixture собирает сервисы поверх одного memStore.
type fixture struct {
	store       *memStore
	tx          *fakeTxRunner
	hub         *fakeBroadcaster
	playerRepo  *fakePlayerRepo
	seasonRepo  *fakeSeasonRepo
	statsRepo   *fakeSeasonStatsRepo
	matchRepo   *fakeMatchRepo
	settings    *fakeSettingsRepo
	userRepo    *fakeUserRepo
	seasonSvc   SeasonService
	matchSvc    MatchService
	playerSvc   PlayerService
	authSvc     AuthService
	settingsSvc SettingsService
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:      store,
		tx:         &fakeTxRunner{store: store},
		hub:        &fakeBroadcaster{},
		playerRepo: &fakePlayerRepo{store: store},
		seasonRepo: &fakeSeasonRepo{store: store},
		statsRepo:  &fakeSeasonStatsRepo{store: store},
		matchRepo:  &fakeMatchRepo{store: store},
		settings:   &fakeSettingsRepo{store: store},
		userRepo:   &fakeUserRepo{store: store},
	}
	f.seasonSvc = NewSeasonService(f.tx, f.seasonRepo, f.statsRepo, f.playerRepo, f.matchRepo, f.hub)
	f.matchSvc = NewMatchService(f.tx, f.playerRepo, f.seasonRepo, f.statsRepo, f.matchRepo, f.settings, f.hub)
	f.playerSvc = NewPlayerService(f.playerRepo, f.statsRepo, nil)
	f.authSvc = NewAuthService(f.tx, f.userRepo, f.playerRepo)
	f.settingsSvc = NewSettingsService(f.settings)
	return f
}

func (f *fixture) addPlayer(name string, elo int) *models.Player {
	id := f.store.id()
	p := &models.Player{
		ID:         id,
		Name:       name,
		EloScore:   elo,
		HighestElo: elo,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	f.store.players[id] = p
	return p
}

func (f *fixture) addActiveSeason(name string) *models.Season {
	id := f.store.id()
	s := &models.Season{
		ID:        id,
		Name:      name,
		StartDate: time.Now(),
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	f.store.seasons[id] = s
	return s
}

func (f *fixture) addStats(playerID, seasonID, initialElo int) *models.PlayerSeasonStats {
	id := f.store.id()
	row := &models.PlayerSeasonStats{
		ID:         id,
		PlayerID:   playerID,
		SeasonID:   seasonID,
		InitialElo: initialElo,
		HighestElo: initialElo,
	}
	f.store.stats[id] = row
	return row
}
