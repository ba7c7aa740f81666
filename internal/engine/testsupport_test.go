package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// manualClock lets tests drive decay deadlines and mute expiries.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func pairKey(guildID, userID string) string { return guildID + "\x00" + userID }

type fakeWarningStore struct {
	mu      sync.Mutex
	states  map[string]*models.WarningState
	history []models.WarningHistoryEntry
	nextID  int64

	failApply bool
}

func newFakeWarningStore() *fakeWarningStore {
	return &fakeWarningStore{states: make(map[string]*models.WarningState)}
}

func (s *fakeWarningStore) GetState(guildID, userID string) (*models.WarningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[pairKey(guildID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *fakeWarningStore) ApplyChange(newCount int, entry *models.WarningHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failApply {
		return errFailure
	}
	key := pairKey(entry.GuildID, entry.UserID)
	st, ok := s.states[key]
	if !ok {
		st = &models.WarningState{GuildID: entry.GuildID, UserID: entry.UserID, CreatedAt: entry.CreatedAt}
		s.states[key] = st
	}
	st.Count = newCount
	st.UpdatedAt = entry.CreatedAt
	s.appendLocked(entry)
	return nil
}

func (s *fakeWarningStore) AppendAudit(entry *models.WarningHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(entry)
	return nil
}

func (s *fakeWarningStore) appendLocked(entry *models.WarningHistoryEntry) {
	s.nextID++
	entry.ID = s.nextID
	s.history = append(s.history, *entry)
}

func (s *fakeWarningStore) ListActive() ([]models.WarningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WarningState
	for _, st := range s.states {
		if st.Count > 0 {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return pairKey(out[i].GuildID, out[i].UserID) < pairKey(out[j].GuildID, out[j].UserID)
	})
	return out, nil
}

func (s *fakeWarningStore) HistoryForUser(guildID, userID string, limit int) ([]models.WarningHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WarningHistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.GuildID == guildID && h.UserID == userID {
			out = append(out, h)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeWarningStore) HistoryForGuild(guildID string, limit int) ([]models.WarningHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WarningHistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.GuildID == guildID {
			out = append(out, h)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeWarningStore) actions(guildID, userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, h := range s.history {
		if h.GuildID == guildID && h.UserID == userID {
			out = append(out, h.Action)
		}
	}
	return out
}

type fakeMuteStore struct {
	mu    sync.Mutex
	mutes map[string]*models.ActiveMute

	failDelete int
}

func newFakeMuteStore() *fakeMuteStore {
	return &fakeMuteStore{mutes: make(map[string]*models.ActiveMute)}
}

func (s *fakeMuteStore) Get(guildID, userID string) (*models.ActiveMute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mutes[pairKey(guildID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *fakeMuteStore) Upsert(m *models.ActiveMute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.mutes[pairKey(m.GuildID, m.UserID)] = &cp
	return nil
}

func (s *fakeMuteStore) Delete(guildID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete > 0 {
		s.failDelete--
		return false, errFailure
	}
	key := pairKey(guildID, userID)
	_, ok := s.mutes[key]
	delete(s.mutes, key)
	return ok, nil
}

func (s *fakeMuteStore) ListExpired(now time.Time) ([]models.ActiveMute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActiveMute
	for _, m := range s.mutes {
		if m.Expired(now) {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeAppealStore struct {
	mu      sync.Mutex
	appeals []*models.Appeal
}

func newFakeAppealStore() *fakeAppealStore { return &fakeAppealStore{} }

func (s *fakeAppealStore) Create(a *models.Appeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.appeals = append(s.appeals, &cp)
	return nil
}

func (s *fakeAppealStore) GetByID(id uuid.UUID) (*models.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appeals {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeAppealStore) HasPending(guildID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appeals {
		if a.GuildID == guildID && a.UserID == userID && a.Status == models.AppealStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeAppealStore) Latest(guildID, userID string) (*models.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Appeal
	for _, a := range s.appeals {
		if a.GuildID != guildID || a.UserID != userID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeAppealStore) ListPending(guildID string) ([]models.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appeal
	for _, a := range s.appeals {
		if a.GuildID == guildID && a.Status == models.AppealStatusPending {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAppealStore) Decide(id uuid.UUID, status, deciderID, decisionReason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appeals {
		if a.ID != id {
			continue
		}
		if a.Status != models.AppealStatusPending {
			return false, nil
		}
		a.Status = status
		a.DeciderID = &deciderID
		a.DecisionReason = &decisionReason
		a.DecidedAt = &at
		return true, nil
	}
	return false, nil
}

type fakeFlagStore struct {
	mu    sync.Mutex
	flags []*models.AIFlag
}

func newFakeFlagStore() *fakeFlagStore { return &fakeFlagStore{} }

func (s *fakeFlagStore) Insert(f *models.AIFlag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.flags {
		if existing.MessageID == f.MessageID {
			return false, nil
		}
	}
	cp := *f
	s.flags = append(s.flags, &cp)
	return true, nil
}

func (s *fakeFlagStore) GetByID(id uuid.UUID) (*models.AIFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.flags {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeFlagStore) SetStatus(id uuid.UUID, status, actorID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.flags {
		if f.ID != id {
			continue
		}
		if f.Status != models.FlagStatusPending && f.Status != models.FlagStatusReviewing {
			return false, nil
		}
		f.Status = status
		f.ActorID = &actorID
		f.DecidedAt = &at
		return true, nil
	}
	return false, nil
}

func (s *fakeFlagStore) ListPending(guildID string, limit int) ([]models.AIFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AIFlag
	for _, f := range s.flags {
		if f.GuildID == guildID && f.Status == models.FlagStatusPending {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeConfigProvider struct {
	mu      sync.Mutex
	configs map[string]*models.GuildConfig
}

func newFakeConfigProvider() *fakeConfigProvider {
	return &fakeConfigProvider{configs: make(map[string]*models.GuildConfig)}
}

func (p *fakeConfigProvider) Get(guildID string) (*models.GuildConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg, ok := p.configs[guildID]; ok {
		cp := *cfg
		return &cp, nil
	}
	return models.DefaultGuildConfig(guildID), nil
}

func (p *fakeConfigProvider) set(cfg *models.GuildConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs[cfg.GuildID] = cfg
}

type notifyCall struct {
	GuildID string
	UserID  string
	Message string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notifyCall
	events  []models.ModLogEvent
}

func (n *fakeNotifier) Notify(_ context.Context, guildID, userID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notifyCall{GuildID: guildID, UserID: userID, Message: message})
	return nil
}

func (n *fakeNotifier) PublishModLog(_ context.Context, event models.ModLogEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type enforceCall struct {
	Op       string
	GuildID  string
	UserID   string
	Duration time.Duration
}

type fakeEnforcer struct {
	mu    sync.Mutex
	calls []enforceCall
}

func (f *fakeEnforcer) Apply(_ context.Context, guildID, userID string, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enforceCall{Op: "apply", GuildID: guildID, UserID: userID, Duration: duration})
	return nil
}

func (f *fakeEnforcer) Remove(_ context.Context, guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enforceCall{Op: "remove", GuildID: guildID, UserID: userID})
	return nil
}

func (f *fakeEnforcer) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Op)
	}
	return out
}

var errFailure = errTest("store failure")

type errTest string

func (e errTest) Error() string { return string(e) }

// testEnv bundles the engine and all its fakes.
type testEnv struct {
	engine   *Engine
	clock    *manualClock
	warnings *fakeWarningStore
	mutes    *fakeMuteStore
	appeals  *fakeAppealStore
	flags    *fakeFlagStore
	config   *fakeConfigProvider
	notifier *fakeNotifier
	enforcer *fakeEnforcer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:    newManualClock(),
		warnings: newFakeWarningStore(),
		mutes:    newFakeMuteStore(),
		appeals:  newFakeAppealStore(),
		flags:    newFakeFlagStore(),
		config:   newFakeConfigProvider(),
		notifier: &fakeNotifier{},
		enforcer: &fakeEnforcer{},
	}
	env.engine = New(
		zap.NewNop(),
		env.warnings,
		env.mutes,
		env.appeals,
		env.flags,
		env.config,
		env.notifier,
		env.enforcer,
		Options{Clock: env.clock},
	)
	return env
}
