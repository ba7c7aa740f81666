package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// Clock abstracts time so tests can drive decay deadlines and mute expiries
// deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// WarningStore owns the warning counters and the append-only history.
type WarningStore interface {
	GetState(guildID, userID string) (*models.WarningState, error)
	ApplyChange(newCount int, entry *models.WarningHistoryEntry) error
	AppendAudit(entry *models.WarningHistoryEntry) error
	ListActive() ([]models.WarningState, error)
	HistoryForUser(guildID, userID string, limit int) ([]models.WarningHistoryEntry, error)
	HistoryForGuild(guildID string, limit int) ([]models.WarningHistoryEntry, error)
}

// MuteStore owns the single active restriction per (guild, user) pair.
type MuteStore interface {
	Get(guildID, userID string) (*models.ActiveMute, error)
	Upsert(m *models.ActiveMute) error
	Delete(guildID, userID string) (bool, error)
	ListExpired(now time.Time) ([]models.ActiveMute, error)
}

// AppealStore owns appeal rows and their single-shot decision transition.
type AppealStore interface {
	Create(a *models.Appeal) error
	GetByID(id uuid.UUID) (*models.Appeal, error)
	HasPending(guildID, userID string) (bool, error)
	Latest(guildID, userID string) (*models.Appeal, error)
	ListPending(guildID string) ([]models.Appeal, error)
	Decide(id uuid.UUID, status, deciderID, decisionReason string, at time.Time) (bool, error)
}

// FlagStore owns AI flag rows. Insert must be idempotent on message id.
type FlagStore interface {
	Insert(f *models.AIFlag) (bool, error)
	GetByID(id uuid.UUID) (*models.AIFlag, error)
	SetStatus(id uuid.UUID, status, actorID string, at time.Time) (bool, error)
	ListPending(guildID string, limit int) ([]models.AIFlag, error)
}

// ConfigProvider supplies per-guild tunables. Reads happen on every
// operation; stale reads are tolerated.
type ConfigProvider interface {
	Get(guildID string) (*models.GuildConfig, error)
}

// Notifier is the best-effort notification port. Failures are logged and
// never surface as engine errors.
type Notifier interface {
	Notify(ctx context.Context, guildID, userID, message string) error
	PublishModLog(ctx context.Context, event models.ModLogEvent) error
}

// Enforcer applies and lifts restrictions on the chat platform. Remove must
// be idempotent.
type Enforcer interface {
	Apply(ctx context.Context, guildID, userID string, duration time.Duration) error
	Remove(ctx context.Context, guildID, userID string) error
}

// Engine is the moderation state machine: warning ledger, mute registry,
// appeal workflow and AI flag queue behind one per-key lock.
type Engine struct {
	logger   *zap.Logger
	warnings WarningStore
	mutes    MuteStore
	appeals  AppealStore
	flags    FlagStore
	config   ConfigProvider
	notifier Notifier
	enforcer Enforcer

	clock Clock
	locks *keyLock

	// portTimeout bounds each notification/enforcement call.
	portTimeout time.Duration
}

// Options tunes engine behavior.
type Options struct {
	Clock       Clock
	PortTimeout time.Duration
}

// New wires the engine. Nil options fields fall back to the system clock and
// a 5 second port timeout.
func New(
	logger *zap.Logger,
	warnings WarningStore,
	mutes MuteStore,
	appeals AppealStore,
	flags FlagStore,
	config ConfigProvider,
	notifier Notifier,
	enforcer Enforcer,
	opts Options,
) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	timeout := opts.PortTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Engine{
		logger:      logger,
		warnings:    warnings,
		mutes:       mutes,
		appeals:     appeals,
		flags:       flags,
		config:      config,
		notifier:    notifier,
		enforcer:    enforcer,
		clock:       clock,
		locks:       newKeyLock(),
		portTimeout: timeout,
	}
}

// notify sends a best-effort user notification. Port failures are logged,
// never propagated.
func (e *Engine) notify(ctx context.Context, guildID, userID, message string) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.portTimeout)
	defer cancel()
	if err := e.notifier.Notify(ctx, guildID, userID, message); err != nil {
		e.logger.Warn("notification failed",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// publishModLog pushes a history entry to live consumers, best effort.
func (e *Engine) publishModLog(ctx context.Context, entry models.WarningHistoryEntry) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.portTimeout)
	defer cancel()
	event := models.ModLogEvent{
		Event:   models.EventModLog,
		GuildID: entry.GuildID,
		Entry:   entry,
	}
	if err := e.notifier.PublishModLog(ctx, event); err != nil {
		e.logger.Warn("modlog publish failed",
			zap.String("guild_id", entry.GuildID),
			zap.Error(err),
		)
	}
}
