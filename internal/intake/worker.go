package intake

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/isoura4/isrobot-backend/internal/analysis"
	"github.com/isoura4/isrobot-backend/internal/engine"
	"github.com/isoura4/isrobot-backend/internal/models"
	"github.com/isoura4/isrobot-backend/internal/notify"
)

// GuildConfigSource supplies the per-guild analysis settings.
type GuildConfigSource interface {
	Get(guildID string) (*models.GuildConfig, error)
}

// Worker consumes inbound chat messages, scores them with the analysis
// backend and files flags for anything at or above the guild's threshold.
// Scoring runs concurrently up to a fixed bound; the review queue, never
// the worker, decides whether anyone gets warned.
type Worker struct {
	notifier *notify.RedisNotifier
	analyzer *analysis.Client
	engine   *engine.Engine
	config   GuildConfigSource
	logger   *zap.Logger
	sem      *semaphore.Weighted
}

// NewWorker builds the intake worker. maxConcurrent bounds in-flight
// analysis requests across all guilds.
func NewWorker(
	notifier *notify.RedisNotifier,
	analyzer *analysis.Client,
	eng *engine.Engine,
	config GuildConfigSource,
	logger *zap.Logger,
	maxConcurrent int,
) *Worker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Worker{
		notifier: notifier,
		analyzer: analyzer,
		engine:   eng,
		config:   config,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Run blocks, consuming messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("message intake worker started")
	w.notifier.SubscribeMessages(ctx, func(msg models.InboundMessage) {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer w.sem.Release(1)
			w.Process(ctx, msg)
		}()
	})
	w.logger.Info("message intake worker stopped")
}

// Process scores one message. Bot and empty messages are skipped, as are
// guilds with analysis disabled.
func (w *Worker) Process(ctx context.Context, msg models.InboundMessage) {
	if msg.Bot || strings.TrimSpace(msg.Content) == "" {
		return
	}
	if msg.GuildID == "" || msg.MessageID == "" || msg.UserID == "" {
		return
	}

	cfg, err := w.config.Get(msg.GuildID)
	if err != nil {
		w.logger.Error("failed to load guild config",
			zap.String("guild_id", msg.GuildID),
			zap.Error(err),
		)
		return
	}
	if !cfg.AIEnabled {
		return
	}

	result, err := w.analyzer.Analyze(ctx, cfg.OllamaHost, cfg.AIModel, msg.Content)
	if err != nil {
		// Analysis being down means messages go unscored, not blocked.
		w.logger.Warn("message analysis failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		return
	}

	if result.Score < cfg.AIThreshold {
		return
	}

	_, created, err := w.engine.RecordFlag(ctx, engine.RecordFlagInput{
		GuildID:   msg.GuildID,
		MessageID: msg.MessageID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		Score:     result.Score,
		Category:  result.Category,
		Reasoning: result.Reason,
	})
	if err != nil {
		w.logger.Error("failed to record flag",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		return
	}
	if created {
		w.logger.Info("message flagged for review",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.MessageID),
			zap.Int("score", result.Score),
			zap.String("category", result.Category),
		)
	}
}
