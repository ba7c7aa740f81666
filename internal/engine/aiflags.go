package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// Dispositions a moderator can apply to an AI flag.
const (
	FlagActionWarn      = "warn"
	FlagActionReviewing = "reviewing"
	FlagActionIgnore    = "ignore"
)

// maxFlaggedContentLength caps the stored excerpt of a flagged message.
const maxFlaggedContentLength = 2000

// RecordFlagInput is one scored message handed to the queue.
type RecordFlagInput struct {
	GuildID   string `json:"guild_id"`
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	Score     int    `json:"score"`
	Category  string `json:"category"`
	Reasoning string `json:"reasoning"`
}

// RecordFlag stores an AI flag for moderator review. Ingestion is idempotent
// on message id: flagging the same message twice returns the no-row result
// without error. Recording never touches the warning ledger.
func (e *Engine) RecordFlag(ctx context.Context, in RecordFlagInput) (*models.AIFlag, bool, error) {
	if in.GuildID == "" || in.MessageID == "" || in.UserID == "" {
		return nil, false, validationError("guild, message and user ids are required")
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, false, validationError("score must be between 0 and 100")
	}
	category := strings.ToLower(in.Category)
	if !models.ValidCategory(category) {
		return nil, false, validationError("unknown category %q", in.Category)
	}

	content := truncateContent(in.Content, maxFlaggedContentLength)

	flag := &models.AIFlag{
		ID:        uuid.New(),
		GuildID:   in.GuildID,
		MessageID: in.MessageID,
		ChannelID: in.ChannelID,
		UserID:    in.UserID,
		Content:   content,
		Score:     in.Score,
		Category:  category,
		Reasoning: in.Reasoning,
		Status:    models.FlagStatusPending,
		CreatedAt: e.clock.Now(),
	}

	created, err := e.flags.Insert(flag)
	if err != nil {
		return nil, false, persistenceError("failed to record ai flag", err)
	}
	if !created {
		return nil, false, nil
	}

	e.logger.Info("ai flag recorded",
		zap.String("guild_id", in.GuildID),
		zap.String("message_id", in.MessageID),
		zap.Int("score", in.Score),
		zap.String("category", category),
	)

	return flag, true, nil
}

// DisposeFlag applies a moderator's decision to a flag. "warn" and "ignore"
// are terminal and single-shot; re-disposing is a conflict and the ledger is
// never incremented twice for one flag. "reviewing" just marks the flag and
// may be repeated.
func (e *Engine) DisposeFlag(ctx context.Context, flagID uuid.UUID, action, actorID string) (*models.AIFlag, error) {
	if actorID == "" {
		return nil, validationError("an actor id is required")
	}

	flag, err := e.flags.GetByID(flagID)
	if err != nil {
		return nil, persistenceError("failed to load ai flag", err)
	}
	if flag == nil {
		return nil, notFoundError("ai flag not found")
	}

	var status string
	switch action {
	case FlagActionWarn:
		status = models.FlagStatusActioned
	case FlagActionReviewing:
		status = models.FlagStatusReviewing
	case FlagActionIgnore:
		status = models.FlagStatusIgnored
	default:
		return nil, validationError("action must be one of %q, %q, %q",
			FlagActionWarn, FlagActionReviewing, FlagActionIgnore)
	}

	unlock := e.locks.Lock(flag.GuildID, flag.UserID)
	defer unlock()

	now := e.clock.Now()
	updated, err := e.flags.SetStatus(flagID, status, actorID, now)
	if err != nil {
		return nil, persistenceError("failed to update ai flag", err)
	}
	if !updated {
		return nil, conflictError("ai flag has already been resolved")
	}

	flag.Status = status
	flag.ActorID = &actorID
	flag.DecidedAt = &now

	e.logger.Info("ai flag disposed",
		zap.String("guild_id", flag.GuildID),
		zap.String("flag_id", flagID.String()),
		zap.String("action", action),
	)

	if action == FlagActionWarn {
		// The status guard above already fired, so this runs at most once
		// per flag. Escalation applies exactly as for a human warning.
		// The flag is committed as actioned before the warning lands: if
		// the increment fails here the flag stays resolved with no ledger
		// entry, and the moderator re-warns manually. That loses a warning
		// on a store failure but can never double-warn for one flag.
		reason := fmt.Sprintf("AI-flagged message (%s): %s", flag.Category, flag.Reasoning)
		if _, err := e.issueWarningLocked(ctx, flag.GuildID, flag.UserID, reason, &actorID, models.ActionAIWarn); err != nil {
			return flag, err
		}
	}

	return flag, nil
}

// truncateContent caps the excerpt at max bytes without splitting a UTF-8
// rune, so the stored text stays valid for Postgres and JSON.
func truncateContent(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

// PendingFlags lists a guild's unreviewed flags, highest score first.
func (e *Engine) PendingFlags(guildID string, limit int) ([]models.AIFlag, error) {
	flags, err := e.flags.ListPending(guildID, limit)
	if err != nil {
		return nil, persistenceError("failed to list pending flags", err)
	}
	return flags, nil
}
