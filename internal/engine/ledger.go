package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// Escalation is the directive computed from a warning count change: which
// automatic mute tier, if any, the new count triggers.
type Escalation struct {
	Tier     int `json:"tier"`
	Duration int `json:"duration_seconds"`
}

// None reports whether no escalation applies.
func (e Escalation) None() bool { return e.Tier == 0 }

// WarnResult is the outcome of issuing a warning.
type WarnResult struct {
	NewCount   int        `json:"new_count"`
	Escalation Escalation `json:"escalation"`
}

// RemoveResult is the outcome of removing a warning by any path.
type RemoveResult struct {
	NewCount int `json:"new_count"`
	// NoOp is set when the count was already zero; nothing was recorded.
	NoOp bool `json:"no_op"`
	// MuteLifted is set when the removal drove the count to zero and an
	// active mute was cleaned up with it.
	MuteLifted bool `json:"mute_lifted"`
}

// IssueWarning increments a user's warning count, records history, applies
// the escalation directive (tier-2 or tier-3 automatic mute) and notifies
// the user.
func (e *Engine) IssueWarning(ctx context.Context, guildID, userID, reason string, actorID *string) (*WarnResult, error) {
	if guildID == "" || userID == "" {
		return nil, validationError("guild and user ids are required")
	}
	if reason == "" {
		return nil, validationError("a reason is required to warn a user")
	}

	unlock := e.locks.Lock(guildID, userID)
	defer unlock()

	return e.issueWarningLocked(ctx, guildID, userID, reason, actorID, models.ActionWarn)
}

// issueWarningLocked is the shared increment path for manual warnings and
// AI-flag dispositions. The caller must hold the pair lock.
func (e *Engine) issueWarningLocked(ctx context.Context, guildID, userID, reason string, actorID *string, action string) (*WarnResult, error) {
	cfg, err := e.config.Get(guildID)
	if err != nil {
		return nil, persistenceError("failed to load guild config", err)
	}

	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to load warning state", err)
	}

	before := 0
	if state != nil {
		before = state.Count
	}
	newCount := before + 1
	now := e.clock.Now()

	entry := &models.WarningHistoryEntry{
		GuildID:     guildID,
		UserID:      userID,
		Action:      action,
		CountBefore: before,
		CountAfter:  newCount,
		ActorID:     actorID,
		Reason:      reason,
		CreatedAt:   now,
	}
	if err := e.warnings.ApplyChange(newCount, entry); err != nil {
		return nil, persistenceError("failed to record warning", err)
	}

	e.logger.Info("warning issued",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("action", action),
		zap.Int("count", newCount),
	)

	result := &WarnResult{NewCount: newCount}

	// Escalation directive: second warning mutes for the tier-2 duration,
	// third for tier-3. Four or more is left to manual action.
	if duration := cfg.MuteDuration(newCount); duration > 0 {
		result.Escalation = Escalation{Tier: newCount, Duration: int(duration.Seconds())}
		muteReason := fmt.Sprintf("Automatic mute - %d warnings", newCount)
		if err := e.applyMuteLocked(ctx, guildID, userID, duration, muteReason, actorID, newCount); err != nil {
			// The warning itself is committed; a failed escalation is
			// reported but not rolled back.
			return result, err
		}
		e.notify(ctx, guildID, userID, fmt.Sprintf(
			"You have been muted for %s: %s", FormatDuration(duration), muteReason))
	}

	e.notify(ctx, guildID, userID, fmt.Sprintf(
		"You received a warning (%d total): %s", newCount, reason))
	e.publishModLog(ctx, *entry)

	return result, nil
}

// RemoveWarning decrements a user's warning count with a floor of zero.
// Removing from zero is a successful no-op and records nothing. Driving the
// count to zero also lifts any active mute.
func (e *Engine) RemoveWarning(ctx context.Context, guildID, userID, reason string, actorID *string) (*RemoveResult, error) {
	if guildID == "" || userID == "" {
		return nil, validationError("guild and user ids are required")
	}
	if reason == "" {
		reason = "Removed by a moderator"
	}

	unlock := e.locks.Lock(guildID, userID)
	defer unlock()

	return e.removeWarningLocked(ctx, guildID, userID, reason, actorID, models.ActionUnwarn)
}

// removeWarningLocked is the shared decrement path for manual removal,
// decay and approved appeals. The caller must hold the pair lock.
func (e *Engine) removeWarningLocked(ctx context.Context, guildID, userID, reason string, actorID *string, action string) (*RemoveResult, error) {
	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to load warning state", err)
	}

	if state == nil || state.Count <= 0 {
		return &RemoveResult{NewCount: 0, NoOp: true}, nil
	}

	before := state.Count
	newCount := before - 1
	now := e.clock.Now()

	entry := &models.WarningHistoryEntry{
		GuildID:     guildID,
		UserID:      userID,
		Action:      action,
		CountBefore: before,
		CountAfter:  newCount,
		ActorID:     actorID,
		Reason:      reason,
		CreatedAt:   now,
	}
	if err := e.warnings.ApplyChange(newCount, entry); err != nil {
		return nil, persistenceError("failed to record warning removal", err)
	}

	e.logger.Info("warning removed",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("action", action),
		zap.Int("count", newCount),
	)

	result := &RemoveResult{NewCount: newCount}

	// A user at zero warnings must not stay muted. Clearing the mute is
	// idempotent, so it is retried on transient store failure.
	if newCount == 0 {
		lifted, err := e.clearMuteLocked(ctx, guildID, userID, reason, actorID, newCount)
		if err != nil {
			return result, err
		}
		result.MuteLifted = lifted
	}

	e.notify(ctx, guildID, userID, fmt.Sprintf(
		"A warning was removed (%d remaining): %s", newCount, reason))
	e.publishModLog(ctx, *entry)

	return result, nil
}

// GetWarningState returns the current counter for a user. Users never warned
// report a zero count rather than an error.
func (e *Engine) GetWarningState(guildID, userID string) (*models.WarningState, error) {
	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to load warning state", err)
	}
	if state == nil {
		return &models.WarningState{GuildID: guildID, UserID: userID}, nil
	}
	return state, nil
}

// GetHistory returns a user's moderation history, newest first.
func (e *Engine) GetHistory(guildID, userID string, limit int) ([]models.WarningHistoryEntry, error) {
	entries, err := e.warnings.HistoryForUser(guildID, userID, limit)
	if err != nil {
		return nil, persistenceError("failed to load warning history", err)
	}
	return entries, nil
}

// GetModLog returns the guild-wide moderation log, newest first.
func (e *Engine) GetModLog(guildID string, limit int) ([]models.WarningHistoryEntry, error) {
	entries, err := e.warnings.HistoryForGuild(guildID, limit)
	if err != nil {
		return nil, persistenceError("failed to load moderation log", err)
	}
	return entries, nil
}
