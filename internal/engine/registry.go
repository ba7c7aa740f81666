package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// muteClearAttempts bounds the retry of the idempotent mute removal when the
// store fails transiently while a count is being driven to zero.
const muteClearAttempts = 3

// IssueMute manually mutes a user for the given duration, replacing any
// existing mute (last write wins).
func (e *Engine) IssueMute(ctx context.Context, guildID, userID string, duration time.Duration, reason string, actorID *string) error {
	if guildID == "" || userID == "" {
		return validationError("guild and user ids are required")
	}
	if duration <= 0 {
		return validationError("mute duration must be positive")
	}
	if reason == "" {
		return validationError("a reason is required to mute a user")
	}

	unlock := e.locks.Lock(guildID, userID)
	defer unlock()

	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		return persistenceError("failed to load warning state", err)
	}
	count := 0
	if state != nil {
		count = state.Count
	}

	if err := e.applyMuteLocked(ctx, guildID, userID, duration, reason, actorID, count); err != nil {
		return err
	}

	e.notify(ctx, guildID, userID, "You have been muted for "+FormatDuration(duration)+": "+reason)
	return nil
}

// RemoveMute manually unmutes a user. Unmuting a user who is not muted is a
// successful no-op; the caller can inspect the result to tell the two apart.
func (e *Engine) RemoveMute(ctx context.Context, guildID, userID, reason string, actorID *string) (bool, error) {
	if guildID == "" || userID == "" {
		return false, validationError("guild and user ids are required")
	}
	if reason == "" {
		reason = "Unmuted by a moderator"
	}

	unlock := e.locks.Lock(guildID, userID)
	defer unlock()

	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		return false, persistenceError("failed to load warning state", err)
	}
	count := 0
	if state != nil {
		count = state.Count
	}

	removed, err := e.clearMuteLocked(ctx, guildID, userID, reason, actorID, count)
	if err != nil {
		return false, err
	}
	if removed {
		e.notify(ctx, guildID, userID, "Your mute has been lifted: "+reason)
	}
	return removed, nil
}

// GetActiveMute returns the active mute for a user, or nil.
func (e *Engine) GetActiveMute(guildID, userID string) (*models.ActiveMute, error) {
	m, err := e.mutes.Get(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to load active mute", err)
	}
	return m, nil
}

// applyMuteLocked upserts the mute row, calls the enforcement port and
// records the audit entry. The caller must hold the pair lock. An
// enforcement failure is logged but does not roll back the committed row:
// the platform's own timeout is the safety net.
func (e *Engine) applyMuteLocked(ctx context.Context, guildID, userID string, duration time.Duration, reason string, actorID *string, currentCount int) error {
	now := e.clock.Now()
	mute := &models.ActiveMute{
		GuildID:   guildID,
		UserID:    userID,
		ActorID:   actorID,
		Reason:    reason,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}
	if err := e.mutes.Upsert(mute); err != nil {
		return persistenceError("failed to store mute", err)
	}

	e.enforce(ctx, guildID, userID, func(ctx context.Context) error {
		return e.enforcer.Apply(ctx, guildID, userID, duration)
	})

	entry := models.WarningHistoryEntry{
		GuildID:     guildID,
		UserID:      userID,
		Action:      models.ActionMute,
		CountBefore: currentCount,
		CountAfter:  currentCount,
		ActorID:     actorID,
		Reason:      reason,
		CreatedAt:   now,
	}
	if err := e.warnings.AppendAudit(&entry); err != nil {
		return persistenceError("failed to record mute", err)
	}

	e.logger.Info("mute applied",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.Duration("duration", duration),
	)
	e.publishModLog(ctx, entry)
	return nil
}

// clearMuteLocked removes the mute row and lifts the platform restriction.
// Removal is idempotent: clearing a user who is not muted succeeds and
// reports false. The caller must hold the pair lock.
func (e *Engine) clearMuteLocked(ctx context.Context, guildID, userID, reason string, actorID *string, currentCount int) (bool, error) {
	var removed bool
	var lastErr error
	for attempt := 0; attempt < muteClearAttempts; attempt++ {
		var err error
		removed, err = e.mutes.Delete(guildID, userID)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		e.logger.Warn("mute removal failed, retrying",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	if lastErr != nil {
		return false, persistenceError("failed to remove mute", lastErr)
	}

	if !removed {
		return false, nil
	}

	e.enforce(ctx, guildID, userID, func(ctx context.Context) error {
		return e.enforcer.Remove(ctx, guildID, userID)
	})

	entry := models.WarningHistoryEntry{
		GuildID:     guildID,
		UserID:      userID,
		Action:      models.ActionUnmute,
		CountBefore: currentCount,
		CountAfter:  currentCount,
		ActorID:     actorID,
		Reason:      reason,
		CreatedAt:   e.clock.Now(),
	}
	if err := e.warnings.AppendAudit(&entry); err != nil {
		return true, persistenceError("failed to record unmute", err)
	}

	e.logger.Info("mute removed",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
	)
	e.publishModLog(ctx, entry)
	return true, nil
}

// enforce runs one enforcement-port call with a bounded timeout, logging
// instead of propagating failure.
func (e *Engine) enforce(ctx context.Context, guildID, userID string, fn func(ctx context.Context) error) {
	if e.enforcer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.portTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.logger.Warn("enforcement call failed",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
