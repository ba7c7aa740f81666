package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// DecaySweep walks every user with an active warning count and decrements
// any whose decay window has elapsed. At most one warning comes off per user
// per sweep; the next tier starts its own window from the decrement. A
// failure on one user is logged and the sweep moves on.
func (e *Engine) DecaySweep(ctx context.Context) (int, error) {
	states, err := e.warnings.ListActive()
	if err != nil {
		return 0, persistenceError("failed to list active warnings", err)
	}

	decayed := 0
	for _, state := range states {
		select {
		case <-ctx.Done():
			return decayed, ctx.Err()
		default:
		}

		cfg, err := e.config.Get(state.GuildID)
		if err != nil {
			e.logger.Error("decay sweep: failed to load guild config",
				zap.String("guild_id", state.GuildID),
				zap.Error(err),
			)
			continue
		}

		deadline := state.UpdatedAt.Add(cfg.DecayWindow(state.Count))
		if e.clock.Now().Before(deadline) {
			continue
		}

		if e.decayOne(ctx, state.GuildID, state.UserID) {
			decayed++
		}
	}

	if decayed > 0 {
		e.logger.Info("decay sweep complete", zap.Int("decayed", decayed))
	}
	return decayed, nil
}

// decayOne re-checks the deadline under the pair lock before decrementing,
// so a warning issued or removed after the list was read is not decayed on
// stale data.
func (e *Engine) decayOne(ctx context.Context, guildID, userID string) bool {
	unlock := e.locks.Lock(guildID, userID)
	defer unlock()

	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		e.logger.Error("decay sweep: failed to reload warning state",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}
	if state == nil || state.Count <= 0 {
		return false
	}

	cfg, err := e.config.Get(guildID)
	if err != nil {
		e.logger.Error("decay sweep: failed to load guild config",
			zap.String("guild_id", guildID),
			zap.Error(err),
		)
		return false
	}
	// The window comes from the reloaded count, so the message names the
	// tier that actually elapsed even if the count changed since the scan.
	window := cfg.DecayWindow(state.Count)
	if e.clock.Now().Before(state.UpdatedAt.Add(window)) {
		return false
	}

	reason := "Warning expired after " + FormatDuration(window) + " of good behavior"
	if _, err := e.removeWarningLocked(ctx, guildID, userID, reason, nil, models.ActionDecay); err != nil {
		e.logger.Error("decay sweep: failed to decay warning",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// ExpireMutes removes every mute whose expiry has passed, lifting the
// platform restriction for each. A failure on one mute is logged and the
// sweep moves on.
func (e *Engine) ExpireMutes(ctx context.Context) (int, error) {
	expired, err := e.mutes.ListExpired(e.clock.Now())
	if err != nil {
		return 0, persistenceError("failed to list expired mutes", err)
	}

	removed := 0
	for _, m := range expired {
		select {
		case <-ctx.Done():
			return removed, ctx.Err()
		default:
		}

		unlock := e.locks.Lock(m.GuildID, m.UserID)

		current, err := e.mutes.Get(m.GuildID, m.UserID)
		if err != nil {
			unlock()
			e.logger.Error("mute sweep: failed to reload mute",
				zap.String("guild_id", m.GuildID),
				zap.String("user_id", m.UserID),
				zap.Error(err),
			)
			continue
		}
		// The mute may have been lifted, or replaced with a longer one,
		// since the expired list was read.
		if current == nil || !current.Expired(e.clock.Now()) {
			unlock()
			continue
		}

		state, err := e.warnings.GetState(m.GuildID, m.UserID)
		if err != nil {
			unlock()
			e.logger.Error("mute sweep: failed to load warning state",
				zap.String("guild_id", m.GuildID),
				zap.String("user_id", m.UserID),
				zap.Error(err),
			)
			continue
		}
		count := 0
		if state != nil {
			count = state.Count
		}

		lifted, err := e.clearMuteLocked(ctx, m.GuildID, m.UserID, "Mute expired", nil, count)
		unlock()
		if err != nil {
			e.logger.Error("mute sweep: failed to clear expired mute",
				zap.String("guild_id", m.GuildID),
				zap.String("user_id", m.UserID),
				zap.Error(err),
			)
			continue
		}
		if lifted {
			e.notify(ctx, m.GuildID, m.UserID, "Your mute has expired. Please follow the server rules.")
			removed++
		}
	}

	if removed > 0 {
		e.logger.Info("mute sweep complete", zap.Int("expired", removed))
	}
	return removed, nil
}
