package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// Appeal decisions accepted by DecideAppeal.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// SubmitAppeal files an appeal for the user's warnings. Rejected when the
// user has no warnings, already has a pending appeal, or appealed anything
// within the cooldown window.
func (e *Engine) SubmitAppeal(ctx context.Context, guildID, userID, reason string) (*models.Appeal, error) {
	if guildID == "" || userID == "" {
		return nil, validationError("guild and user ids are required")
	}
	if reason == "" {
		return nil, validationError("an appeal reason is required")
	}
	if len(reason) > models.MaxAppealReasonLength {
		return nil, validationError("appeal reason is too long (max %d characters)", models.MaxAppealReasonLength)
	}

	unlock := e.locks.Lock(guildID, userID)
	defer unlock()

	state, err := e.warnings.GetState(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to load warning state", err)
	}
	if state == nil || state.Count <= 0 {
		return nil, conflictError("no active warnings to appeal")
	}

	pending, err := e.appeals.HasPending(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to check pending appeals", err)
	}
	if pending {
		return nil, conflictError("an appeal is already pending")
	}

	latest, err := e.appeals.Latest(guildID, userID)
	if err != nil {
		return nil, persistenceError("failed to load latest appeal", err)
	}
	now := e.clock.Now()
	if latest != nil {
		if elapsed := now.Sub(latest.CreatedAt); elapsed < models.AppealCooldown {
			remaining := models.AppealCooldown - elapsed
			return nil, conflictError("you must wait %s before submitting a new appeal", FormatDuration(remaining))
		}
	}

	appeal := &models.Appeal{
		ID:        uuid.New(),
		GuildID:   guildID,
		UserID:    userID,
		Reason:    reason,
		Status:    models.AppealStatusPending,
		CreatedAt: now,
	}
	if err := e.appeals.Create(appeal); err != nil {
		return nil, persistenceError("failed to create appeal", err)
	}

	e.logger.Info("appeal submitted",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("appeal_id", appeal.ID.String()),
	)

	e.notify(ctx, guildID, userID,
		"Your appeal has been submitted. Moderators will review it and you will be notified of their decision.")

	return appeal, nil
}

// DecideAppeal approves or denies a pending appeal. Deciding an appeal that
// has already been decided is a conflict and changes nothing. Approval
// removes exactly one warning.
func (e *Engine) DecideAppeal(ctx context.Context, appealID uuid.UUID, decision, deciderID, decisionReason string) (*models.Appeal, error) {
	if deciderID == "" {
		return nil, validationError("a decider id is required")
	}

	var status string
	switch decision {
	case DecisionApprove:
		status = models.AppealStatusApproved
	case DecisionDeny:
		status = models.AppealStatusDenied
	default:
		return nil, validationError("decision must be %q or %q", DecisionApprove, DecisionDeny)
	}
	if decisionReason == "" {
		decisionReason = "Reviewed by a moderator"
	}

	appeal, err := e.appeals.GetByID(appealID)
	if err != nil {
		return nil, persistenceError("failed to load appeal", err)
	}
	if appeal == nil {
		return nil, notFoundError("appeal not found")
	}

	unlock := e.locks.Lock(appeal.GuildID, appeal.UserID)
	defer unlock()

	now := e.clock.Now()
	decided, err := e.appeals.Decide(appealID, status, deciderID, decisionReason, now)
	if err != nil {
		return nil, persistenceError("failed to decide appeal", err)
	}
	if !decided {
		return nil, conflictError("appeal has already been decided")
	}

	appeal.Status = status
	appeal.DeciderID = &deciderID
	appeal.DecisionReason = &decisionReason
	appeal.DecidedAt = &now

	e.logger.Info("appeal decided",
		zap.String("guild_id", appeal.GuildID),
		zap.String("user_id", appeal.UserID),
		zap.String("appeal_id", appealID.String()),
		zap.String("status", status),
	)

	if status == models.AppealStatusApproved {
		// One warning comes off. The mute only lifts if this drives the
		// count to zero; a tier-3 mute survives an approval from three to
		// two warnings. The appeal is committed as approved before the
		// decrement: if the store fails here the user keeps the warning
		// and a moderator removes it manually, which is safer than an
		// ordering that could decrement twice for one appeal.
		if _, err := e.removeWarningLocked(ctx, appeal.GuildID, appeal.UserID,
			"Appeal approved", &deciderID, models.ActionAppealApproved); err != nil {
			return appeal, err
		}
	}

	e.notify(ctx, appeal.GuildID, appeal.UserID, fmt.Sprintf(
		"Your appeal was %s: %s", status, decisionReason))

	return appeal, nil
}

// PendingAppeals lists a guild's undecided appeals in submission order.
func (e *Engine) PendingAppeals(guildID string) ([]models.Appeal, error) {
	appeals, err := e.appeals.ListPending(guildID)
	if err != nil {
		return nil, persistenceError("failed to list pending appeals", err)
	}
	return appeals, nil
}
