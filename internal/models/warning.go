package models

import "time"

// History actions recorded in warning_history. Warn-count changes always come
// with a before/after pair; mute and unmute rows are audit-only and carry the
// count unchanged.
const (
	ActionWarn           = "warn"
	ActionUnwarn         = "unwarn"
	ActionDecay          = "decay"
	ActionAppealApproved = "appeal_approved"
	ActionAIWarn         = "ai_warn"
	ActionMute           = "mute"
	ActionUnmute         = "unmute"
)

// WarningState is the per-(guild, user) warning counter. It is never deleted;
// a fully decayed user keeps a row with count 0.
type WarningState struct {
	GuildID   string    `json:"guild_id" db:"guild_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Count     int       `json:"count" db:"warn_count"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WarningHistoryEntry is one row of the append-only moderation audit trail.
// ActorID is nil for automatic actions (decay, expiration).
type WarningHistoryEntry struct {
	ID          int64     `json:"id" db:"id"`
	GuildID     string    `json:"guild_id" db:"guild_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Action      string    `json:"action" db:"action"`
	CountBefore int       `json:"count_before" db:"warn_count_before"`
	CountAfter  int       `json:"count_after" db:"warn_count_after"`
	ActorID     *string   `json:"actor_id,omitempty" db:"moderator_id"`
	Reason      string    `json:"reason" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
