package models

import "time"

// ActiveMute is the single active communication restriction for a
// (guild, user) pair. At most one row exists per pair; re-muting replaces
// the expiry (last write wins).
type ActiveMute struct {
	GuildID   string    `json:"guild_id" db:"guild_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ActorID   *string   `json:"actor_id,omitempty" db:"moderator_id"`
	Reason    string    `json:"reason" db:"reason"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the mute should have been lifted by now.
func (m *ActiveMute) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}
