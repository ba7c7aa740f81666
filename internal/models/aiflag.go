package models

import (
	"time"

	"github.com/google/uuid"
)

// AI flag lifecycle. Reviewing is a non-terminal marker a moderator can set
// while looking into a flag; actioned and ignored are terminal.
const (
	FlagStatusPending   = "pending"
	FlagStatusReviewing = "reviewing"
	FlagStatusIgnored   = "ignored"
	FlagStatusActioned  = "actioned"
)

// Categories the content analysis model may assign.
const (
	CategoryToxicity       = "toxicity"
	CategorySpam           = "spam"
	CategoryNSFW           = "nsfw"
	CategoryHarassment     = "harassment"
	CategoryMisinformation = "misinformation"
	CategoryNone           = "none"
)

// ValidCategory reports whether the analysis category is one the queue
// accepts.
func ValidCategory(c string) bool {
	switch c {
	case CategoryToxicity, CategorySpam, CategoryNSFW,
		CategoryHarassment, CategoryMisinformation, CategoryNone:
		return true
	}
	return false
}

// AIFlag is a pending review item produced from automated content scoring.
// MessageID is unique: re-submitting the same message is a no-op. Only a
// moderator disposition, never the score itself, can touch the warning
// ledger.
type AIFlag struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	GuildID   string     `json:"guild_id" db:"guild_id"`
	MessageID string     `json:"message_id" db:"message_id"`
	ChannelID string     `json:"channel_id" db:"channel_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Content   string     `json:"content" db:"message_content"`
	Score     int        `json:"score" db:"ai_score"`
	Category  string     `json:"category" db:"ai_category"`
	Reasoning string     `json:"reasoning" db:"ai_reason"`
	Status    string     `json:"status" db:"status"`
	ActorID   *string    `json:"actor_id,omitempty" db:"moderator_id"`
	DecidedAt *time.Time `json:"decided_at,omitempty" db:"reviewed_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Terminal reports whether the flag can no longer be disposed.
func (f *AIFlag) Terminal() bool {
	return f.Status == FlagStatusIgnored || f.Status == FlagStatusActioned
}
