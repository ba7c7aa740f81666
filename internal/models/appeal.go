package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AppealStatusPending  = "pending"
	AppealStatusApproved = "approved"
	AppealStatusDenied   = "denied"
)

// MaxAppealReasonLength caps the free-form reason a user submits with an
// appeal.
const MaxAppealReasonLength = 1000

// AppealCooldown is the minimum time between two appeals from the same user,
// regardless of how the previous one was decided.
const AppealCooldown = 48 * time.Hour

// Appeal is a user-initiated request to reverse a warning. Status leaves
// pending exactly once.
type Appeal struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	GuildID        string     `json:"guild_id" db:"guild_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	Reason         string     `json:"reason" db:"appeal_reason"`
	Status         string     `json:"status" db:"status"`
	DeciderID      *string    `json:"decider_id,omitempty" db:"moderator_id"`
	DecisionReason *string    `json:"decision_reason,omitempty" db:"moderator_decision"`
	DecidedAt      *time.Time `json:"decided_at,omitempty" db:"reviewed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
