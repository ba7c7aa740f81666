package models

import (
	"fmt"
	"time"
)

// Decay window for users carrying four or more warnings. Not tunable.
const maxTierDecayDays = 28

// GuildConfig holds the per-guild moderation tunables. Every field has a
// typed default so a guild with no row behaves sensibly.
type GuildConfig struct {
	GuildID         string  `json:"guild_id" db:"guild_id"`
	LogChannelID    *string `json:"log_channel_id,omitempty" db:"log_channel_id"`
	AppealChannelID *string `json:"appeal_channel_id,omitempty" db:"appeal_channel_id"`
	AIFlagChannelID *string `json:"ai_flag_channel_id,omitempty" db:"ai_flag_channel_id"`
	RulesMessageID  *string `json:"rules_message_id,omitempty" db:"rules_message_id"`

	AIEnabled     bool   `json:"ai_enabled" db:"ai_enabled"`
	AIThreshold   int    `json:"ai_confidence_threshold" db:"ai_confidence_threshold"`
	AIModel       string `json:"ai_model" db:"ai_model"`
	OllamaHost    string `json:"ollama_host" db:"ollama_host"`

	Warn1DecayDays int `json:"warn_1_decay_days" db:"warn_1_decay_days"`
	Warn2DecayDays int `json:"warn_2_decay_days" db:"warn_2_decay_days"`
	Warn3DecayDays int `json:"warn_3_decay_days" db:"warn_3_decay_days"`

	// Automatic mute durations in seconds for the second and third warning.
	MuteDurationWarn2 int `json:"mute_duration_warn_2" db:"mute_duration_warn_2"`
	MuteDurationWarn3 int `json:"mute_duration_warn_3" db:"mute_duration_warn_3"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultGuildConfig returns the configuration used for guilds that have
// never been configured.
func DefaultGuildConfig(guildID string) *GuildConfig {
	return &GuildConfig{
		GuildID:           guildID,
		AIEnabled:         true,
		AIThreshold:       60,
		AIModel:           "llama2",
		OllamaHost:        "http://localhost:11434",
		Warn1DecayDays:    7,
		Warn2DecayDays:    14,
		Warn3DecayDays:    21,
		MuteDurationWarn2: 3600,
		MuteDurationWarn3: 86400,
	}
}

// Validate checks ranges and the decay-window ordering. Windows must be
// non-decreasing with the warning count so a heavier offender never decays
// faster than a lighter one.
func (c *GuildConfig) Validate() error {
	if c.AIThreshold < 0 || c.AIThreshold > 100 {
		return fmt.Errorf("ai_confidence_threshold must be between 0 and 100")
	}
	if c.Warn1DecayDays < 1 || c.Warn2DecayDays < 1 || c.Warn3DecayDays < 1 {
		return fmt.Errorf("decay windows must be at least 1 day")
	}
	if c.Warn1DecayDays > c.Warn2DecayDays || c.Warn2DecayDays > c.Warn3DecayDays || c.Warn3DecayDays > maxTierDecayDays {
		return fmt.Errorf("decay windows must be non-decreasing and at most %d days", maxTierDecayDays)
	}
	if c.MuteDurationWarn2 < 1 || c.MuteDurationWarn3 < 1 {
		return fmt.Errorf("mute durations must be positive")
	}
	return nil
}

// DecayWindow returns how long a user's counter must sit untouched before one
// warning decays, given the current count.
func (c *GuildConfig) DecayWindow(count int) time.Duration {
	days := maxTierDecayDays
	switch count {
	case 1:
		days = c.Warn1DecayDays
	case 2:
		days = c.Warn2DecayDays
	case 3:
		days = c.Warn3DecayDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// MuteDuration returns the automatic mute duration triggered by reaching the
// given warning count, or zero when no escalation applies.
func (c *GuildConfig) MuteDuration(count int) time.Duration {
	switch count {
	case 2:
		return time.Duration(c.MuteDurationWarn2) * time.Second
	case 3:
		return time.Duration(c.MuteDurationWarn3) * time.Second
	}
	return 0
}
