package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type GuildConfigRepository struct {
	db *database.DB
}

func NewGuildConfigRepository(db *database.DB) *GuildConfigRepository {
	return &GuildConfigRepository{db: db}
}

// Get returns the guild's moderation config. Guilds without a row get the
// defaults; the config is read fresh on each operation, so an update takes
// effect on the next call, not retroactively.
func (r *GuildConfigRepository) Get(guildID string) (*models.GuildConfig, error) {
	query := `
		SELECT guild_id, log_channel_id, appeal_channel_id, ai_flag_channel_id, rules_message_id,
		       ai_enabled, ai_confidence_threshold, ai_model, ollama_host,
		       warn_1_decay_days, warn_2_decay_days, warn_3_decay_days,
		       mute_duration_warn_2, mute_duration_warn_3,
		       created_at, updated_at
		FROM moderation_config
		WHERE guild_id = $1
	`

	c := &models.GuildConfig{}
	err := r.db.QueryRow(query, guildID).Scan(
		&c.GuildID, &c.LogChannelID, &c.AppealChannelID, &c.AIFlagChannelID, &c.RulesMessageID,
		&c.AIEnabled, &c.AIThreshold, &c.AIModel, &c.OllamaHost,
		&c.Warn1DecayDays, &c.Warn2DecayDays, &c.Warn3DecayDays,
		&c.MuteDurationWarn2, &c.MuteDurationWarn3,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return models.DefaultGuildConfig(guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}
	return c, nil
}

// Upsert writes the full config row for a guild.
func (r *GuildConfigRepository) Upsert(c *models.GuildConfig) error {
	query := `
		INSERT INTO moderation_config
			(guild_id, log_channel_id, appeal_channel_id, ai_flag_channel_id, rules_message_id,
			 ai_enabled, ai_confidence_threshold, ai_model, ollama_host,
			 warn_1_decay_days, warn_2_decay_days, warn_3_decay_days,
			 mute_duration_warn_2, mute_duration_warn_3, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (guild_id) DO UPDATE SET
			log_channel_id = EXCLUDED.log_channel_id,
			appeal_channel_id = EXCLUDED.appeal_channel_id,
			ai_flag_channel_id = EXCLUDED.ai_flag_channel_id,
			rules_message_id = EXCLUDED.rules_message_id,
			ai_enabled = EXCLUDED.ai_enabled,
			ai_confidence_threshold = EXCLUDED.ai_confidence_threshold,
			ai_model = EXCLUDED.ai_model,
			ollama_host = EXCLUDED.ollama_host,
			warn_1_decay_days = EXCLUDED.warn_1_decay_days,
			warn_2_decay_days = EXCLUDED.warn_2_decay_days,
			warn_3_decay_days = EXCLUDED.warn_3_decay_days,
			mute_duration_warn_2 = EXCLUDED.mute_duration_warn_2,
			mute_duration_warn_3 = EXCLUDED.mute_duration_warn_3,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(query,
		c.GuildID, c.LogChannelID, c.AppealChannelID, c.AIFlagChannelID, c.RulesMessageID,
		c.AIEnabled, c.AIThreshold, c.AIModel, c.OllamaHost,
		c.Warn1DecayDays, c.Warn2DecayDays, c.Warn3DecayDays,
		c.MuteDurationWarn2, c.MuteDurationWarn3, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to upsert guild config: %w", err)
	}
	return nil
}
