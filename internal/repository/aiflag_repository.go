package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type AIFlagRepository struct {
	db *database.DB
}

func NewAIFlagRepository(db *database.DB) *AIFlagRepository {
	return &AIFlagRepository{db: db}
}

// Insert stores a new flag. A message that was already flagged is left
// untouched; the bool reports whether a row was created.
func (r *AIFlagRepository) Insert(f *models.AIFlag) (bool, error) {
	query := `
		INSERT INTO ai_flags
			(id, guild_id, message_id, channel_id, user_id, message_content, ai_score, ai_category, ai_reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (message_id) DO NOTHING
	`
	res, err := r.db.Exec(query,
		f.ID, f.GuildID, f.MessageID, f.ChannelID, f.UserID,
		f.Content, f.Score, f.Category, f.Reasoning, f.Status, f.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert ai flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// GetByID returns a flag, or nil if it does not exist.
func (r *AIFlagRepository) GetByID(id uuid.UUID) (*models.AIFlag, error) {
	query := `
		SELECT id, guild_id, message_id, channel_id, user_id, message_content,
		       ai_score, ai_category, ai_reason, status, moderator_id, reviewed_at, created_at
		FROM ai_flags
		WHERE id = $1
	`
	f := &models.AIFlag{}
	err := r.db.QueryRow(query, id).Scan(
		&f.ID, &f.GuildID, &f.MessageID, &f.ChannelID, &f.UserID, &f.Content,
		&f.Score, &f.Category, &f.Reasoning, &f.Status, &f.ActorID, &f.DecidedAt, &f.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ai flag: %w", err)
	}
	return f, nil
}

// SetStatus transitions a flag out of a non-terminal state. The guard makes
// terminal states sticky: once a flag is actioned or ignored the update
// matches nothing and returns false.
func (r *AIFlagRepository) SetStatus(id uuid.UUID, status, actorID string, at time.Time) (bool, error) {
	query := `
		UPDATE ai_flags
		SET status = $2, moderator_id = $3, reviewed_at = $4
		WHERE id = $1 AND status IN ($5, $6)
	`
	res, err := r.db.Exec(query, id, status, actorID, at,
		models.FlagStatusPending, models.FlagStatusReviewing)
	if err != nil {
		return false, fmt.Errorf("failed to update ai flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// ListPending returns pending flags for a guild, most suspicious first.
func (r *AIFlagRepository) ListPending(guildID string, limit int) ([]models.AIFlag, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, guild_id, message_id, channel_id, user_id, message_content,
		       ai_score, ai_category, ai_reason, status, moderator_id, reviewed_at, created_at
		FROM ai_flags
		WHERE guild_id = $1 AND status = $2
		ORDER BY ai_score DESC, created_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(query, guildID, models.FlagStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending flags: %w", err)
	}
	defer rows.Close()

	res := []models.AIFlag{}
	for rows.Next() {
		var f models.AIFlag
		if err := rows.Scan(
			&f.ID, &f.GuildID, &f.MessageID, &f.ChannelID, &f.UserID, &f.Content,
			&f.Score, &f.Category, &f.Reasoning, &f.Status, &f.ActorID, &f.DecidedAt, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ai flag: %w", err)
		}
		res = append(res, f)
	}
	return res, rows.Err()
}
