package repository

import (
	"database/sql"
	"fmt"

	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type WarningRepository struct {
	db *database.DB
}

func NewWarningRepository(db *database.DB) *WarningRepository {
	return &WarningRepository{db: db}
}

// GetState returns the warning counter for a user, or nil if the user has
// never been warned.
func (r *WarningRepository) GetState(guildID, userID string) (*models.WarningState, error) {
	query := `
		SELECT guild_id, user_id, warn_count, updated_at, created_at
		FROM warnings
		WHERE guild_id = $1 AND user_id = $2
	`

	state := &models.WarningState{}
	err := r.db.QueryRow(query, guildID, userID).Scan(
		&state.GuildID,
		&state.UserID,
		&state.Count,
		&state.UpdatedAt,
		&state.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get warning state: %w", err)
	}

	return state, nil
}

// ApplyChange writes a new counter value together with its history entry in
// one transaction so the audit trail can never drift from the counter.
func (r *WarningRepository) ApplyChange(newCount int, entry *models.WarningHistoryEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO warnings (guild_id, user_id, warn_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			warn_count = EXCLUDED.warn_count,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(upsert, entry.GuildID, entry.UserID, newCount, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to update warning count: %w", err)
	}

	insert := `
		INSERT INTO warning_history
			(guild_id, user_id, action, warn_count_before, warn_count_after, moderator_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(insert,
		entry.GuildID, entry.UserID, entry.Action,
		entry.CountBefore, entry.CountAfter,
		entry.ActorID, entry.Reason, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert warning history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit warning change: %w", err)
	}
	return nil
}

// AppendAudit records a history entry that does not change the counter
// (mute and unmute rows).
func (r *WarningRepository) AppendAudit(entry *models.WarningHistoryEntry) error {
	query := `
		INSERT INTO warning_history
			(guild_id, user_id, action, warn_count_before, warn_count_after, moderator_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.Exec(query,
		entry.GuildID, entry.UserID, entry.Action,
		entry.CountBefore, entry.CountAfter,
		entry.ActorID, entry.Reason, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListActive returns every warning state with a positive count, across all
// guilds, for the decay sweep.
func (r *WarningRepository) ListActive() ([]models.WarningState, error) {
	query := `
		SELECT guild_id, user_id, warn_count, updated_at, created_at
		FROM warnings
		WHERE warn_count > 0
		ORDER BY guild_id, user_id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active warnings: %w", err)
	}
	defer rows.Close()

	res := []models.WarningState{}
	for rows.Next() {
		var s models.WarningState
		if err := rows.Scan(&s.GuildID, &s.UserID, &s.Count, &s.UpdatedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warning state: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// HistoryForUser returns a user's moderation history, newest first.
func (r *WarningRepository) HistoryForUser(guildID, userID string, limit int) ([]models.WarningHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, guild_id, user_id, action, warn_count_before, warn_count_after, moderator_id, reason, created_at
		FROM warning_history
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	return r.queryHistory(query, guildID, userID, limit)
}

// HistoryForGuild returns the guild-wide moderation log, newest first.
func (r *WarningRepository) HistoryForGuild(guildID string, limit int) ([]models.WarningHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, guild_id, user_id, action, warn_count_before, warn_count_after, moderator_id, reason, created_at
		FROM warning_history
		WHERE guild_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.queryHistory(query, guildID, limit)
}

func (r *WarningRepository) queryHistory(query string, args ...interface{}) ([]models.WarningHistoryEntry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query warning history: %w", err)
	}
	defer rows.Close()

	res := []models.WarningHistoryEntry{}
	for rows.Next() {
		var e models.WarningHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.GuildID, &e.UserID, &e.Action,
			&e.CountBefore, &e.CountAfter,
			&e.ActorID, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan warning history: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
