package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type MuteRepository struct {
	db *database.DB
}

func NewMuteRepository(db *database.DB) *MuteRepository {
	return &MuteRepository{db: db}
}

// Get returns the active mute for a user, or nil if there is none.
func (r *MuteRepository) Get(guildID, userID string) (*models.ActiveMute, error) {
	query := `
		SELECT guild_id, user_id, moderator_id, reason, expires_at, created_at
		FROM active_mutes
		WHERE guild_id = $1 AND user_id = $2
	`

	m := &models.ActiveMute{}
	err := r.db.QueryRow(query, guildID, userID).Scan(
		&m.GuildID, &m.UserID, &m.ActorID, &m.Reason, &m.ExpiresAt, &m.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active mute: %w", err)
	}
	return m, nil
}

// Upsert writes the mute row, replacing any previous expiry for the pair.
func (r *MuteRepository) Upsert(m *models.ActiveMute) error {
	query := `
		INSERT INTO active_mutes (guild_id, user_id, moderator_id, reason, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			moderator_id = EXCLUDED.moderator_id,
			reason = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`
	if _, err := r.db.Exec(query, m.GuildID, m.UserID, m.ActorID, m.Reason, m.ExpiresAt, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert mute: %w", err)
	}
	return nil
}

// Delete removes the mute row. Deleting a non-existent row is not an error;
// the bool reports whether anything was removed.
func (r *MuteRepository) Delete(guildID, userID string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM active_mutes WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete mute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// ListExpired returns all mutes whose expiry has passed.
func (r *MuteRepository) ListExpired(now time.Time) ([]models.ActiveMute, error) {
	query := `
		SELECT guild_id, user_id, moderator_id, reason, expires_at, created_at
		FROM active_mutes
		WHERE expires_at <= $1
		ORDER BY expires_at ASC
	`
	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired mutes: %w", err)
	}
	defer rows.Close()

	res := []models.ActiveMute{}
	for rows.Next() {
		var m models.ActiveMute
		if err := rows.Scan(&m.GuildID, &m.UserID, &m.ActorID, &m.Reason, &m.ExpiresAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mute: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
