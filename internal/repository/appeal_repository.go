package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type AppealRepository struct {
	db *database.DB
}

func NewAppealRepository(db *database.DB) *AppealRepository {
	return &AppealRepository{db: db}
}

// Create inserts a new pending appeal.
func (r *AppealRepository) Create(a *models.Appeal) error {
	query := `
		INSERT INTO moderation_appeals (id, guild_id, user_id, appeal_reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(query, a.ID, a.GuildID, a.UserID, a.Reason, a.Status, a.CreatedAt); err != nil {
		return fmt.Errorf("failed to create appeal: %w", err)
	}
	return nil
}

// GetByID returns an appeal, or nil if it does not exist.
func (r *AppealRepository) GetByID(id uuid.UUID) (*models.Appeal, error) {
	query := `
		SELECT id, guild_id, user_id, appeal_reason, status, moderator_id, moderator_decision, reviewed_at, created_at
		FROM moderation_appeals
		WHERE id = $1
	`
	a := &models.Appeal{}
	err := r.db.QueryRow(query, id).Scan(
		&a.ID, &a.GuildID, &a.UserID, &a.Reason, &a.Status,
		&a.DeciderID, &a.DecisionReason, &a.DecidedAt, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appeal: %w", err)
	}
	return a, nil
}

// HasPending reports whether the user already has an undecided appeal.
func (r *AppealRepository) HasPending(guildID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM moderation_appeals
			WHERE guild_id = $1 AND user_id = $2 AND status = $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(query, guildID, userID, models.AppealStatusPending).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending appeal: %w", err)
	}
	return exists, nil
}

// Latest returns the user's most recent appeal of any status, or nil.
func (r *AppealRepository) Latest(guildID, userID string) (*models.Appeal, error) {
	query := `
		SELECT id, guild_id, user_id, appeal_reason, status, moderator_id, moderator_decision, reviewed_at, created_at
		FROM moderation_appeals
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	a := &models.Appeal{}
	err := r.db.QueryRow(query, guildID, userID).Scan(
		&a.ID, &a.GuildID, &a.UserID, &a.Reason, &a.Status,
		&a.DeciderID, &a.DecisionReason, &a.DecidedAt, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest appeal: %w", err)
	}
	return a, nil
}

// ListPending returns pending appeals for a guild, oldest first so the queue
// is worked in submission order.
func (r *AppealRepository) ListPending(guildID string) ([]models.Appeal, error) {
	query := `
		SELECT id, guild_id, user_id, appeal_reason, status, moderator_id, moderator_decision, reviewed_at, created_at
		FROM moderation_appeals
		WHERE guild_id = $1 AND status = $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query, guildID, models.AppealStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending appeals: %w", err)
	}
	defer rows.Close()

	res := []models.Appeal{}
	for rows.Next() {
		var a models.Appeal
		if err := rows.Scan(
			&a.ID, &a.GuildID, &a.UserID, &a.Reason, &a.Status,
			&a.DeciderID, &a.DecisionReason, &a.DecidedAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appeal: %w", err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// Decide moves a pending appeal to its final status. The status guard in the
// WHERE clause makes the transition single-shot: a second decision matches
// zero rows and returns false.
func (r *AppealRepository) Decide(id uuid.UUID, status, deciderID, decisionReason string, at time.Time) (bool, error) {
	query := `
		UPDATE moderation_appeals
		SET status = $2, moderator_id = $3, moderator_decision = $4, reviewed_at = $5
		WHERE id = $1 AND status = $6
	`
	res, err := r.db.Exec(query, id, status, deciderID, decisionReason, at, models.AppealStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to decide appeal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read decide result: %w", err)
	}
	return n > 0, nil
}
