package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type ModeratorRepository struct {
	db *database.DB
}

func NewModeratorRepository(db *database.DB) *ModeratorRepository {
	return &ModeratorRepository{db: db}
}

// Create creates a new moderator account
func (r *ModeratorRepository) Create(m *models.Moderator) error {
	query := `
		INSERT INTO moderators (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(query, m.ID, m.Email, m.DisplayName, m.PasswordHash, m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create moderator: %w", err)
	}
	return nil
}

// GetByEmail retrieves a moderator by email
func (r *ModeratorRepository) GetByEmail(email string) (*models.Moderator, error) {
	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM moderators
		WHERE email = $1
	`
	m := &models.Moderator{}
	err := r.db.QueryRow(query, email).Scan(
		&m.ID, &m.Email, &m.DisplayName, &m.PasswordHash, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("moderator not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get moderator: %w", err)
	}
	return m, nil
}

// GetByID retrieves a moderator by ID
func (r *ModeratorRepository) GetByID(id uuid.UUID) (*models.Moderator, error) {
	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM moderators
		WHERE id = $1
	`
	m := &models.Moderator{}
	err := r.db.QueryRow(query, id).Scan(
		&m.ID, &m.Email, &m.DisplayName, &m.PasswordHash, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("moderator not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get moderator: %w", err)
	}
	return m, nil
}
