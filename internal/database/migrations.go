package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
	Down    string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

			CREATE TABLE IF NOT EXISTS moderators (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				email VARCHAR(255) UNIQUE NOT NULL,
				display_name VARCHAR(255) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_moderators_email ON moderators(email);
		`,
		Down: `
			DROP TABLE IF EXISTS moderators;
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE TABLE IF NOT EXISTS warnings (
				guild_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				warn_count INTEGER NOT NULL DEFAULT 0 CHECK (warn_count >= 0),
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
				PRIMARY KEY (guild_id, user_id)
			);

			CREATE TABLE IF NOT EXISTS warning_history (
				id BIGSERIAL PRIMARY KEY,
				guild_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				action VARCHAR(50) NOT NULL,
				warn_count_before INTEGER NOT NULL,
				warn_count_after INTEGER NOT NULL,
				moderator_id TEXT,
				reason TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_warning_history_user ON warning_history(guild_id, user_id);
			CREATE INDEX IF NOT EXISTS idx_warning_history_guild ON warning_history(guild_id, created_at DESC);
		`,
		Down: `
			DROP TABLE IF EXISTS warning_history;
			DROP TABLE IF EXISTS warnings;
		`,
	},
	{
		Version: 3,
		Up: `
			CREATE TABLE IF NOT EXISTS active_mutes (
				guild_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				moderator_id TEXT,
				reason TEXT NOT NULL DEFAULT '',
				expires_at TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				PRIMARY KEY (guild_id, user_id)
			);

			CREATE INDEX IF NOT EXISTS idx_active_mutes_expires ON active_mutes(expires_at);

			CREATE TABLE IF NOT EXISTS moderation_appeals (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				guild_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				appeal_reason TEXT NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				moderator_id TEXT,
				moderator_decision TEXT,
				reviewed_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_appeals_status ON moderation_appeals(guild_id, status);
			CREATE INDEX IF NOT EXISTS idx_appeals_user ON moderation_appeals(guild_id, user_id, created_at DESC);
		`,
		Down: `
			DROP TABLE IF EXISTS moderation_appeals;
			DROP TABLE IF EXISTS active_mutes;
		`,
	},
	{
		Version: 4,
		Up: `
			CREATE TABLE IF NOT EXISTS moderation_config (
				guild_id TEXT PRIMARY KEY,
				log_channel_id TEXT,
				appeal_channel_id TEXT,
				ai_flag_channel_id TEXT,
				rules_message_id TEXT,
				ai_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				ai_confidence_threshold INTEGER NOT NULL DEFAULT 60,
				ai_model TEXT NOT NULL DEFAULT 'llama2',
				ollama_host TEXT NOT NULL DEFAULT 'http://localhost:11434',
				warn_1_decay_days INTEGER NOT NULL DEFAULT 7,
				warn_2_decay_days INTEGER NOT NULL DEFAULT 14,
				warn_3_decay_days INTEGER NOT NULL DEFAULT 21,
				mute_duration_warn_2 INTEGER NOT NULL DEFAULT 3600,
				mute_duration_warn_3 INTEGER NOT NULL DEFAULT 86400,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS ai_flags (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				guild_id TEXT NOT NULL,
				message_id TEXT UNIQUE NOT NULL,
				channel_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				message_content TEXT NOT NULL DEFAULT '',
				ai_score INTEGER NOT NULL CHECK (ai_score >= 0 AND ai_score <= 100),
				ai_category VARCHAR(50) NOT NULL,
				ai_reason TEXT NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				moderator_id TEXT,
				reviewed_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_ai_flags_status ON ai_flags(guild_id, status);
		`,
		Down: `
			DROP TABLE IF EXISTS ai_flags;
			DROP TABLE IF EXISTS moderation_config;
		`,
	},
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	// Ensure migrations table exists
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	// Get current version
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return err
	}

	// Run pending migrations in ascending order by version
	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, migration := range sorted {
		if migration.Version <= currentVersion {
			continue
		}

		fmt.Printf("Running migration %d...\n", migration.Version)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Printf("Migration %d completed\n", migration.Version)
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
