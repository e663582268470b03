package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func NewSQLite(databaseURL string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(databaseURL)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", databaseURL+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	migrations := []string{
		// Swarm jobs
		`CREATE TABLE IF NOT EXISTS swarm_jobs (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			workspace_id TEXT,
			objective TEXT NOT NULL,
			mode TEXT NOT NULL,
			agent_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			synthesis_result TEXT,
			synthesis_metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Swarm tasks, one row per requested agent
		`CREATE TABLE IF NOT EXISTS swarm_tasks (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES swarm_jobs(id) ON DELETE CASCADE,
			agent_role TEXT NOT NULL,
			agent_index INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			status TEXT NOT NULL,
			output_content TEXT,
			error TEXT,
			tokens_used INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(job_id, agent_index)
		)`,

		// Append-only audit trail of mutating filesystem tools
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			path TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Reusable prompt templates
		`CREATE TABLE IF NOT EXISTS prompt_templates (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			content TEXT NOT NULL,
			mode TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Registered workspaces
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			root_path TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Provider API keys (encrypted)
		`CREATE TABLE IF NOT EXISTS provider_keys (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			encrypted_key BLOB NOT NULL,
			key_nonce BLOB NOT NULL,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(provider)
		)`,

		// Optimistic concurrency for re-synthesis (safe migration with ALTER TABLE)
		`ALTER TABLE swarm_jobs ADD COLUMN synthesis_version INTEGER NOT NULL DEFAULT 0`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_swarm_jobs_status ON swarm_jobs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_swarm_tasks_job_id ON swarm_tasks(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_workspace_id ON audit_log(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_path ON audit_log(workspace_id, path)`,
	}

	for _, migration := range migrations {
		_, err := db.Exec(migration)
		if err != nil {
			// Ignore "duplicate column" errors from ALTER TABLE
			// SQLite returns "duplicate column name" when column already exists
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("failed to run migration: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
