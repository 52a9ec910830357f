package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS infractions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		actor_id TEXT,
		type TEXT NOT NULL,
		reason TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		active INTEGER NOT NULL DEFAULT 1,
		expires_at INTEGER,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_infractions_expiry ON infractions (active, expires_at);`,
	`CREATE INDEX IF NOT EXISTS idx_infractions_member ON infractions (guild_id, user_id);`,
	`CREATE TABLE IF NOT EXISTS member_backups (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		nick TEXT,
		roles TEXT NOT NULL DEFAULT '[]',
		mute INTEGER NOT NULL DEFAULT 0,
		deaf INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (guild_id, user_id)
	);`,
}

// Open connects to the SQLite database at dbPath and ensures all tables exist.
func Open(dbPath string) (*sqlx.DB, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return db, nil
}
