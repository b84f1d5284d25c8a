package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options selects the driver and data source.
type Options struct {
	Type        string // sqlite or postgres
	Path        string // sqlite file, ":memory:" allowed
	DatabaseURL string // postgres DSN
}

// Connect opens the database and makes sure the schema exists
func Connect(opts Options) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch strings.ToLower(opts.Type) {
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres")
		}
		db, err = sqlx.Connect("postgres", opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	case "", "sqlite":
		path := opts.Path
		if path == "" {
			path = "data/lessons.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.Connect("sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return nil, fmt.Errorf("unsupported database type %q", opts.Type)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initializeSchema(db *sqlx.DB) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				telegram_id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				language_code TEXT NOT NULL DEFAULT '',
				premium_access BOOLEAN NOT NULL DEFAULT FALSE,
				subscribed BOOLEAN NOT NULL DEFAULT FALSE,
				subscription_started_at TIMESTAMP NULL,
				subscription_verified_at TIMESTAMP NULL,
				subscription_expires_at TIMESTAMP NULL,
				created_at TIMESTAMP NOT NULL,
				last_active TIMESTAMP NOT NULL
			)`},
		{"lessons", `
			CREATE TABLE IF NOT EXISTS lessons (
				id ` + idColumn + `,
				path TEXT NOT NULL UNIQUE,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				html_content TEXT NOT NULL,
				frontmatter TEXT NOT NULL DEFAULT '{}',
				word_count INTEGER NOT NULL DEFAULT 0,
				parent_folder TEXT NULL,
				lesson_number INTEGER NULL,
				file_hash TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"user_progress", `
			CREATE TABLE IF NOT EXISTS user_progress (
				id ` + idColumn + `,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id),
				lesson_path TEXT NOT NULL,
				time_spent BIGINT NOT NULL DEFAULT 0,
				scroll_progress INTEGER NOT NULL DEFAULT 0,
				reading_speed DOUBLE PRECISION NOT NULL DEFAULT 0,
				completion_score DOUBLE PRECISION NOT NULL DEFAULT 0,
				engagement_level TEXT NOT NULL DEFAULT 'new',
				visits INTEGER NOT NULL DEFAULT 0,
				last_visited TIMESTAMP NOT NULL,
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TIMESTAMP NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE(user_id, lesson_path)
			)`},
		{"analytics_events", `
			CREATE TABLE IF NOT EXISTS analytics_events (
				id ` + idColumn + `,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id),
				event_type TEXT NOT NULL,
				lesson_path TEXT NOT NULL DEFAULT '',
				data TEXT NOT NULL DEFAULT '{}',
				timestamp TIMESTAMP NOT NULL
			)`},
		{"user_progress index", `CREATE INDEX IF NOT EXISTS idx_user_progress_lesson ON user_progress(lesson_path)`},
		{"analytics_events index", `CREATE INDEX IF NOT EXISTS idx_analytics_events_user ON analytics_events(user_id)`},
	}

	for _, st := range statements {
		if _, err := db.Exec(st.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}
