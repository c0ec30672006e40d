package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to database...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ sqlx.Connect() failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Ping() failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('user', 'manager', 'admin')),
			notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bins table. The primary key is the externally assigned device
		// binId so sensors, dashboards and admin actions all address the same row.
		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			capacity INT NOT NULL DEFAULT 0,
			waste_type TEXT NOT NULL DEFAULT 'general',
			owner_id TEXT NOT NULL DEFAULT '',
			fill_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
			battery_level DOUBLE PRECISION,
			alert TEXT NOT NULL DEFAULT 'normal',
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			weight DOUBLE PRECISION,
			last_emptied BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bin_readings table (append-only time series)
		`CREATE TABLE IF NOT EXISTS bin_readings (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			fill_percentage DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			battery_level DOUBLE PRECISION,
			recorded_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bin_readings_bin_recorded
			ON bin_readings (bin_id, recorded_at DESC)`,

		// Create notifications table. Deleting a bin cascades to its notifications.
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			bin_id TEXT REFERENCES bins(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('warning', 'success', 'info', 'test')),
			priority TEXT NOT NULL DEFAULT 'normal',
			category TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			read_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_notifications_user
			ON notifications (user_id, created_at DESC)`,

		// Create fcm_tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_info TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			last_active BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user ON fcm_tokens (user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
