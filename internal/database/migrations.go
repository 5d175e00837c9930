package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the schema bootstrap statements, executed in order on
// startup.  Statements are idempotent (CREATE TABLE IF NOT EXISTS) so the
// server can always run them.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'STUDENT',
		credit_score INT NOT NULL DEFAULT 100,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_refresh_user (user_id),
		KEY idx_refresh_hash (token_hash)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seats (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		seat_no VARCHAR(32) NOT NULL,
		area VARCHAR(32) NOT NULL DEFAULT '',
		seat_type VARCHAR(32) NOT NULL DEFAULT 'standard',
		status VARCHAR(16) NOT NULL DEFAULT 'available',
		x_coord INT NOT NULL DEFAULT 0,
		y_coord INT NOT NULL DEFAULT 0,
		deleted TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_seats_status (status, deleted)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		slot VARCHAR(16) NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		deadline DATETIME NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'reserved',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_res_status_deadline (status, deadline),
		KEY idx_res_status_end (status, end_time),
		KEY idx_res_seat (seat_id, status),
		KEY idx_res_user (user_id, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_occupancy (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL UNIQUE,
		user_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		check_in_time DATETIME NOT NULL,
		last_seen DATETIME NOT NULL,
		away_minutes INT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'normal',
		warning_count INT NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS appeals (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		reason TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		reply TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_appeals_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		title VARCHAR(128) NOT NULL,
		body TEXT NOT NULL,
		severity VARCHAR(16) NOT NULL DEFAULT 'info',
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_notifications_user (user_id, is_read)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sys_config (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		config_key VARCHAR(64) NOT NULL UNIQUE,
		config_value VARCHAR(255) NOT NULL,
		remark VARCHAR(255) NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema bootstrap statements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
