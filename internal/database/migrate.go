package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Schema statements in dependency order. Written for PostgreSQL; adaptDDL
// translates per dialect. The partial unique indexes are the storage-level
// closure of the concurrency invariants (one active session per user, one
// open break per session) on the dialects that support them; the guarded
// inserts carry the invariants everywhere.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		login VARCHAR(120) NOT NULL UNIQUE,
		full_name VARCHAR(200) NOT NULL,
		email VARCHAR(200) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'employee',
		manager_id INTEGER REFERENCES users(id),
		valid_id SMALLINT NOT NULL DEFAULT 1,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		create_by INTEGER NOT NULL DEFAULT 1,
		change_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		change_by INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS time_sessions (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		work_date VARCHAR(10) NOT NULL,
		clock_in TIMESTAMP NOT NULL,
		clock_out TIMESTAMP,
		work_minutes INTEGER NOT NULL DEFAULT 0,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		overtime BOOLEAN NOT NULL DEFAULT FALSE,
		late_in BOOLEAN NOT NULL DEFAULT FALSE,
		early_out BOOLEAN NOT NULL DEFAULT FALSE,
		auto_clocked_out BOOLEAN NOT NULL DEFAULT FALSE,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		change_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_time_sessions_user_date
		ON time_sessions (user_id, work_date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_time_sessions_one_active
		ON time_sessions (user_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS session_breaks (
		id SERIAL PRIMARY KEY,
		session_id INTEGER NOT NULL REFERENCES time_sessions(id) ON DELETE CASCADE,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		reason VARCHAR(250) NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_session_breaks_one_open
		ON session_breaks (session_id) WHERE end_time IS NULL`,
	`CREATE TABLE IF NOT EXISTS leave_types (
		id SERIAL PRIMARY KEY,
		code VARCHAR(20) NOT NULL UNIQUE,
		name VARCHAR(120) NOT NULL,
		annual_quota_minutes INTEGER NOT NULL DEFAULT 0,
		carry_forward BOOLEAN NOT NULL DEFAULT FALSE,
		requires_approval BOOLEAN NOT NULL DEFAULT TRUE,
		valid_id SMALLINT NOT NULL DEFAULT 1,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		change_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS leave_balances (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		year INTEGER NOT NULL,
		leave_type_id INTEGER NOT NULL REFERENCES leave_types(id),
		allocated_minutes INTEGER NOT NULL DEFAULT 0,
		used_minutes INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user_id, year, leave_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS leave_requests (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		leave_type_id INTEGER NOT NULL REFERENCES leave_types(id),
		start_date VARCHAR(10) NOT NULL,
		end_date VARCHAR(10) NOT NULL,
		duration_kind VARCHAR(20) NOT NULL DEFAULT 'full-day',
		reason VARCHAR(500) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		debited_minutes INTEGER NOT NULL DEFAULT 0,
		decided_by INTEGER REFERENCES users(id),
		decided_at TIMESTAMP,
		manager_comment VARCHAR(500),
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leave_requests_user
		ON leave_requests (user_id, applied_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests (status)`,
	`CREATE TABLE IF NOT EXISTS leave_request_cc (
		request_id INTEGER NOT NULL REFERENCES leave_requests(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		PRIMARY KEY (request_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS leave_attachments (
		id SERIAL PRIMARY KEY,
		request_id INTEGER NOT NULL REFERENCES leave_requests(id) ON DELETE CASCADE,
		file_name VARCHAR(250) NOT NULL,
		content_type VARCHAR(120) NOT NULL DEFAULT 'application/octet-stream',
		size_bytes BIGINT NOT NULL DEFAULT 0,
		storage_key VARCHAR(64) NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id SERIAL PRIMARY KEY,
		action VARCHAR(60) NOT NULL,
		actor_id INTEGER NOT NULL,
		affected_user_id INTEGER NOT NULL DEFAULT 0,
		entity VARCHAR(60) NOT NULL,
		entity_id INTEGER NOT NULL DEFAULT 0,
		old_values TEXT NOT NULL DEFAULT '',
		new_values TEXT NOT NULL DEFAULT '',
		reason VARCHAR(500) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate applies the schema statements. Statements are idempotent, so the
// runner is safe to call on every startup. MySQL has no IF NOT EXISTS for
// CREATE INDEX, so a duplicate-key-name error there counts as already
// applied.
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		adapted := db.adaptDDL(stmt)
		if adapted == "" {
			continue
		}
		if _, err := db.conn.Exec(adapted); err != nil {
			if db.dialect == DialectMySQL && isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// MySQL error 1061: duplicate key name.
func isDuplicateIndex(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1061
}

// adaptDDL translates the PostgreSQL DDL for the other dialects. An empty
// result means the statement has no equivalent and is skipped.
func (db *DB) adaptDDL(stmt string) string {
	switch db.dialect {
	case DialectSQLite:
		stmt = strings.ReplaceAll(stmt, "SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT")
		stmt = strings.ReplaceAll(stmt, "SMALLINT", "INTEGER")
		return stmt
	case DialectMySQL:
		// No partial indexes on MySQL; the guarded DML alone enforces
		// one-active-session and one-open-break there.
		if strings.Contains(stmt, "CREATE UNIQUE INDEX") && strings.Contains(stmt, " WHERE ") {
			return ""
		}
		stmt = strings.ReplaceAll(stmt, "CREATE INDEX IF NOT EXISTS", "CREATE INDEX")
		stmt = strings.ReplaceAll(stmt, "SERIAL PRIMARY KEY", "INT AUTO_INCREMENT PRIMARY KEY")
		// TEXT columns cannot carry a default on MySQL.
		stmt = strings.ReplaceAll(stmt, "TEXT NOT NULL DEFAULT ''", "TEXT NOT NULL")
		return stmt
	default:
		return stmt
	}
}
