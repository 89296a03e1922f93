// Package database provides the SQL connection and the small dialect layer
// the repositories write their queries against. Queries use PostgreSQL-style
// $N placeholders and are converted for MySQL/SQLite drivers at execution.
package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/workpulse/workpulse/internal/config"
)

// Dialect identifies the SQL flavor behind a connection.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps *sql.DB with its dialect. Repositories take a *DB so placeholder
// conversion and RETURNING handling stay out of query call sites.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open connects using the configured driver and verifies the connection.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	driverName := cfg.Driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}
	conn, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return &DB{conn: conn, dialect: Dialect(cfg.Driver)}, nil
}

// Wrap builds a DB around an existing connection. Used by tests with sqlmock.
func Wrap(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

func (db *DB) Close() error     { return db.conn.Close() }
func (db *DB) Ping() error      { return db.conn.Ping() }
func (db *DB) Dialect() Dialect { return db.dialect }

// Conn exposes the raw connection for the migration runner.
func (db *DB) Conn() *sql.DB { return db.conn }

var placeholderRe = regexp.MustCompile(`\$\d+`)

// convert rewrites $N placeholders to ? for drivers that need it. Repeated
// placeholder numbers are not supported; queries list every argument.
func (db *DB) convert(query string) string {
	if db.dialect == DialectPostgres {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(db.convert(query), args...)
}

func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(db.convert(query), args...)
}

func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(db.convert(query), args...)
}

// InsertReturningID executes an INSERT written with a trailing RETURNING id
// clause and yields the new row id on every dialect.
func (db *DB) InsertReturningID(query string, args ...interface{}) (int64, error) {
	if db.dialect == DialectPostgres {
		var id int64
		err := db.conn.QueryRow(query, args...).Scan(&id)
		return id, err
	}
	stripped := stripReturning(query)
	res, err := db.conn.Exec(db.convert(stripped), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

var returningRe = regexp.MustCompile(`(?i)\s+RETURNING\s+\S+\s*$`)

func stripReturning(query string) string {
	return returningRe.ReplaceAllString(strings.TrimRight(query, " \n\t"), "")
}

// UpsertAddUsed returns the dialect-specific statement that atomically adds
// minutes to a (user, year, type) balance row, creating it with zero
// allocation when absent. One statement so the implicit-row rule and the
// arithmetic cannot interleave with a concurrent decision.
func (db *DB) UpsertAddUsed() string {
	if db.dialect == DialectMySQL {
		return `
			INSERT INTO leave_balances (user_id, year, leave_type_id, allocated_minutes, used_minutes)
			VALUES ($1, $2, $3, 0, $4)
			ON DUPLICATE KEY UPDATE used_minutes = used_minutes + VALUES(used_minutes)`
	}
	return `
		INSERT INTO leave_balances (user_id, year, leave_type_id, allocated_minutes, used_minutes)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (user_id, year, leave_type_id)
		DO UPDATE SET used_minutes = leave_balances.used_minutes + EXCLUDED.used_minutes`
}
