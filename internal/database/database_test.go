package database

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertPlaceholdersByDialect(t *testing.T) {
	q := "SELECT id FROM users WHERE login = $1 AND valid_id = $2"

	pg := &DB{dialect: DialectPostgres}
	assert.Equal(t, q, pg.convert(q))

	my := &DB{dialect: DialectMySQL}
	assert.Equal(t, "SELECT id FROM users WHERE login = ? AND valid_id = ?", my.convert(q))

	lite := &DB{dialect: DialectSQLite}
	assert.Equal(t, "SELECT id FROM users WHERE login = ? AND valid_id = ?", lite.convert(q))
}

func TestStripReturning(t *testing.T) {
	q := "INSERT INTO leave_types (code) VALUES ($1) RETURNING id"
	assert.Equal(t, "INSERT INTO leave_types (code) VALUES ($1)", stripReturning(q))

	noClause := "UPDATE users SET valid_id = 2"
	assert.Equal(t, noClause, stripReturning(noClause))
}

func TestInsertReturningIDPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := Wrap(conn, DialectPostgres)
	mock.ExpectQuery("INSERT INTO leave_types").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := db.InsertReturningID("INSERT INTO leave_types (code) VALUES ($1) RETURNING id", "CL")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturningIDSQLite(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := Wrap(conn, DialectSQLite)
	mock.ExpectExec("INSERT INTO leave_types").
		WithArgs("CL").
		WillReturnResult(sqlmock.NewResult(9, 1))

	id, err := db.InsertReturningID("INSERT INTO leave_types (code) VALUES ($1) RETURNING id", "CL")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAddUsedDialects(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	assert.Contains(t, pg.UpsertAddUsed(), "ON CONFLICT")

	my := &DB{dialect: DialectMySQL}
	assert.Contains(t, my.UpsertAddUsed(), "ON DUPLICATE KEY")
}

func TestAdaptDDLSQLite(t *testing.T) {
	db := &DB{dialect: DialectSQLite}
	out := db.adaptDDL("CREATE TABLE t (id SERIAL PRIMARY KEY, v SMALLINT)")
	assert.Contains(t, out, "INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.NotContains(t, out, "SMALLINT")
}

func TestAdaptDDLMySQL(t *testing.T) {
	db := &DB{dialect: DialectMySQL}

	out := db.adaptDDL("CREATE TABLE t (id SERIAL PRIMARY KEY, old_values TEXT NOT NULL DEFAULT '')")
	assert.Contains(t, out, "INT AUTO_INCREMENT PRIMARY KEY")
	assert.Contains(t, out, "old_values TEXT NOT NULL")
	assert.NotContains(t, out, "DEFAULT ''")

	out = db.adaptDDL("CREATE INDEX IF NOT EXISTS idx_t ON t (v)")
	assert.Equal(t, "CREATE INDEX idx_t ON t (v)", out)

	// Partial unique indexes have no MySQL form and are dropped entirely.
	out = db.adaptDDL("CREATE UNIQUE INDEX IF NOT EXISTS uq_t ON t (v) WHERE status = 'active'")
	assert.Empty(t, out)
}

func TestMigrateMySQLSkipsPartialIndexesAndToleratesDuplicates(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer conn.Close()

	db := Wrap(conn, DialectMySQL)
	ran := 0
	for _, stmt := range schema {
		adapted := db.adaptDDL(stmt)
		if adapted == "" {
			continue
		}
		require.NotContains(t, adapted, "IF NOT EXISTS idx",
			"plain index creation must not carry IF NOT EXISTS on mysql")
		ran++
		if strings.HasPrefix(strings.TrimSpace(adapted), "CREATE INDEX idx_time_sessions_user_date") {
			mock.ExpectExec(".*").WillReturnError(&mysql.MySQLError{Number: 1061, Message: "Duplicate key name"})
			continue
		}
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.Greater(t, ran, 0)

	require.NoError(t, db.Migrate())
	assert.NoError(t, mock.ExpectationsWereMet())
}
