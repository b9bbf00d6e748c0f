package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y IN (?, ?)"
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)", Postgres.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
}

func TestDialect_ForUpdate(t *testing.T) {
	assert.Equal(t, "SELECT 1 FOR UPDATE", Postgres.forUpdate("SELECT 1"))
	assert.Equal(t, "SELECT 1", SQLite.forUpdate("SELECT 1"))
}

func TestDialectFor(t *testing.T) {
	d, ok := DialectFor("PostgreSQL")
	assert.True(t, ok)
	assert.Equal(t, Postgres, d)

	d, ok = DialectFor("sqlite3")
	assert.True(t, ok)
	assert.Equal(t, SQLite, d)

	_, ok = DialectFor("mysql")
	assert.False(t, ok)
}

func TestExtractUp(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INT);\n", extractUp(content))
	assert.Equal(t, "CREATE TABLE b (id INT);", extractUp("CREATE TABLE b (id INT);"))
}
