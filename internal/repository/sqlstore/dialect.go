package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the few places where the Postgres and SQLite SQL differ.
type Dialect struct {
	Name string
	// DriverName is the database/sql driver the dialect is opened with.
	DriverName string
	// numbered placeholders ($1, $2, ...) instead of ?.
	numbered bool
	// lockClause is appended to row reads that must hold the row for the transaction.
	lockClause string
}

var (
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", numbered: true, lockClause: " FOR UPDATE"}
	// SQLite serialises writers on a single connection, so row locks are unnecessary.
	SQLite = Dialect{Name: "sqlite", DriverName: "sqlite"}
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	}
	return Dialect{}, false
}

// Rebind rewrites ? placeholders into the dialect's form. Queries in this package
// never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d Dialect) forUpdate(query string) string {
	return query + d.lockClause
}
