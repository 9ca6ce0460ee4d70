package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect covers the few spots where Postgres, MySQL and SQLite SQL differ.
type Dialect struct {
	Name string
	// numbered is true for $1, $2 placeholders.
	numbered bool
}

var (
	Postgres = Dialect{Name: "pgx", numbered: true}
	MySQL    = Dialect{Name: "mysql"}
	SQLite   = Dialect{Name: "sqlite3"}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("store: unsupported driver %q", driver)
}

// Rebind rewrites '?' placeholders into the dialect's form. Queries passed
// here must not contain literal question marks.
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

// TimeOfDay renders a TIME column as zero-padded 24-hour HH:MM.
func (d Dialect) TimeOfDay(column string) string {
	switch d.Name {
	case Postgres.Name:
		return fmt.Sprintf("to_char(%s, 'HH24:MI')", column)
	case SQLite.Name:
		return fmt.Sprintf("strftime('%%H:%%M', %s)", column)
	}
	return fmt.Sprintf("TIME_FORMAT(%s, '%%H:%%i')", column)
}
